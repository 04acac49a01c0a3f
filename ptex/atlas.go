package ptex

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/model3d/render3d"
)

// Parameters is the optional parameters.json of an atlas folder.
type Parameters struct {
	TileSize  int     `json:"tileSize"`
	SplitSize float64 `json:"splitSize"`
}

// An Atlas stores one square texture tile per mesh face, spread across
// one or more chunk images.
//
// Chunk k holds faces [k*T, (k+1)*T), where T is the number of tiles per
// chunk, laid out in row-major order.
type Atlas struct {
	Params Parameters
	Chunks []*render3d.Image

	// HDR is true if the chunks hold linear radiance which must be
	// tone mapped before display. Otherwise, chunks hold sRGB values.
	HDR bool
}

// ChunkName gets the file name of chunk k with the given extension.
func ChunkName(k int, ext string) string {
	return fmt.Sprintf("%d-color-ptex.%s", k, ext)
}

// LoadAtlas reads an atlas folder.
//
// If the folder contains no chunk images, nil is returned without an error.
// If numFaces is positive and no tile size is configured, the tile size is
// chosen so that numFaces tiles fill the single chunk.
func LoadAtlas(dir string, numFaces int) (*Atlas, error) {
	a := &Atlas{}
	paramsPath := filepath.Join(dir, "parameters.json")
	if data, err := os.ReadFile(paramsPath); err == nil {
		if err := json.Unmarshal(data, &a.Params); err != nil {
			return nil, essentials.AddCtx(paramsPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	for k := 0; ; k++ {
		img, hdr, err := loadChunk(dir, k)
		if err != nil {
			return nil, err
		} else if img == nil {
			break
		}
		if k > 0 && hdr != a.HDR {
			return nil, errors.Errorf("chunk %d: mixed HDR and LDR chunks", k)
		}
		a.HDR = hdr
		a.Chunks = append(a.Chunks, img)
	}
	if len(a.Chunks) == 0 {
		return nil, nil
	}

	if a.Params.TileSize <= 0 {
		if len(a.Chunks) > 1 || numFaces <= 0 {
			return nil, errors.New("tileSize is required for multi-chunk atlases")
		}
		perRow := int(math.Ceil(math.Sqrt(float64(numFaces))))
		a.Params.TileSize = a.Chunks[0].Width / perRow
	}
	for k, c := range a.Chunks {
		if c.Width < a.Params.TileSize || c.Height < a.Params.TileSize || a.Params.TileSize <= 0 {
			return nil, errors.Errorf("chunk %d (%dx%d) cannot hold tiles of size %d",
				k, c.Width, c.Height, a.Params.TileSize)
		}
	}
	if numFaces > 0 && a.NumTiles() < numFaces {
		return nil, errors.Errorf("atlas holds %d tiles but mesh has %d faces",
			a.NumTiles(), numFaces)
	}
	return a, nil
}

func loadChunk(dir string, k int) (*render3d.Image, bool, error) {
	hdrPath := filepath.Join(dir, ChunkName(k, "hdr"))
	if _, err := os.Stat(hdrPath); err == nil {
		img, err := ReadRGBEFile(hdrPath)
		return img, true, err
	}
	for _, ext := range []string{"png", "jpg"} {
		path := filepath.Join(dir, ChunkName(k, ext))
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return nil, false, err
		}
		decoded, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, false, essentials.AddCtx(path, err)
		}
		return imageToColors(decoded), false, nil
	}
	return nil, false, nil
}

func imageToColors(img image.Image) *render3d.Image {
	b := img.Bounds()
	res := render3d.NewImage(b.Dx(), b.Dy())
	var idx int
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			res.Data[idx] = render3d.Color{
				X: float64(r) / 0xffff,
				Y: float64(g) / 0xffff,
				Z: float64(bl) / 0xffff,
			}
			idx++
		}
	}
	return res
}

// TilesPerChunk gets the number of tiles that fit in chunk k.
func (a *Atlas) TilesPerChunk(k int) int {
	ts := a.Params.TileSize
	return (a.Chunks[k].Width / ts) * (a.Chunks[k].Height / ts)
}

// NumTiles gets the total number of tiles across all chunks.
func (a *Atlas) NumTiles() int {
	var n int
	for k := range a.Chunks {
		n += a.TilesPerChunk(k)
	}
	return n
}

// Sample looks up the stored value of a face at local tile coordinates uv
// in [0, 1]^2 using bilinear filtering clamped to the tile.
func (a *Atlas) Sample(face int, uv model3d.Coord2D) render3d.Color {
	k := 0
	for k < len(a.Chunks) && face >= a.TilesPerChunk(k) {
		face -= a.TilesPerChunk(k)
		k++
	}
	if k == len(a.Chunks) {
		return render3d.Color{}
	}
	chunk := a.Chunks[k]
	ts := a.Params.TileSize
	perRow := chunk.Width / ts
	x0 := (face % perRow) * ts
	y0 := (face / perRow) * ts

	fx := clamp(uv.X, 0, 1)*float64(ts) - 0.5
	fy := clamp(uv.Y, 0, 1)*float64(ts) - 0.5
	ix := math.Floor(fx)
	iy := math.Floor(fy)
	wx := fx - ix
	wy := fy - iy

	at := func(dx, dy int) render3d.Color {
		x := x0 + clampInt(int(ix)+dx, 0, ts-1)
		y := y0 + clampInt(int(iy)+dy, 0, ts-1)
		return chunk.Data[y*chunk.Width+x]
	}
	top := at(0, 0).Scale(1 - wx).Add(at(1, 0).Scale(wx))
	bottom := at(0, 1).Scale(1 - wx).Add(at(1, 1).Scale(wx))
	return top.Scale(1 - wy).Add(bottom.Scale(wy))
}

func clamp(x, min, max float64) float64 {
	return math.Max(min, math.Min(max, x))
}

func clampInt(x, min, max int) int {
	if x < min {
		return min
	} else if x > max {
		return max
	}
	return x
}
