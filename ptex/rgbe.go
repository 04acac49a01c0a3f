package ptex

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/render3d"
)

// ReadRGBE decodes a Radiance .hdr image into linear radiance.
//
// Only the standard -Y H +X W orientation is supported, with either flat or
// run-length encoded scanlines.
func ReadRGBE(r io.Reader) (*render3d.Image, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil || !strings.HasPrefix(first, "#?") {
		return nil, errors.New("missing radiance signature")
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "read header")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "FORMAT=") && line != "FORMAT=32-bit_rle_rgbe" {
			return nil, errors.Errorf("unsupported format: %s", line[7:])
		}
	}
	resLine, err := br.ReadString('\n')
	if err != nil {
		return nil, errors.Wrap(err, "read resolution")
	}
	fields := strings.Fields(resLine)
	if len(fields) != 4 || fields[0] != "-Y" || fields[2] != "+X" {
		return nil, errors.Errorf("unsupported resolution line: %q", resLine)
	}
	height, err1 := strconv.Atoi(fields[1])
	width, err2 := strconv.Atoi(fields[3])
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid resolution line: %q", resLine)
	}

	img := render3d.NewImage(width, height)
	scanline := make([]byte, width*4)
	for y := 0; y < height; y++ {
		if err := readScanline(br, scanline, width); err != nil {
			return nil, errors.Wrapf(err, "scanline %d", y)
		}
		for x := 0; x < width; x++ {
			px := scanline[x*4 : x*4+4]
			img.Data[y*width+x] = rgbeToColor(px[0], px[1], px[2], px[3])
		}
	}
	return img, nil
}

// ReadRGBEFile decodes a Radiance .hdr file.
func ReadRGBEFile(path string) (*render3d.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := ReadRGBE(f)
	return img, essentials.AddCtx(path, err)
}

func readScanline(r *bufio.Reader, out []byte, width int) error {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return err
	}
	isRLE := width >= 8 && width < 0x8000 && head[0] == 2 && head[1] == 2 &&
		int(head[2])<<8|int(head[3]) == width
	if !isRLE {
		copy(out, head[:])
		_, err := io.ReadFull(r, out[4:])
		return err
	}
	channel := make([]byte, width)
	for c := 0; c < 4; c++ {
		for x := 0; x < width; {
			count, err := r.ReadByte()
			if err != nil {
				return err
			}
			if count > 128 {
				n := int(count) - 128
				if x+n > width {
					return errors.New("run exceeds scanline")
				}
				value, err := r.ReadByte()
				if err != nil {
					return err
				}
				for i := 0; i < n; i++ {
					channel[x+i] = value
				}
				x += n
			} else {
				n := int(count)
				if n == 0 || x+n > width {
					return errors.New("invalid literal run")
				}
				if _, err := io.ReadFull(r, channel[x:x+n]); err != nil {
					return err
				}
				x += n
			}
		}
		for x := 0; x < width; x++ {
			out[x*4+c] = channel[x]
		}
	}
	return nil
}

func rgbeToColor(r, g, b, e byte) render3d.Color {
	if e == 0 {
		return render3d.Color{}
	}
	f := math.Ldexp(1, int(e)-(128+8))
	return render3d.Color{X: float64(r) * f, Y: float64(g) * f, Z: float64(b) * f}
}
