package dataset

import (
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/mat"

	"github.com/roym899/Replica-Dataset/camera"
)

func FrameName(i int) string {
	return fmt.Sprintf("frame%06d.jpg", i)
}

func DepthName(i int) string {
	return fmt.Sprintf("depth%06d.png", i)
}

func CameraName(i int) string {
	return fmt.Sprintf("camera%06d.json", i)
}

// CameraMetadata describes the camera of one frame.
//
// Axes and origin are in world coordinates; the fields of views are in
// radians.
type CameraMetadata struct {
	Origin     [3]float64        `json:"origin"`
	X          [3]float64        `json:"x"`
	Y          [3]float64        `json:"y"`
	Z          [3]float64        `json:"z"`
	XFov       float64           `json:"x_fov"`
	YFov       float64           `json:"y_fov"`
	Intrinsics camera.Intrinsics `json:"intrinsics"`
	Pose       []float64         `json:"T_camera_world"`
	DepthScale float64           `json:"depth_scale"`
}

// NewCameraMetadata summarizes a camera.
func NewCameraMetadata(cam *camera.Camera, depthScale float64) *CameraMetadata {
	rc := cam.RenderCamera()
	_, yFov := cam.Intrinsics.FieldOfView()
	return &CameraMetadata{
		Origin:     rc.Origin.Array(),
		X:          rc.ScreenX.Array(),
		Y:          rc.ScreenY.Array(),
		Z:          rc.ScreenX.Cross(rc.ScreenY).Array(),
		XFov:       rc.FieldOfView,
		YFov:       yFov,
		Intrinsics: cam.Intrinsics,
		Pose:       camera.RowMajor(cam.CameraFromWorld),
		DepthScale: depthScale,
	}
}

// Camera reconstructs the camera described by the metadata.
func (c *CameraMetadata) Camera() (*camera.Camera, error) {
	if len(c.Pose) != 16 {
		return nil, errors.Errorf("pose has %d values, expected 16", len(c.Pose))
	}
	return camera.New(c.Intrinsics, poseMatrix(c.Pose))
}

// GlobalMetadata describes a whole rendered sequence.
type GlobalMetadata struct {
	Scene      string            `json:"scene"`
	Min        [3]float64        `json:"min"`
	Max        [3]float64        `json:"max"`
	Intrinsics camera.Intrinsics `json:"intrinsics"`
	DepthScale float64           `json:"depth_scale"`
	NumFrames  int               `json:"num_frames"`
	NumMirrors int               `json:"num_mirrors"`
}

// NewGlobalMetadata fills in the bounds of a scene.
func NewGlobalMetadata(scene string, min, max model3d.Coord3D) *GlobalMetadata {
	return &GlobalMetadata{Scene: scene, Min: min.Array(), Max: max.Array()}
}

// WriteJSON encodes v to a file.
func WriteJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(v); err != nil {
		return essentials.AddCtx(path, err)
	}
	return f.Close()
}

// ReadJSON decodes a file into v.
func ReadJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return essentials.AddCtx(path, json.NewDecoder(f).Decode(v))
}

// SaveJPEG encodes an image as a JPEG file.
func SaveJPEG(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		return essentials.AddCtx(path, err)
	}
	return f.Close()
}

// SaveDepth encodes a 16-bit depth image as a PNG file.
func SaveDepth(path string, img *image.Gray16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return essentials.AddCtx(path, err)
	}
	return f.Close()
}

// LoadDepth decodes a depth PNG written by SaveDepth.
func LoadDepth(path string) (*image.Gray16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, essentials.AddCtx(path, err)
	}
	if gray, ok := img.(*image.Gray16); ok {
		return gray, nil
	}
	b := img.Bounds()
	res := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			res.Set(x, y, img.At(x+b.Min.X, y+b.Min.Y))
		}
	}
	return res, nil
}

// MkdirOutput creates an output directory if it does not exist.
func MkdirOutput(dir string) error {
	if stats, err := os.Stat(dir); err == nil && !stats.IsDir() {
		return errors.Errorf("output path is not a directory: %s", dir)
	} else if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	} else {
		return err
	}
}

func poseMatrix(values []float64) *mat.Dense {
	return mat.NewDense(4, 4, append([]float64{}, values...))
}

func joinOutput(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
