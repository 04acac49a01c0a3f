// Package camera implements pinhole cameras with right-down-forward poses.
package camera

import (
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/model3d/render3d"
	"gonum.org/v1/gonum/mat"
)

// Intrinsics describes a pinhole projection in pixel units.
type Intrinsics struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Cx     float64 `json:"cx"`
	Cy     float64 `json:"cy"`
	Near   float64 `json:"near"`
	Far    float64 `json:"far"`
}

// DefaultIntrinsics uses a focal length of half the image width, giving a
// 90 degree horizontal field of view.
func DefaultIntrinsics(width, height int) Intrinsics {
	return Intrinsics{
		Width:  width,
		Height: height,
		Fx:     float64(width) / 2,
		Fy:     float64(width) / 2,
		Cx:     (float64(width) - 1) / 2,
		Cy:     (float64(height) - 1) / 2,
		Near:   0.1,
		Far:    100,
	}
}

// FieldOfView gets the horizontal and vertical field of view in radians.
func (i Intrinsics) FieldOfView() (x, y float64) {
	x = 2 * math.Atan(float64(i.Width)/(2*i.Fx))
	y = 2 * math.Atan(float64(i.Height)/(2*i.Fy))
	return
}

// A Camera pairs intrinsics with a world-to-camera transform.
//
// Camera coordinates are right-down-forward: +x points right in the image,
// +y points down, and +z is the viewing direction.
type Camera struct {
	Intrinsics Intrinsics

	// CameraFromWorld is a 4x4 rigid transform.
	CameraFromWorld *mat.Dense
}

// New creates a camera, checking that the pose is 4x4.
func New(in Intrinsics, cameraFromWorld *mat.Dense) (*Camera, error) {
	if r, c := cameraFromWorld.Dims(); r != 4 || c != 4 {
		return nil, errors.Errorf("pose must be 4x4, got %dx%d", r, c)
	}
	if in.Width <= 0 || in.Height <= 0 || in.Fx <= 0 || in.Fy <= 0 {
		return nil, errors.New("invalid intrinsics")
	}
	return &Camera{Intrinsics: in, CameraFromWorld: cameraFromWorld}, nil
}

// Origin gets the camera center in world coordinates.
func (c *Camera) Origin() model3d.Coord3D {
	r := c.rotation()
	t := c.translation()
	return r.Transpose().MulColumn(t).Scale(-1)
}

// Axes gets the world-space directions of the camera x, y and z axes.
func (c *Camera) Axes() (x, y, z model3d.Coord3D) {
	r := c.rotation()
	return model3d.XYZ(r[0], r[1], r[2]),
		model3d.XYZ(r[3], r[4], r[5]),
		model3d.XYZ(r[6], r[7], r[8])
}

// Ray gets the world-space ray through the pixel coordinate (u, v), where
// integer coordinates are pixel centers.
//
// The ray direction is scaled so that its camera-space z is 1, making the
// collision scale equal to view-space depth.
func (c *Camera) Ray(u, v float64) *model3d.Ray {
	in := c.Intrinsics
	local := model3d.XYZ((u-in.Cx)/in.Fx, (v-in.Cy)/in.Fy, 1)
	return &model3d.Ray{
		Origin:    c.Origin(),
		Direction: c.rotation().Transpose().MulColumn(local),
	}
}

// ToCamera maps a world point into camera coordinates.
func (c *Camera) ToCamera(p model3d.Coord3D) model3d.Coord3D {
	return c.rotation().MulColumn(p).Add(c.translation())
}

// Project maps a world point to pixel coordinates and view depth.
// The result is false for points behind the camera.
func (c *Camera) Project(p model3d.Coord3D) (u, v, depth float64, ok bool) {
	local := c.ToCamera(p)
	if local.Z <= 0 {
		return 0, 0, local.Z, false
	}
	in := c.Intrinsics
	u = in.Fx*local.X/local.Z + in.Cx
	v = in.Fy*local.Y/local.Z + in.Cy
	return u, v, local.Z, true
}

// Unproject maps a pixel and view depth back to a world point.
func (c *Camera) Unproject(u, v, depth float64) model3d.Coord3D {
	ray := c.Ray(u, v)
	return ray.Origin.Add(ray.Direction.Scale(depth))
}

// RenderCamera converts to a render3d camera with the same origin and
// orientation, using the horizontal field of view.
func (c *Camera) RenderCamera() *render3d.Camera {
	x, y, _ := c.Axes()
	fov, _ := c.Intrinsics.FieldOfView()
	return &render3d.Camera{
		Origin:      c.Origin(),
		ScreenX:     x,
		ScreenY:     y,
		FieldOfView: fov,
	}
}

func (c *Camera) rotation() *model3d.Matrix3 {
	var r model3d.Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = c.CameraFromWorld.At(i, j)
		}
	}
	return &r
}

func (c *Camera) translation() model3d.Coord3D {
	m := c.CameraFromWorld
	return model3d.XYZ(m.At(0, 3), m.At(1, 3), m.At(2, 3))
}
