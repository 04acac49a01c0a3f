// Package render produces color and depth frames of a textured scene with
// mirrors.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/render3d"

	"github.com/roym899/Replica-Dataset/camera"
	"github.com/roym899/Replica-Dataset/mirror"
	"github.com/roym899/Replica-Dataset/ptex"
)

// DefaultDepthScale stores depth in units of 0.1mm.
const DefaultDepthScale = 65535.0 * 0.1

// A Renderer draws frames of a mesh, compositing mirror reflections.
type Renderer struct {
	Mesh *ptex.Mesh

	// Mirrors may be nil to disable reflections.
	Mirrors *mirror.Renderer

	// DepthScale converts view depth to 16-bit depth values.
	DepthScale float64
}

// RenderColor renders the mesh from cam with back faces culled, then
// captures and composites each mirror in order.
//
// Geometry outside the near and far planes is clipped. The result holds
// linear colors; use its RGBA method for display.
func (r *Renderer) RenderColor(cam *camera.Camera) *render3d.Image {
	in := cam.Intrinsics
	img := render3d.NewImage(in.Width, in.Height)
	essentials.ConcurrentMap(0, in.Height, func(y int) {
		for x := 0; x < in.Width; x++ {
			ray := cam.Ray(float64(x), float64(y))
			if hit, ok := r.Mesh.Cast(ray, true, in.Near, in.Far); ok {
				img.Data[y*in.Width+x] = r.Mesh.Shade(hit, ray.Direction)
			}
		}
	})
	if r.Mirrors != nil {
		for i := range r.Mirrors.Mirrors {
			r.Mirrors.CaptureReflection(i, r.Mesh, cam)
			r.Mirrors.Render(i, r.Mirrors.MaskTexture(i), img)
		}
	}
	return img
}

// RenderDepth renders the view depth of the first front-facing surface
// between the near and far planes.
//
// Values are round(depth * DepthScale), saturating at 65535. Pixels with no
// such surface are 0.
func (r *Renderer) RenderDepth(cam *camera.Camera) *image.Gray16 {
	in := cam.Intrinsics
	img := image.NewGray16(image.Rect(0, 0, in.Width, in.Height))
	scale := r.DepthScale
	if scale == 0 {
		scale = DefaultDepthScale
	}
	essentials.ConcurrentMap(0, in.Height, func(y int) {
		for x := 0; x < in.Width; x++ {
			ray := cam.Ray(float64(x), float64(y))
			hit, ok := r.Mesh.Cast(ray, true, in.Near, in.Far)
			if !ok {
				continue
			}
			value := math.Min(hit.Scale*scale+0.5, math.MaxUint16)
			img.SetGray16(x, y, color.Gray16{Y: uint16(value)})
		}
	})
	return img
}
