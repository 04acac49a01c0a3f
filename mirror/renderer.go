package mirror

import (
	"image"
	"image/color"
	"math"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/model3d/render3d"

	"github.com/roym899/Replica-Dataset/camera"
	"github.com/roym899/Replica-Dataset/ptex"
)

// reflectionEpsilon offsets reflected rays off the mirror plane.
const reflectionEpsilon = 1e-5

// A Scene is the geometry seen in mirrors.
type Scene interface {
	Cast(ray *model3d.Ray, cullBack bool, minScale, maxScale float64) (ptex.Hit, bool)
	Shade(h ptex.Hit, viewDir model3d.Coord3D) render3d.Color
}

// A Renderer captures the reflection of each mirror and blends it into
// frames.
//
// For each frame and mirror, CaptureReflection must be called before
// Render; the capture buffers are reused across frames.
type Renderer struct {
	Mirrors []*Surface
	Width   int
	Height  int

	captures []*render3d.Image
	masks    []*image.Gray
}

// NewRenderer allocates capture buffers for every mirror.
func NewRenderer(mirrors []*Surface, width, height int) *Renderer {
	r := &Renderer{
		Mirrors: mirrors,
		Width:   width,
		Height:  height,
	}
	for range mirrors {
		r.captures = append(r.captures, render3d.NewImage(width, height))
		r.masks = append(r.masks, image.NewGray(image.Rect(0, 0, width, height)))
	}
	return r
}

// MaskTexture gets the coverage mask of mirror i from its last capture.
// Covered pixels are 255 and all others are 0.
func (r *Renderer) MaskTexture(i int) *image.Gray {
	return r.masks[i]
}

// Capture gets the reflection image of mirror i from its last capture.
func (r *Renderer) Capture(i int) *render3d.Image {
	return r.captures[i]
}

// CaptureReflection renders what mirror i reflects for every pixel where
// the mirror is visible, meaning it is hit within the near and far planes
// before any front-facing scene geometry.
//
// Reflected geometry is clipped by the same planes, measured along the
// full path from the camera.
func (r *Renderer) CaptureReflection(i int, scene Scene, cam *camera.Camera) {
	mirror := r.Mirrors[i]
	capture := r.captures[i]
	mask := r.masks[i]
	near, far := cam.Intrinsics.Near, cam.Intrinsics.Far
	essentials.ConcurrentMap(0, r.Height, func(y int) {
		for x := 0; x < r.Width; x++ {
			ray := cam.Ray(float64(x), float64(y))
			mask.SetGray(x, y, color.Gray{})
			capture.Data[y*r.Width+x] = render3d.Color{}

			scale, ok := mirror.Intersect(ray)
			if !ok || scale < near || scale > far {
				continue
			}
			if hit, ok := scene.Cast(ray, true, near, far); ok && hit.Scale < scale {
				continue
			}
			mask.SetGray(x, y, color.Gray{Y: 255})

			hitPoint := ray.Origin.Add(ray.Direction.Scale(scale))
			direction := mirror.ReflectDirection(ray.Direction)
			reflected := &model3d.Ray{
				Origin:    hitPoint.Add(direction.Normalize().Scale(reflectionEpsilon)),
				Direction: direction,
			}
			hit, ok := scene.Cast(reflected, true, math.Max(0, near-scale), far-scale)
			if ok {
				capture.Data[y*r.Width+x] = scene.Shade(hit, reflected.Direction)
			}
		}
	})
}

// Render blends the capture of mirror i into frame wherever mask is set,
// weighting the reflection by the mirror's reflectivity.
//
// Blending is done on sRGB values, the way a display frame buffer would.
func (r *Renderer) Render(i int, mask *image.Gray, frame *render3d.Image) {
	weight := r.Mirrors[i].Reflectivity
	capture := r.captures[i]
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			if mask.GrayAt(x, y).Y == 0 {
				continue
			}
			idx := y*r.Width + x
			blended := toSRGB(frame.Data[idx]).Scale(1 - weight).
				Add(toSRGB(capture.Data[idx]).Scale(weight))
			frame.Data[idx] = render3d.NewColorRGB(blended.X, blended.Y, blended.Z)
		}
	}
}

func toSRGB(c render3d.Color) render3d.Color {
	r, g, b := render3d.RGB(render3d.ClampColor(c))
	return render3d.Color{X: r, Y: g, Z: b}
}
