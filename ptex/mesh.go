// Package ptex renders quad meshes textured with per-face texture tiles.
package ptex

import (
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model2d"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/model3d/render3d"

	"github.com/roym899/Replica-Dataset/ply"
)

const (
	DefaultExposure   = 0.0055
	DefaultGamma      = 2.4
	DefaultSaturation = 1.5
)

// A Mesh is a polygon mesh which can be ray cast and shaded with its
// texture atlas.
//
// A Mesh is safe to use from multiple Goroutines once loaded, as long as the
// tone mapping parameters are not modified concurrently.
type Mesh struct {
	Exposure   float64
	Gamma      float64
	Saturation float64

	geometry *ply.Mesh
	atlas    *Atlas
	collider model3d.Collider
	tris     map[model3d.Triangle]*faceTriangle
}

type faceTriangle struct {
	Face     int
	Vertices [3]int
	UV       [3]model3d.Coord2D
}

// A Hit is a ray collision with a mesh face.
type Hit struct {
	// Scale is the distance along the ray direction, in units of the
	// direction's norm.
	Scale  float64
	Point  model3d.Coord3D
	Normal model3d.Coord3D
	Face   int
	UV     model3d.Coord2D

	tri         *faceTriangle
	barycentric [3]float64
}

// Load reads a mesh and its atlas folder.
//
// The atlas may be empty, in which case vertex colors are used.
func Load(meshPath, atlasDir string) (*Mesh, error) {
	geometry, err := ply.ReadFile(meshPath)
	if err != nil {
		return nil, err
	}
	atlas, err := LoadAtlas(atlasDir, len(geometry.Faces))
	if err != nil {
		return nil, essentials.AddCtx("load atlas", err)
	}
	return NewMesh(geometry, atlas)
}

// NewMesh builds a renderable mesh. The atlas may be nil.
func NewMesh(geometry *ply.Mesh, atlas *Atlas) (*Mesh, error) {
	if len(geometry.Faces) == 0 {
		return nil, errors.New("mesh has no faces")
	}
	m := &Mesh{
		Exposure:   DefaultExposure,
		Gamma:      DefaultGamma,
		Saturation: DefaultSaturation,
		geometry:   geometry,
		atlas:      atlas,
		tris:       map[model3d.Triangle]*faceTriangle{},
	}
	var tris []*model3d.Triangle
	for i, f := range geometry.Faces {
		corners := faceCorners(len(f))
		for j := 1; j+1 < len(f); j++ {
			t := &model3d.Triangle{
				geometry.Vertices[f[0]],
				geometry.Vertices[f[j]],
				geometry.Vertices[f[j+1]],
			}
			if t.Area() == 0 {
				continue
			}
			tris = append(tris, t)
			m.tris[*t] = &faceTriangle{
				Face:     i,
				Vertices: [3]int{f[0], f[j], f[j+1]},
				UV:       [3]model3d.Coord2D{corners[0], corners[j], corners[j+1]},
			}
		}
	}
	if len(tris) == 0 {
		return nil, errors.New("mesh has only degenerate faces")
	}
	m.collider = model3d.MeshToCollider(model3d.NewMeshTriangles(tris))
	return m, nil
}

// faceCorners gets the local tile coordinates of each polygon corner.
// Quads span the full tile; other polygons are inscribed in it.
func faceCorners(n int) []model3d.Coord2D {
	if n == 4 {
		return []model3d.Coord2D{
			model2d.XY(0, 0),
			model2d.XY(1, 0),
			model2d.XY(1, 1),
			model2d.XY(0, 1),
		}
	}
	res := make([]model3d.Coord2D, n)
	for i := range res {
		theta := 2 * math.Pi * float64(i) / float64(n)
		res[i] = model2d.XY(0.5+0.5*math.Cos(theta), 0.5+0.5*math.Sin(theta))
	}
	return res
}

func (m *Mesh) SetExposure(e float64) {
	m.Exposure = e
}

func (m *Mesh) SetGamma(g float64) {
	m.Gamma = g
}

func (m *Mesh) SetSaturation(s float64) {
	m.Saturation = s
}

// Geometry gets the underlying polygon data.
func (m *Mesh) Geometry() *ply.Mesh {
	return m.geometry
}

// Atlas gets the texture atlas, or nil.
func (m *Mesh) Atlas() *Atlas {
	return m.atlas
}

// Min gets the minimum corner of the vertex bounding box.
func (m *Mesh) Min() model3d.Coord3D {
	return m.geometry.Min()
}

// Max gets the maximum corner of the vertex bounding box.
func (m *Mesh) Max() model3d.Coord3D {
	return m.geometry.Max()
}

// Cast finds the first collision of a ray with the mesh whose scale lies
// in [minScale, maxScale].
//
// If cullBack is set, faces whose counter-clockwise side points away from
// the ray origin are ignored.
func (m *Mesh) Cast(ray *model3d.Ray, cullBack bool, minScale, maxScale float64) (Hit, bool) {
	var best model3d.RayCollision
	var bestTri *model3d.Triangle
	found := false
	m.collider.RayCollisions(ray, func(rc model3d.RayCollision) {
		if rc.Scale < minScale || rc.Scale > maxScale {
			return
		}
		if found && rc.Scale >= best.Scale {
			return
		}
		tc, ok := rc.Extra.(*model3d.TriangleCollision)
		if !ok {
			return
		}
		if cullBack && tc.Triangle.Normal().Dot(ray.Direction) >= 0 {
			return
		}
		best = rc
		bestTri = tc.Triangle
		found = true
	})
	if !found {
		return Hit{}, false
	}
	info, ok := m.tris[*bestTri]
	if !ok {
		return Hit{}, false
	}
	bary := best.Extra.(*model3d.TriangleCollision).Barycentric
	var uv model3d.Coord2D
	for i, w := range bary {
		uv = uv.Add(info.UV[i].Scale(w))
	}
	return Hit{
		Scale:       best.Scale,
		Point:       ray.Origin.Add(ray.Direction.Scale(best.Scale)),
		Normal:      bestTri.Normal(),
		Face:        info.Face,
		UV:          uv,
		tri:         info,
		barycentric: bary,
	}, true
}

// Shade computes the linear color of a hit seen along viewDir.
//
// Atlas texels and vertex colors are sRGB values, and HDR texels become
// sRGB values through ToneMap.
func (m *Mesh) Shade(h Hit, viewDir model3d.Coord3D) render3d.Color {
	if m.atlas != nil {
		c := m.atlas.Sample(h.Face, h.UV)
		if m.atlas.HDR {
			c = m.ToneMap(c)
		}
		return srgbToLinear(c)
	}
	if colors := m.geometry.Colors; colors != nil && h.tri != nil {
		return srgbToLinear(m.interpolate(colors, h))
	}
	normal := h.Normal
	if normals := m.geometry.Normals; normals != nil && h.tri != nil {
		if n := m.interpolate(normals, h); n.Norm() > 0 {
			normal = n.Normalize()
		}
	}
	brightness := math.Abs(normal.Dot(viewDir.Normalize()))
	return render3d.NewColor(0.2 + 0.6*brightness)
}

func (m *Mesh) interpolate(values []model3d.Coord3D, h Hit) model3d.Coord3D {
	var res model3d.Coord3D
	for i, w := range h.barycentric {
		res = res.Add(values[h.tri.Vertices[i]].Scale(w))
	}
	return res
}

// ToneMap maps linear radiance to sRGB display values through exposure,
// gamma and saturation.
func (m *Mesh) ToneMap(c render3d.Color) render3d.Color {
	c = c.Scale(m.Exposure)
	invGamma := 1 / m.Gamma
	c = render3d.Color{
		X: math.Pow(math.Max(c.X, 0), invGamma),
		Y: math.Pow(math.Max(c.Y, 0), invGamma),
		Z: math.Pow(math.Max(c.Z, 0), invGamma),
	}
	lum := c.Dot(model3d.XYZ(0.2126, 0.7152, 0.0722))
	gray := render3d.NewColor(lum)
	return render3d.ClampColor(gray.Add(c.Sub(gray).Scale(m.Saturation)))
}

func srgbToLinear(c render3d.Color) render3d.Color {
	c = render3d.ClampColor(c)
	return render3d.NewColorRGB(c.X, c.Y, c.Z)
}
