// Package mirror composites planar reflective surfaces into rendered frames.
package mirror

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
)

// A Surface is a planar reflective polygon.
type Surface struct {
	// Normal is the unit plane normal; points p on the plane satisfy
	// Normal.Dot(p) + Offset == 0.
	Normal model3d.Coord3D
	Offset float64

	// Points is the polygon outline, projected onto the plane.
	Points []model3d.Coord3D

	// Reflectivity is the blend weight of the reflection, in [0, 1].
	Reflectivity float64

	collider model3d.Collider
}

type jsonSurface struct {
	Equation     []float64   `json:"equation"`
	Points       [][]float64 `json:"points"`
	Reflectivity *float64    `json:"reflectivity"`
}

// ReadSurfaces decodes a JSON array of surface descriptors.
func ReadSurfaces(r io.Reader) ([]*Surface, error) {
	var raw []jsonSurface
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode surfaces")
	}
	res := make([]*Surface, len(raw))
	for i, js := range raw {
		s, err := newSurface(js)
		if err != nil {
			return nil, errors.Wrapf(err, "surface %d", i)
		}
		res[i] = s
	}
	return res, nil
}

// ReadSurfacesFile decodes a surface file such as glass.sur.
func ReadSurfacesFile(path string) ([]*Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	res, err := ReadSurfaces(f)
	return res, essentials.AddCtx(path, err)
}

// NewSurface creates a surface from a plane equation (a, b, c, d) and the
// corners of its outline.
func NewSurface(equation [4]float64, points []model3d.Coord3D, reflectivity float64) (*Surface, error) {
	normal := model3d.XYZ(equation[0], equation[1], equation[2])
	norm := normal.Norm()
	if norm == 0 {
		return nil, errors.New("plane normal is zero")
	}
	if len(points) < 3 {
		return nil, errors.Errorf("need at least 3 points, got %d", len(points))
	}
	if reflectivity < 0 || reflectivity > 1 {
		return nil, errors.Errorf("reflectivity %f out of range", reflectivity)
	}
	s := &Surface{
		Normal:       normal.Scale(1 / norm),
		Offset:       equation[3] / norm,
		Reflectivity: reflectivity,
	}
	for _, p := range points {
		s.Points = append(s.Points, s.project(p))
	}
	var tris []*model3d.Triangle
	for i := 1; i+1 < len(s.Points); i++ {
		t := &model3d.Triangle{s.Points[0], s.Points[i], s.Points[i+1]}
		if t.Area() > 0 {
			tris = append(tris, t)
		}
	}
	if len(tris) == 0 {
		return nil, errors.New("outline has no area")
	}
	s.collider = model3d.MeshToCollider(model3d.NewMeshTriangles(tris))
	return s, nil
}

func newSurface(js jsonSurface) (*Surface, error) {
	if len(js.Equation) != 4 {
		return nil, errors.Errorf("equation needs 4 values, got %d", len(js.Equation))
	}
	points := make([]model3d.Coord3D, len(js.Points))
	for i, p := range js.Points {
		if len(p) != 3 {
			return nil, errors.Errorf("point %d needs 3 values, got %d", i, len(p))
		}
		points[i] = model3d.XYZ(p[0], p[1], p[2])
	}
	reflectivity := 1.0
	if js.Reflectivity != nil {
		reflectivity = *js.Reflectivity
	}
	var eq [4]float64
	copy(eq[:], js.Equation)
	return NewSurface(eq, points, reflectivity)
}

// SignedDistance gets the distance of p from the plane, positive on the
// side the normal points to.
func (s *Surface) SignedDistance(p model3d.Coord3D) float64 {
	return s.Normal.Dot(p) + s.Offset
}

// Reflect mirrors a point across the plane.
func (s *Surface) Reflect(p model3d.Coord3D) model3d.Coord3D {
	return p.Sub(s.Normal.Scale(2 * s.SignedDistance(p)))
}

// ReflectDirection mirrors a direction vector across the plane.
func (s *Surface) ReflectDirection(d model3d.Coord3D) model3d.Coord3D {
	return d.Sub(s.Normal.Scale(2 * s.Normal.Dot(d)))
}

// Intersect finds where a ray crosses the mirror outline, from either side.
// The scale is in units of the ray direction.
func (s *Surface) Intersect(ray *model3d.Ray) (scale float64, ok bool) {
	rc, ok := s.collider.FirstRayCollision(ray)
	if !ok {
		return 0, false
	}
	return rc.Scale, true
}

func (s *Surface) project(p model3d.Coord3D) model3d.Coord3D {
	return p.Sub(s.Normal.Scale(s.SignedDistance(p)))
}
