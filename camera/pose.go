package camera

import (
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/mat"
)

// LookAtRDF creates a world-to-camera transform for a camera at eye looking
// at target, with the image y axis pointing opposite to up.
func LookAtRDF(eye, target, up model3d.Coord3D) *mat.Dense {
	z := target.Sub(eye).Normalize()
	x := z.Cross(up).Normalize()
	y := z.Cross(x).Normalize()
	t := model3d.XYZ(-x.Dot(eye), -y.Dot(eye), -z.Dot(eye))
	return mat.NewDense(4, 4, []float64{
		x.X, x.Y, x.Z, t.X,
		y.X, y.Y, y.Z, t.Y,
		z.X, z.Y, z.Z, t.Z,
		0, 0, 0, 1,
	})
}

// Translation creates a homogeneous translation matrix.
func Translation(t model3d.Coord3D) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, t.X,
		0, 1, 0, t.Y,
		0, 0, 1, t.Z,
		0, 0, 0, 1,
	})
}

// Compose computes the product a*b.
func Compose(a, b mat.Matrix) *mat.Dense {
	var res mat.Dense
	res.Mul(a, b)
	return &res
}

// InvertRigid inverts a rotation-plus-translation transform without a
// general matrix inverse.
func InvertRigid(m mat.Matrix) *mat.Dense {
	res := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			res.Set(i, j, m.At(j, i))
		}
	}
	for i := 0; i < 3; i++ {
		var s float64
		for j := 0; j < 3; j++ {
			s -= m.At(j, i) * m.At(j, 3)
		}
		res.Set(i, 3, s)
	}
	res.Set(3, 3, 1)
	return res
}

// RowMajor flattens a 4x4 matrix.
func RowMajor(m mat.Matrix) []float64 {
	res := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			res = append(res, m.At(i, j))
		}
	}
	return res
}
