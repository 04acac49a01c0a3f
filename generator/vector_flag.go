package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
)

// A VectorFlag is a flag.Value holding a finite 3D vector written as
// "x,y,z", e.g. "0.025,0,0" for the default camera step.
type VectorFlag struct {
	Value model3d.Coord3D
}

func (v *VectorFlag) String() string {
	parts := make([]string, 0, 3)
	for _, x := range v.Value.Array() {
		parts = append(parts, strconv.FormatFloat(x, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (v *VectorFlag) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return errors.Errorf("expected x,y,z but got %q", s)
	}
	var res [3]float64
	for i, part := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return errors.Wrapf(err, "component %d of %q", i, s)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return errors.Errorf("component %d of %q is not finite", i, s)
		}
		res[i] = x
	}
	v.Value = model3d.NewCoord3DArray(res)
	return nil
}
