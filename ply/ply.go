// Package ply reads polygon meshes stored in the PLY format.
//
// Both ASCII and binary encodings are supported. Only the vertex and face
// elements are interpreted; other elements are parsed and skipped.
package ply

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
)

// Format is the encoding of a PLY body.
type Format int

const (
	ASCII Format = iota
	BinaryLittleEndian
	BinaryBigEndian
)

// A Mesh is the vertex and face data of a PLY file.
//
// Faces keep their original arity, so quad meshes stay quads.
type Mesh struct {
	Vertices []model3d.Coord3D

	// Normals is nil if the file has no nx/ny/nz properties.
	Normals []model3d.Coord3D

	// Colors is nil if the file has no red/green/blue properties.
	// Values are sRGB, scaled to [0, 1].
	Colors []model3d.Coord3D

	Faces [][]int
}

// Read decodes a PLY mesh from r.
func Read(r io.Reader) (*Mesh, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	var src valueSource
	switch h.Format {
	case ASCII:
		src = &asciiSource{r: br}
	case BinaryLittleEndian:
		src = &binarySource{r: br, order: binary.LittleEndian}
	case BinaryBigEndian:
		src = &binarySource{r: br, order: binary.BigEndian}
	}

	res := &Mesh{}
	for _, elem := range h.Elements {
		switch elem.Name {
		case "vertex":
			err = readVertices(src, elem, res)
		case "face":
			err = readFaces(src, elem, res)
		default:
			err = skipElement(src, elem)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s element", elem.Name)
		}
	}
	for i, f := range res.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(res.Vertices) {
				return nil, errors.Errorf("face %d: vertex index %d out of range", i, idx)
			}
		}
	}
	return res, nil
}

// ReadFile decodes a PLY mesh from a file.
func ReadFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Read(f)
	return m, essentials.AddCtx(path, err)
}

// Min gets the minimum corner of the vertex bounding box.
func (m *Mesh) Min() model3d.Coord3D {
	if len(m.Vertices) == 0 {
		return model3d.Coord3D{}
	}
	res := m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		res = res.Min(v)
	}
	return res
}

// Max gets the maximum corner of the vertex bounding box.
func (m *Mesh) Max() model3d.Coord3D {
	if len(m.Vertices) == 0 {
		return model3d.Coord3D{}
	}
	res := m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		res = res.Max(v)
	}
	return res
}

func readVertices(src valueSource, elem *element, m *Mesh) error {
	idx := map[string]int{}
	for i, p := range elem.Properties {
		if p.IsList {
			return errors.Errorf("unexpected list property %s", p.Name)
		}
		idx[p.Name] = i
	}
	for _, name := range []string{"x", "y", "z"} {
		if _, ok := idx[name]; !ok {
			return errors.Errorf("missing %s property", name)
		}
	}
	_, hasNormals := idx["nx"]
	_, hasColors := idx["red"]
	if hasNormals {
		m.Normals = make([]model3d.Coord3D, 0, elem.Count)
	}
	if hasColors {
		m.Colors = make([]model3d.Coord3D, 0, elem.Count)
	}
	m.Vertices = make([]model3d.Coord3D, 0, elem.Count)

	values := make([]float64, len(elem.Properties))
	for i := 0; i < elem.Count; i++ {
		for j, p := range elem.Properties {
			v, err := src.Scalar(p.Type)
			if err != nil {
				return errors.Wrapf(err, "vertex %d", i)
			}
			values[j] = v
		}
		get := func(name string) float64 {
			j, ok := idx[name]
			if !ok {
				return 0
			}
			return values[j]
		}
		m.Vertices = append(m.Vertices, model3d.XYZ(get("x"), get("y"), get("z")))
		if hasNormals {
			m.Normals = append(m.Normals, model3d.XYZ(get("nx"), get("ny"), get("nz")))
		}
		if hasColors {
			scale := 1.0
			if t := elem.Properties[idx["red"]].Type; !t.isFloat() {
				scale = 1 / float64(t.maxValue())
			}
			m.Colors = append(m.Colors, model3d.XYZ(get("red"), get("green"), get("blue")).Scale(scale))
		}
	}
	return nil
}

func readFaces(src valueSource, elem *element, m *Mesh) error {
	listIdx := -1
	for i, p := range elem.Properties {
		if p.IsList && (p.Name == "vertex_indices" || p.Name == "vertex_index") {
			listIdx = i
		}
	}
	if listIdx == -1 {
		return errors.New("missing vertex_indices property")
	}
	m.Faces = make([][]int, 0, elem.Count)
	for i := 0; i < elem.Count; i++ {
		for j, p := range elem.Properties {
			if !p.IsList {
				if _, err := src.Scalar(p.Type); err != nil {
					return errors.Wrapf(err, "face %d", i)
				}
				continue
			}
			n, err := src.Scalar(p.CountType)
			if err != nil {
				return errors.Wrapf(err, "face %d", i)
			} else if n < 0 {
				return errors.Errorf("face %d: negative list length", i)
			}
			list := make([]int, int(n))
			for k := range list {
				v, err := src.Scalar(p.Type)
				if err != nil {
					return errors.Wrapf(err, "face %d", i)
				}
				list[k] = int(v)
			}
			if j == listIdx {
				if len(list) < 3 {
					return errors.Errorf("face %d has %d vertices", i, len(list))
				}
				m.Faces = append(m.Faces, list)
			}
		}
	}
	return nil
}

func skipElement(src valueSource, elem *element) error {
	for i := 0; i < elem.Count; i++ {
		for _, p := range elem.Properties {
			n := 1.0
			if p.IsList {
				var err error
				n, err = src.Scalar(p.CountType)
				if err != nil {
					return err
				}
			}
			for k := 0; k < int(n); k++ {
				if _, err := src.Scalar(p.Type); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

type valueSource interface {
	Scalar(t scalarType) (float64, error)
}

type asciiSource struct {
	r      *bufio.Reader
	fields []string
}

func (a *asciiSource) Scalar(t scalarType) (float64, error) {
	for len(a.fields) == 0 {
		line, err := a.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		a.fields = strings.Fields(line)
	}
	field := a.fields[0]
	a.fields = a.fields[1:]
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s value", t)
	}
	return v, nil
}

type binarySource struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binarySource) Scalar(t scalarType) (float64, error) {
	data := b.buf[:t.size()]
	if _, err := io.ReadFull(b.r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	switch t {
	case typeInt8:
		return float64(int8(data[0])), nil
	case typeUint8:
		return float64(data[0]), nil
	case typeInt16:
		return float64(int16(b.order.Uint16(data))), nil
	case typeUint16:
		return float64(b.order.Uint16(data)), nil
	case typeInt32:
		return float64(int32(b.order.Uint32(data))), nil
	case typeUint32:
		return float64(b.order.Uint32(data)), nil
	case typeFloat32:
		return float64(math.Float32frombits(b.order.Uint32(data))), nil
	default:
		return math.Float64frombits(b.order.Uint64(data)), nil
	}
}
