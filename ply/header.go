package ply

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type scalarType int

const (
	typeInt8 scalarType = iota
	typeUint8
	typeInt16
	typeUint16
	typeInt32
	typeUint32
	typeFloat32
	typeFloat64
)

var scalarTypeNames = map[string]scalarType{
	"char":    typeInt8,
	"int8":    typeInt8,
	"uchar":   typeUint8,
	"uint8":   typeUint8,
	"short":   typeInt16,
	"int16":   typeInt16,
	"ushort":  typeUint16,
	"uint16":  typeUint16,
	"int":     typeInt32,
	"int32":   typeInt32,
	"uint":    typeUint32,
	"uint32":  typeUint32,
	"float":   typeFloat32,
	"float32": typeFloat32,
	"double":  typeFloat64,
	"float64": typeFloat64,
}

func parseScalarType(s string) (scalarType, error) {
	if t, ok := scalarTypeNames[s]; ok {
		return t, nil
	}
	return 0, errors.Errorf("unknown scalar type: %s", s)
}

func (s scalarType) size() int {
	switch s {
	case typeInt8, typeUint8:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeFloat32:
		return 4
	default:
		return 8
	}
}

func (s scalarType) isFloat() bool {
	return s == typeFloat32 || s == typeFloat64
}

func (s scalarType) maxValue() uint64 {
	switch s {
	case typeInt8:
		return 127
	case typeUint8:
		return 255
	case typeInt16:
		return 32767
	case typeUint16:
		return 65535
	case typeInt32:
		return 1<<31 - 1
	default:
		return 1<<32 - 1
	}
}

func (s scalarType) String() string {
	return [...]string{"int8", "uint8", "int16", "uint16", "int32", "uint32",
		"float32", "float64"}[s]
}

type property struct {
	Name      string
	Type      scalarType
	IsList    bool
	CountType scalarType
}

type element struct {
	Name       string
	Count      int
	Properties []*property
}

type header struct {
	Format   Format
	Elements []*element
}

func readHeader(r *bufio.Reader) (*header, error) {
	magic, err := r.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, errors.New("missing ply magic")
	}
	h := &header{}
	var hasFormat bool
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "read header")
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment", "obj_info":
		case "format":
			if len(fields) != 3 {
				return nil, errors.Errorf("invalid format line: %q", line)
			}
			switch fields[1] {
			case "ascii":
				h.Format = ASCII
			case "binary_little_endian":
				h.Format = BinaryLittleEndian
			case "binary_big_endian":
				h.Format = BinaryBigEndian
			default:
				return nil, errors.Errorf("unsupported format: %s", fields[1])
			}
			hasFormat = true
		case "element":
			if len(fields) != 3 {
				return nil, errors.Errorf("invalid element line: %q", line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, errors.Errorf("invalid element count: %s", fields[2])
			}
			h.Elements = append(h.Elements, &element{Name: fields[1], Count: count})
		case "property":
			if len(h.Elements) == 0 {
				return nil, errors.New("property before element")
			}
			p, err := parseProperty(fields)
			if err != nil {
				return nil, err
			}
			elem := h.Elements[len(h.Elements)-1]
			elem.Properties = append(elem.Properties, p)
		case "end_header":
			if !hasFormat {
				return nil, errors.New("missing format line")
			}
			return h, nil
		default:
			return nil, errors.Errorf("unknown header keyword: %s", fields[0])
		}
	}
}

func parseProperty(fields []string) (*property, error) {
	if len(fields) == 5 && fields[1] == "list" {
		countType, err := parseScalarType(fields[2])
		if err != nil {
			return nil, err
		}
		if countType.isFloat() {
			return nil, errors.Errorf("list count type must be an integer: %s", fields[2])
		}
		valueType, err := parseScalarType(fields[3])
		if err != nil {
			return nil, err
		}
		return &property{
			Name:      fields[4],
			Type:      valueType,
			IsList:    true,
			CountType: countType,
		}, nil
	} else if len(fields) == 3 {
		t, err := parseScalarType(fields[1])
		if err != nil {
			return nil, err
		}
		return &property{Name: fields[2], Type: t}, nil
	}
	return nil, errors.Errorf("invalid property line: %s", strings.Join(fields, " "))
}
