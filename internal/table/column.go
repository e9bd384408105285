// Package table implements the columnar DataTable shared by every reader,
// writer, and transform in the pipeline (SPEC_FULL.md §3).
package table

import "fmt"

// ElemType names one of the eight permitted column element types.
type ElemType int

const (
	I8 ElemType = iota
	U8
	I16
	U16
	I32
	U32
	F32
	F64
)

// String names the type the way PLY property declarations spell it.
func (t ElemType) String() string {
	switch t {
	case I8:
		return "char"
	case U8:
		return "uchar"
	case I16:
		return "short"
	case U16:
		return "ushort"
	case I32:
		return "int"
	case U32:
		return "uint"
	case F32:
		return "float"
	case F64:
		return "double"
	default:
		return "unknown"
	}
}

// Size returns the element's width in bytes.
func (t ElemType) Size() int {
	switch t {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case F64:
		return 8
	default:
		return 0
	}
}

// ElemTypeFromPLYName maps a PLY property type keyword to an ElemType.
func ElemTypeFromPLYName(name string) (ElemType, bool) {
	switch name {
	case "char", "int8":
		return I8, true
	case "uchar", "uint8":
		return U8, true
	case "short", "int16":
		return I16, true
	case "ushort", "uint16":
		return U16, true
	case "int", "int32":
		return I32, true
	case "uint", "uint32":
		return U32, true
	case "float", "float32":
		return F32, true
	case "double", "float64":
		return F64, true
	default:
		return 0, false
	}
}

// Column is a named, typed, densely-packed one-dimensional array. Exactly
// one of the typed slices is populated, selected by Type; the others are
// nil. This mirrors a tagged union without runtime reflection, per
// SPEC_FULL.md's "columnar polymorphism" design note.
type Column struct {
	Name string
	Type ElemType

	I8  []int8
	U8  []uint8
	I16 []int16
	U16 []uint16
	I32 []int32
	U32 []uint32
	F32 []float32
	F64 []float64
}

// NewColumn allocates a zeroed column of the given type and length.
func NewColumn(name string, t ElemType, n int) *Column {
	c := &Column{Name: name, Type: t}
	switch t {
	case I8:
		c.I8 = make([]int8, n)
	case U8:
		c.U8 = make([]uint8, n)
	case I16:
		c.I16 = make([]int16, n)
	case U16:
		c.U16 = make([]uint16, n)
	case I32:
		c.I32 = make([]int32, n)
	case U32:
		c.U32 = make([]uint32, n)
	case F32:
		c.F32 = make([]float32, n)
	case F64:
		c.F64 = make([]float64, n)
	}
	return c
}

// NewF32Column allocates an F32 column from existing data without copying.
func NewF32Column(name string, data []float32) *Column {
	return &Column{Name: name, Type: F32, F32: data}
}

// Len returns the column's row count.
func (c *Column) Len() int {
	switch c.Type {
	case I8:
		return len(c.I8)
	case U8:
		return len(c.U8)
	case I16:
		return len(c.I16)
	case U16:
		return len(c.U16)
	case I32:
		return len(c.I32)
	case U32:
		return len(c.U32)
	case F32:
		return len(c.F32)
	case F64:
		return len(c.F64)
	default:
		return 0
	}
}

// Clone deep-copies the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Type: c.Type}
	switch c.Type {
	case I8:
		out.I8 = append([]int8(nil), c.I8...)
	case U8:
		out.U8 = append([]uint8(nil), c.U8...)
	case I16:
		out.I16 = append([]int16(nil), c.I16...)
	case U16:
		out.U16 = append([]uint16(nil), c.U16...)
	case I32:
		out.I32 = append([]int32(nil), c.I32...)
	case U32:
		out.U32 = append([]uint32(nil), c.U32...)
	case F32:
		out.F32 = append([]float32(nil), c.F32...)
	case F64:
		out.F64 = append([]float64(nil), c.F64...)
	}
	return out
}

// At returns row i as a float64, widening from the native type. This is
// the generic "apply by row index" path; writers needing a fast path read
// the typed slice directly instead.
func (c *Column) At(i int) float64 {
	switch c.Type {
	case I8:
		return float64(c.I8[i])
	case U8:
		return float64(c.U8[i])
	case I16:
		return float64(c.I16[i])
	case U16:
		return float64(c.U16[i])
	case I32:
		return float64(c.I32[i])
	case U32:
		return float64(c.U32[i])
	case F32:
		return float64(c.F32[i])
	case F64:
		return c.F64[i]
	default:
		return 0
	}
}

// SetAt narrows a float64 into row i's native type.
func (c *Column) SetAt(i int, v float64) {
	switch c.Type {
	case I8:
		c.I8[i] = int8(v)
	case U8:
		c.U8[i] = uint8(v)
	case I16:
		c.I16[i] = int16(v)
	case U16:
		c.U16[i] = uint16(v)
	case I32:
		c.I32[i] = int32(v)
	case U32:
		c.U32[i] = uint32(v)
	case F32:
		c.F32[i] = float32(v)
	case F64:
		c.F64[i] = v
	}
}

// Matches reports whether two columns share (name, type).
func (c *Column) Matches(o *Column) bool {
	return c.Name == o.Name && c.Type == o.Type
}

func (c *Column) String() string {
	return fmt.Sprintf("%s:%s[%d]", c.Name, c.Type, c.Len())
}
