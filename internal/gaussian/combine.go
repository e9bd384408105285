package gaussian

import (
	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/table"
)

// colKey identifies a column by (name, type) for union purposes.
type colKey struct {
	name string
	typ  table.ElemType
}

// Combine merges tables in order, unioning their column sets keyed by
// (name, type) in first-seen order, and concatenating rows. Every input
// must be a recognized Gaussian set (SPEC_FULL.md §4.6).
func Combine(tables []*table.DataTable) (*table.DataTable, error) {
	const op = "gaussian.Combine"
	if len(tables) == 0 {
		return nil, errs.Newf(errs.InvalidArgument, op, "no input tables")
	}
	for i, t := range tables {
		if err := Validate(op, t); err != nil {
			return nil, err
		}
		_ = i
	}
	if len(tables) == 1 {
		return tables[0].Clone(), nil
	}

	// First-seen (name,type) union, preserving order.
	var order []colKey
	seen := make(map[colKey]bool)
	for _, t := range tables {
		for _, c := range t.Columns() {
			k := colKey{c.Name, c.Type}
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}

	totalRows := 0
	for _, t := range tables {
		totalRows += t.RowCount()
	}

	out := make([]*table.Column, len(order))
	for i, k := range order {
		out[i] = table.NewColumn(k.name, k.typ, totalRows)
	}

	rowOffset := 0
	for _, t := range tables {
		n := t.RowCount()
		for ci, k := range order {
			src := t.Column(k.name)
			if src == nil || src.Type != k.typ {
				continue // absent from this input: left at the zero default
			}
			copyRange(out[ci], src, rowOffset, n)
		}
		rowOffset += n
	}

	result, err := table.New(out...)
	if err != nil {
		return nil, errs.New(errs.IoFailure, op, err)
	}
	return result, nil
}

// copyRange copies src[0:n] into dst[dstOffset:dstOffset+n].
func copyRange(dst, src *table.Column, dstOffset, n int) {
	for i := 0; i < n; i++ {
		v := src.At(i)
		dst.SetAt(dstOffset+i, v)
	}
}
