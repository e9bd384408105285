package table

import "fmt"

// DataTable is an ordered sequence of Columns sharing one row count. It is
// the canonical in-memory model every reader, transform, and writer in
// this repository operates on (SPEC_FULL.md §3).
type DataTable struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table from columns, all of which must share the same row
// count. At least one column is required.
func New(columns ...*Column) (*DataTable, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table: at least one column is required")
	}
	t := &DataTable{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    columns[0].Len(),
	}
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// RowCount returns N, the shared row count.
func (t *DataTable) RowCount() int { return t.rows }

// NumColumns returns the number of columns.
func (t *DataTable) NumColumns() int { return len(t.columns) }

// Columns returns the columns in insertion order. Callers must not mutate
// the returned slice's backing array composition (appending is fine;
// replacing elements is not).
func (t *DataTable) Columns() []*Column { return t.columns }

// ColumnNames returns column names in insertion order.
func (t *DataTable) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name, or returns nil.
func (t *DataTable) Column(name string) *Column {
	if i, ok := t.index[name]; ok {
		return t.columns[i]
	}
	return nil
}

// HasColumn reports whether a named column exists.
func (t *DataTable) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn appends a column, enforcing the row-count and unique-name
// invariants.
func (t *DataTable) AddColumn(c *Column) error {
	if _, exists := t.index[c.Name]; exists {
		return fmt.Errorf("table: duplicate column %q", c.Name)
	}
	if len(t.columns) > 0 && c.Len() != t.rows {
		return fmt.Errorf("table: column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
	}
	if len(t.columns) == 0 {
		t.rows = c.Len()
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// RemoveColumn drops a column by name. It is a no-op if the column is
// absent.
func (t *DataTable) RemoveColumn(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	delete(t.index, name)
	for j := i; j < len(t.columns); j++ {
		t.index[t.columns[j].Name] = j
	}
}

// Clone deep-copies the table.
func (t *DataTable) Clone() *DataTable {
	out := &DataTable{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.columns)),
		rows:    t.rows,
	}
	for i, c := range t.columns {
		out.columns[i] = c.Clone()
		out.index[c.Name] = i
	}
	return out
}

// Permute returns a new table whose row j copies source row indices[j],
// preserving column types.
func (t *DataTable) Permute(indices []int) *DataTable {
	out := &DataTable{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.columns)),
		rows:    len(indices),
	}
	for ci, c := range t.columns {
		nc := NewColumn(c.Name, c.Type, len(indices))
		for j, srcIdx := range indices {
			copyElem(nc, c, j, srcIdx)
		}
		out.columns[ci] = nc
		out.index[c.Name] = ci
	}
	return out
}

// copyElem copies src[srcIdx] into dst[dstIdx] without float round-tripping,
// preserving exact bit patterns for every permitted type.
func copyElem(dst, src *Column, dstIdx, srcIdx int) {
	switch src.Type {
	case I8:
		dst.I8[dstIdx] = src.I8[srcIdx]
	case U8:
		dst.U8[dstIdx] = src.U8[srcIdx]
	case I16:
		dst.I16[dstIdx] = src.I16[srcIdx]
	case U16:
		dst.U16[dstIdx] = src.U16[srcIdx]
	case I32:
		dst.I32[dstIdx] = src.I32[srcIdx]
	case U32:
		dst.U32[dstIdx] = src.U32[srcIdx]
	case F32:
		dst.F32[dstIdx] = src.F32[srcIdx]
	case F64:
		dst.F64[dstIdx] = src.F64[srcIdx]
	}
}

// RowPredicate decides whether to keep row i, given row-dictionary access
// to the table.
type RowPredicate func(t *DataTable, i int) bool

// Filter returns a new table containing only rows for which pred returns
// true. Column arrays are shared with the source only when no rows are
// dropped; otherwise new arrays are allocated (SPEC_FULL.md §4.5).
func (t *DataTable) Filter(pred RowPredicate) *DataTable {
	keep := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if pred(t, i) {
			keep = append(keep, i)
		}
	}
	if len(keep) == t.rows {
		return t.shallowCopy()
	}
	return t.Permute(keep)
}

// shallowCopy copies the column list (not the underlying arrays).
func (t *DataTable) shallowCopy() *DataTable {
	out := &DataTable{
		columns: append([]*Column(nil), t.columns...),
		index:   make(map[string]int, len(t.columns)),
		rows:    t.rows,
	}
	for i, c := range out.columns {
		out.index[c.Name] = i
	}
	return out
}

// Row returns row i as a name->value dictionary.
func (t *DataTable) Row(i int) map[string]float64 {
	row := make(map[string]float64, len(t.columns))
	for _, c := range t.columns {
		row[c.Name] = c.At(i)
	}
	return row
}

// SetRow writes a name->value dictionary into row i. Columns absent from
// row are left unchanged.
func (t *DataTable) SetRow(i int, row map[string]float64) {
	for name, v := range row {
		if c := t.Column(name); c != nil {
			c.SetAt(i, v)
		}
	}
}
