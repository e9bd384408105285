// Package csv reads and writes the plain-text tabular format
// (SPEC_FULL.md §4.11): a header row naming every column followed by one
// row per splat, written with the column's declared element type
// preserved in text form.
package csv

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/table"
)

// Write emits t as CSV: a header row of column names, then one row per
// splat with values formatted per column type (integers via FormatInt/
// FormatUint, floats via FormatFloat with -1 precision for full fidelity).
func Write(w io.Writer, t *table.DataTable) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return errs.New(errs.IoFailure, "csv.write", err)
	}

	row := make([]string, len(cols))
	for r := 0; r < t.RowCount(); r++ {
		for i, c := range cols {
			row[i] = formatValue(c, r)
		}
		if err := cw.Write(row); err != nil {
			return errs.New(errs.IoFailure, "csv.write", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errs.New(errs.IoFailure, "csv.write", err)
	}
	return nil
}

func formatValue(c *table.Column, row int) string {
	switch c.Type {
	case table.I8, table.I16, table.I32:
		return strconv.FormatInt(int64(c.At(row)), 10)
	case table.U8, table.U16, table.U32:
		return strconv.FormatUint(uint64(c.At(row)), 10)
	default:
		return strconv.FormatFloat(c.At(row), 'g', -1, 64)
	}
}

// Read parses a CSV stream back into a DataTable. Every column is decoded
// as F64 since CSV carries no type information of its own; downstream
// consumers that need narrower types should cast explicitly.
func Read(r io.Reader) (*table.DataTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errs.New(errs.MalformedInput, "csv.read", errEmptyFile)
	}
	if err != nil {
		return nil, errs.New(errs.MalformedInput, "csv.read", err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.New(errs.MalformedInput, "csv.read", err)
		}
		rows = append(rows, rec)
	}

	n := len(rows)
	cols := make([]*table.Column, len(header))
	for i, name := range header {
		cols[i] = table.NewColumn(name, table.F64, n)
	}
	for r, rec := range rows {
		for i := range header {
			if i >= len(rec) {
				continue
			}
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, errs.Newf(errs.MalformedInput, "csv.read", "row %d column %q: %v", r, header[i], err)
			}
			cols[i].F64[r] = v
		}
	}

	dt, err := table.New(cols...)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "csv.read", err)
	}
	return dt, nil
}

type emptyFileErr string

func (e emptyFileErr) Error() string { return string(e) }

const errEmptyFile = emptyFileErr("csv: file has no header row")
