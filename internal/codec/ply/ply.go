// Package ply implements the standard PLY reader/writer (SPEC_FULL.md
// §4.7): a 128 KiB-bounded ASCII header terminated by "end_header\n",
// binary_little_endian bodies only, row-interleaved property layout, with
// comments preserved across read/write.
package ply

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/table"
)

const maxHeaderSize = 128 * 1024

// Table is a parsed PLY file: the column data plus any preserved comments.
type Table struct {
	Data     *table.DataTable
	Comments []string
}

type property struct {
	name string
	typ  table.ElemType
}

// Read parses a binary_little_endian PLY stream.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	header, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(header, "ply\n") {
		return nil, errs.New(errs.MalformedInput, "ply.read", fmt.Errorf("missing ply magic"))
	}

	var comments []string
	var props []property
	var rowCount int
	sawFormat := false

	for _, line := range strings.Split(header, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || line == "ply" || line == "end_header":
			continue
		case strings.HasPrefix(line, "format "):
			if !strings.Contains(line, "binary_little_endian") {
				return nil, errs.Newf(errs.UnsupportedFormat, "ply.read", "unsupported PLY format line %q", line)
			}
			sawFormat = true
		case strings.HasPrefix(line, "comment "):
			comments = append(comments, strings.TrimPrefix(line, "comment "))
		case strings.HasPrefix(line, "element "):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nil, errs.Newf(errs.MalformedInput, "ply.read", "malformed element line %q", line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, errs.New(errs.MalformedInput, "ply.read", err)
			}
			rowCount = n
		case strings.HasPrefix(line, "property "):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nil, errs.Newf(errs.MalformedInput, "ply.read", "malformed property line %q", line)
			}
			et, ok := table.ElemTypeFromPLYName(fields[1])
			if !ok {
				return nil, errs.Newf(errs.MalformedInput, "ply.read", "unknown property type %q", fields[1])
			}
			props = append(props, property{name: fields[2], typ: et})
		}
	}
	if !sawFormat {
		return nil, errs.New(errs.MalformedInput, "ply.read", fmt.Errorf("missing format line"))
	}

	cols := make([]*table.Column, len(props))
	for i, p := range props {
		cols[i] = table.NewColumn(p.name, p.typ, rowCount)
	}

	for row := 0; row < rowCount; row++ {
		for _, c := range cols {
			if err := readScalar(br, c, row); err != nil {
				return nil, errs.New(errs.MalformedInput, "ply.read", err)
			}
		}
	}

	dt, err := table.New(cols...)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "ply.read", err)
	}
	return &Table{Data: dt, Comments: comments}, nil
}

// readHeader reads bytes up to and including "end_header\n", bounded to
// maxHeaderSize.
func readHeader(br *bufio.Reader) (string, error) {
	var buf bytes.Buffer
	const marker = "end_header\n"
	for buf.Len() < maxHeaderSize {
		b, err := br.ReadByte()
		if err != nil {
			return "", errs.New(errs.MalformedInput, "ply.read", fmt.Errorf("short header: %w", err))
		}
		buf.WriteByte(b)
		if buf.Len() >= len(marker) && bytes.HasSuffix(buf.Bytes(), []byte(marker)) {
			return buf.String(), nil
		}
	}
	return "", errs.New(errs.MalformedInput, "ply.read", fmt.Errorf("header exceeds %d bytes without end_header", maxHeaderSize))
}

func readScalar(r io.Reader, c *table.Column, row int) error {
	switch c.Type {
	case table.I8:
		var v int8
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.I8[row] = v
	case table.U8:
		var v uint8
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.U8[row] = v
	case table.I16:
		var v int16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.I16[row] = v
	case table.U16:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.U16[row] = v
	case table.I32:
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.I32[row] = v
	case table.U32:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.U32[row] = v
	case table.F32:
		var v float32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.F32[row] = v
	case table.F64:
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		c.F64[row] = v
	}
	return nil
}

func writeScalar(w io.Writer, c *table.Column, row int) error {
	switch c.Type {
	case table.I8:
		return binary.Write(w, binary.LittleEndian, c.I8[row])
	case table.U8:
		return binary.Write(w, binary.LittleEndian, c.U8[row])
	case table.I16:
		return binary.Write(w, binary.LittleEndian, c.I16[row])
	case table.U16:
		return binary.Write(w, binary.LittleEndian, c.U16[row])
	case table.I32:
		return binary.Write(w, binary.LittleEndian, c.I32[row])
	case table.U32:
		return binary.Write(w, binary.LittleEndian, c.U32[row])
	case table.F32:
		return binary.Write(w, binary.LittleEndian, c.F32[row])
	case table.F64:
		return binary.Write(w, binary.LittleEndian, c.F64[row])
	}
	return nil
}

// Write emits a binary_little_endian PLY: header, then the row-interleaved
// body, walked in 1024-row blocks. All output goes through a single
// bufio.Writer that is flushed once at the end.
func Write(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	dt := t.Data

	bw.WriteString("ply\n")
	bw.WriteString("format binary_little_endian 1.0\n")
	for _, c := range t.Comments {
		fmt.Fprintf(bw, "comment %s\n", c)
	}
	fmt.Fprintf(bw, "element vertex %d\n", dt.RowCount())
	for _, c := range dt.Columns() {
		fmt.Fprintf(bw, "property %s %s\n", c.Type, c.Name)
	}
	bw.WriteString("end_header\n")

	const chunkRows = 1024
	cols := dt.Columns()
	for start := 0; start < dt.RowCount(); start += chunkRows {
		end := start + chunkRows
		if end > dt.RowCount() {
			end = dt.RowCount()
		}
		for row := start; row < end; row++ {
			for _, c := range cols {
				if err := writeScalar(bw, c, row); err != nil {
					return errs.New(errs.IoFailure, "ply.write", err)
				}
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return errs.New(errs.IoFailure, "ply.write", err)
	}
	return nil
}
