package csv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gsplat/splat-transform/internal/table"
)

func buildMixedTable(t *testing.T) *table.DataTable {
	t.Helper()
	x := table.NewF32Column("x", []float32{1.5, -2.25, 3})
	count := table.NewColumn("count", table.I32, 3)
	count.I32[0], count.I32[1], count.I32[2] = 10, -5, 0
	dt, err := table.New(x, count)
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	return dt
}

func TestWriteHeaderAndRows(t *testing.T) {
	dt := buildMixedTable(t)
	var buf bytes.Buffer
	if err := Write(&buf, dt); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines: %q", len(lines), buf.String())
	}
	if lines[0] != "x,count" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "1.5") || !strings.Contains(lines[1], "10") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	dt := buildMixedTable(t)
	var buf bytes.Buffer
	if err := Write(&buf, dt); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if back.RowCount() != 3 {
		t.Fatalf("expected 3 rows, got %d", back.RowCount())
	}
	if back.Column("x").F64[0] != 1.5 {
		t.Fatalf("expected 1.5, got %v", back.Column("x").F64[0])
	}
	if back.Column("count").F64[1] != -5 {
		t.Fatalf("expected -5, got %v", back.Column("count").F64[1])
	}
}

func TestReadRejectsEmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected error for file with no header row")
	}
}
