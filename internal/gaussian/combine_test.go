package gaussian

import (
	"testing"

	"github.com/gsplat/splat-transform/internal/table"
)

func TestCombineIdentity(t *testing.T) {
	a := minimalSet(2, 0)
	a.Column("x").F32[0] = 1
	out, err := Combine([]*table.DataTable{a})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if out.RowCount() != a.RowCount() {
		t.Fatalf("RowCount() = %d, want %d", out.RowCount(), a.RowCount())
	}
	if out.Column("x").F32[0] != 1 {
		t.Fatal("combine of a single table should preserve values")
	}
}

func TestCombineUnion(t *testing.T) {
	a := minimalSet(1, 0)
	b := minimalSet(1, 1) // carries extra f_rest_* columns A lacks

	a.Column("x").F32[0] = 10
	b.Column("x").F32[0] = 20

	out, err := Combine([]*table.DataTable{a, b})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if out.RowCount() != 2 {
		t.Fatalf("RowCount() = %d, want 2", out.RowCount())
	}
	if out.Column("x").F32[0] != 10 || out.Column("x").F32[1] != 20 {
		t.Fatalf("row order not preserved: %v", out.Column("x").F32)
	}
	// f_rest_* from B must be present; row 0 (from A) defaults to zero.
	if !out.HasColumn("f_rest_0") {
		t.Fatal("union should include B's f_rest_0 column")
	}
	if out.Column("f_rest_0").F32[0] != 0 {
		t.Fatal("row from A should default f_rest_0 to zero")
	}
}

func TestCombineRejectsNonGaussian(t *testing.T) {
	a := minimalSet(1, 0)
	a.RemoveColumn("opacity")
	if _, err := Combine([]*table.DataTable{a}); err == nil {
		t.Fatal("combine should reject a table missing required columns")
	}
}
