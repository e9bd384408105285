package generator

import (
	"testing"

	"github.com/gsplat/splat-transform/internal/errs"
)

func TestResolveUnknownGenerator(t *testing.T) {
	r := Registry{}
	_, err := r.Resolve("cube")
	if err == nil {
		t.Fatal("expected error for unregistered generator")
	}
	if kind, ok := errs.KindOf(err); !ok || kind != errs.UnsupportedFormat {
		t.Fatalf("expected UnsupportedFormat, got %v", err)
	}
}

type constantAdapter struct{ row Row }

func (a constantAdapter) Generate(params map[string]string, count int) (RowSource, error) {
	rows := make([]Row, count)
	for i := range rows {
		rows[i] = a.row
	}
	return NewSliceSource(rows), nil
}

func TestSliceSourceExhausts(t *testing.T) {
	r := Registry{"cube": constantAdapter{row: Row{"x": 1}}}
	adapter, err := r.Resolve("cube")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	src, err := adapter.Generate(nil, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	count := 0
	for {
		_, ok := src.Next()
		if !ok {
			break
		}
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}
}
