package gaussian

import (
	"testing"

	"github.com/gsplat/splat-transform/internal/table"
)

func minimalSet(n int, band int) *table.DataTable {
	cols := []*table.Column{
		table.NewF32Column("x", make([]float32, n)),
		table.NewF32Column("y", make([]float32, n)),
		table.NewF32Column("z", make([]float32, n)),
		table.NewF32Column("scale_0", make([]float32, n)),
		table.NewF32Column("scale_1", make([]float32, n)),
		table.NewF32Column("scale_2", make([]float32, n)),
		table.NewF32Column("rot_0", make([]float32, n)),
		table.NewF32Column("rot_1", make([]float32, n)),
		table.NewF32Column("rot_2", make([]float32, n)),
		table.NewF32Column("rot_3", make([]float32, n)),
		table.NewF32Column("f_dc_0", make([]float32, n)),
		table.NewF32Column("f_dc_1", make([]float32, n)),
		table.NewF32Column("f_dc_2", make([]float32, n)),
		table.NewF32Column("opacity", make([]float32, n)),
	}
	for i := 0; i < 3*CoeffCount(band); i++ {
		cols = append(cols, table.NewF32Column(RestColumnName(i), make([]float32, n)))
	}
	tbl, _ := table.New(cols...)
	return tbl
}

func TestIsGaussianSet(t *testing.T) {
	if !IsGaussianSet(minimalSet(3, 0)) {
		t.Fatal("minimal set should be recognized")
	}
	x, _ := table.New(table.NewF32Column("x", make([]float32, 1)))
	if IsGaussianSet(x) {
		t.Fatal("table missing required columns should not be recognized")
	}
}

func TestBandsRoundTrip(t *testing.T) {
	for _, band := range []int{0, 1, 2, 3} {
		tbl := minimalSet(2, band)
		if got := Bands(tbl); got != band {
			t.Errorf("Bands() = %d, want %d", got, band)
		}
	}
}

func TestChannelCoeffInverse(t *testing.T) {
	band := 2
	for i := 0; i < 3*CoeffCount(band); i++ {
		ch, co := ChannelCoeff(i, band)
		if RestIndex(ch, co, band) != i {
			t.Errorf("RestIndex(ChannelCoeff(%d)) != %d", i, i)
		}
	}
}

func TestBandFromRestCountInvalid(t *testing.T) {
	if BandFromRestCount(10) != -1 {
		t.Fatal("10 rest columns should not match any band")
	}
}
