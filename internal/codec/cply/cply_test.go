package cply

import (
	"bytes"
	"math"
	"testing"

	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/table"
)

func buildGaussianTable(t *testing.T, n int) *table.DataTable {
	t.Helper()
	x := table.NewColumn("x", table.F32, n)
	y := table.NewColumn("y", table.F32, n)
	z := table.NewColumn("z", table.F32, n)
	s0 := table.NewColumn("scale_0", table.F32, n)
	s1 := table.NewColumn("scale_1", table.F32, n)
	s2 := table.NewColumn("scale_2", table.F32, n)
	r0 := table.NewColumn("rot_0", table.F32, n)
	r1 := table.NewColumn("rot_1", table.F32, n)
	r2 := table.NewColumn("rot_2", table.F32, n)
	r3 := table.NewColumn("rot_3", table.F32, n)
	dc0 := table.NewColumn("f_dc_0", table.F32, n)
	dc1 := table.NewColumn("f_dc_1", table.F32, n)
	dc2 := table.NewColumn("f_dc_2", table.F32, n)
	opacity := table.NewColumn("opacity", table.F32, n)

	for i := 0; i < n; i++ {
		x.F32[i] = float32(i)
		y.F32[i] = float32(i) * 0.5
		z.F32[i] = float32(-i)
		s0.F32[i], s1.F32[i], s2.F32[i] = -2, -2, -2
		r0.F32[i] = 1
		dc0.F32[i], dc1.F32[i], dc2.F32[i] = 0.1, 0.2, 0.3
		opacity.F32[i] = 2
	}

	dt, err := table.New(x, y, z, s0, s1, s2, r0, r1, r2, r3, dc0, dc1, dc2, opacity)
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	return dt
}

func TestEncodeDecodeApproximatelyPreservesPositions(t *testing.T) {
	dt := buildGaussianTable(t, 300) // spans more than one 256-splat chunk
	compressed, err := Encode(dt)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(compressed.Chunks) != 2 {
		t.Fatalf("expected 2 chunks for 300 rows, got %d", len(compressed.Chunks))
	}

	decoded, err := Decode(compressed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RowCount() != 300 {
		t.Fatalf("expected 300 rows, got %d", decoded.RowCount())
	}

	// Positions are Morton-reordered internally, so rows are not compared
	// one to one: every decoded x must lie inside the original x range,
	// widened by two 11-bit quantization steps.
	origMinX, origMaxX := float32(0), float32(299)
	tolerance := (origMaxX - origMinX) / 2047 * 2
	xcol := decoded.Column("x")
	for i := 0; i < decoded.RowCount(); i++ {
		if xcol.F32[i] < origMinX-tolerance || xcol.F32[i] > origMaxX+tolerance {
			t.Fatalf("decoded x[%d]=%v outside expected range [%v,%v]", i, xcol.F32[i], origMinX, origMaxX)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dt := buildGaussianTable(t, 10)
	compressed, err := Encode(dt)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, compressed); err != nil {
		t.Fatalf("write: %v", err)
	}
	readBack, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if readBack.N != 10 || len(readBack.Chunks) != 1 {
		t.Fatalf("expected N=10, 1 chunk, got N=%d chunks=%d", readBack.N, len(readBack.Chunks))
	}
	for i := range compressed.PackedPosition {
		if compressed.PackedPosition[i] != readBack.PackedPosition[i] {
			t.Fatalf("packed position mismatch at %d: %d vs %d", i, compressed.PackedPosition[i], readBack.PackedPosition[i])
		}
	}
}

func TestSmallestThreeQuaternionRoundTrip(t *testing.T) {
	q := mathutil.Quat{W: 0.5, X: 0.5, Y: 0.5, Z: 0.5}
	packed := packSmallestThree(q)
	unpacked := unpackSmallestThree(packed)

	dot := q.W*unpacked.W + q.X*unpacked.X + q.Y*unpacked.Y + q.Z*unpacked.Z
	if math.Abs(float64(dot)) < 1-1e-2 {
		t.Fatalf("expected |q'.q| close to 1, got %v", dot)
	}
}
