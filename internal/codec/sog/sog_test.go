package sog

import (
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
		x.F32[i], y.F32[i], z.F32[i] = float32(i), float32(i)*0.5, float32(-i)
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

// TestEncodeDecodeRoundTrip exercises the full asset pipeline, including
// WebP encode/decode; like internal/webp's own tests, this depends on the
// real libwebp codec being available at build time.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	dt := buildGaussianTable(t, 20)
	asset, err := Encode(dt)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, name := range []string{"meta.json", "means_l.webp", "means_u.webp", "quats.webp", "scales.webp", "sh0.webp"} {
		if _, ok := asset.Files[name]; !ok {
			t.Fatalf("expected asset file %q", name)
		}
	}

	decoded, err := Decode(asset.Files)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RowCount() != 20 {
		t.Fatalf("expected 20 rows, got %d", decoded.RowCount())
	}
	xcol := decoded.Column("x")
	for i := 0; i < 20; i++ {
		diff := xcol.F32[i] - float32(i)
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.5 {
			t.Fatalf("row %d x diverged too far: %v vs %v", i, xcol.F32[i], float32(i))
		}
	}
}

func TestTextureDimsMultipleOfFour(t *testing.T) {
	for _, n := range []int{0, 1, 10, 256, 1000, 12345} {
		w, h := textureDims(n)
		if w%4 != 0 || h%4 != 0 {
			t.Fatalf("textureDims(%d) = (%d,%d), want multiples of 4", n, w, h)
		}
		if w*h < n {
			t.Fatalf("textureDims(%d) = (%d,%d), total %d < n", n, w, h, w*h)
		}
	}
}

func TestSignedLogRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 100, -100, 0.001} {
		got := invSignedLog(signedLog(v))
		diff := got - v
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.01*(absf(v)+1) {
			t.Fatalf("signed log round trip for %v gave %v", v, got)
		}
	}
}

func TestSmallestThreeComponentsRoundTrip(t *testing.T) {
	q := mathutil.IdentityQuat
	maxIdx, a, b, c := smallestThreeComponents(q)
	got := expandSmallestThree(maxIdx, a, b, c)
	dot := got.W*q.W + got.X*q.X + got.Y*q.Y + got.Z*q.Z
	if dot < 0.95 {
		t.Fatalf("expected near-identical quaternion after round trip, dot=%v", dot)
	}
}
