package mathutil

import "testing"

func TestShRotationIdentityBand1(t *testing.T) {
	rot := NewShRotation(IdentityMat3)
	coeffs := []float32{1, 2, 3}
	out := rot.Apply(1, coeffs)
	for i := range coeffs {
		if math32Abs(out[i]-coeffs[i]) > 1e-5 {
			t.Errorf("identity rotation changed band-1 coeff %d: %v -> %v", i, coeffs[i], out[i])
		}
	}
}

func TestShRotationPreservesLength(t *testing.T) {
	q := FromEulerDegrees(10, 20, 30)
	rot := NewShRotation(q.ToMat3())
	if len(rot.Apply(1, make([]float32, 3))) != 3 {
		t.Fatal("band 1 output length mismatch")
	}
	if len(rot.Apply(2, make([]float32, 5))) != 5 {
		t.Fatal("band 2 output length mismatch")
	}
	if len(rot.Apply(3, make([]float32, 7))) != 7 {
		t.Fatal("band 3 output length mismatch")
	}
}

func math32Abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// TestShRotationRoundTrip covers spec Testable Property 8: rotating a
// band's coefficient vector by R then by R's inverse (R transpose, since
// rotation matrices are orthonormal) must reproduce the original vector
// to within 1e-5, for bands 1 through 3.
func TestShRotationRoundTrip(t *testing.T) {
	r := FromEulerDegrees(17, -41, 63).ToMat3()
	rInv := r.Transpose()
	fwd := NewShRotation(r)
	back := NewShRotation(rInv)

	cases := []struct {
		band   int
		coeffs []float32
	}{
		{1, []float32{0.3, -0.7, 1.1}},
		{2, []float32{0.2, -0.4, 0.9, -1.3, 0.5}},
		{3, []float32{0.1, 0.6, -0.3, 0.8, -0.9, 0.4, -0.2}},
	}
	for _, c := range cases {
		rotated := fwd.Apply(c.band, c.coeffs)
		roundTripped := back.Apply(c.band, rotated)
		for i := range c.coeffs {
			if err := math32Abs(roundTripped[i] - c.coeffs[i]); err > 1e-5 {
				t.Errorf("band %d coeff %d: round trip error %v exceeds 1e-5 (original=%v, got=%v)",
					c.band, i, err, c.coeffs[i], roundTripped[i])
			}
		}
	}
}

// TestShRotationOrthonormal checks that each band's block matrix M
// satisfies M^T M = I, a necessary condition for the Wigner-D blocks to
// represent a rotation at all (catches the mirror case a correct-looking
// round trip through R then R^-1 could still hide).
func TestShRotationOrthonormal(t *testing.T) {
	r := FromEulerDegrees(-29, 52, 8).ToMat3()
	rot := NewShRotation(r)

	checkOrthonormal := func(t *testing.T, name string, dim int, at func(i, j int) float32) {
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				var dot float32
				for k := 0; k < dim; k++ {
					dot += at(k, i) * at(k, j)
				}
				want := float32(0)
				if i == j {
					want = 1
				}
				if err := math32Abs(dot - want); err > 1e-4 {
					t.Errorf("%s: (M^T M)[%d][%d] = %v, want %v", name, i, j, dot, want)
				}
			}
		}
	}

	checkOrthonormal(t, "band2", 5, func(i, j int) float32 { return rot.Band2[i][j] })
	checkOrthonormal(t, "band3", 7, func(i, j int) float32 { return rot.Band3[i][j] })
}
