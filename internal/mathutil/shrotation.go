package mathutil

import "github.com/chewxy/math32"

// ShRotation holds the block-diagonal Wigner-D transform for spherical
// harmonic bands 1..3: a 3x3, a 5x5, and a 7x7 block, each applied to a
// band's coefficient vector independently per RGB channel
// (SPEC_FULL.md §4.4). Band 1 is exact (linear in R); bands 2 and 3 are
// derived from band 1 by the Ivanic & Ruedenberg recursion.
type ShRotation struct {
	Band1 [3][3]float32
	Band2 [5][5]float32
	Band3 [7][7]float32
}

// NewShRotation builds the block-diagonal transform for rotation matrix r.
func NewShRotation(r Mat3) ShRotation {
	b1 := band1FromMat3(r)
	b2 := nextBand(b1[:], 1, b1)
	b3 := nextBand(b2, 2, b1)

	var out ShRotation
	for i := 0; i < 3; i++ {
		copy(out.Band1[i][:], b1[i*3:i*3+3])
	}
	for i := 0; i < 5; i++ {
		copy(out.Band2[i][:], b2[i*5:i*5+5])
	}
	for i := 0; i < 7; i++ {
		copy(out.Band3[i][:], b3[i*7:i*7+7])
	}
	return out
}

// band1FromMat3 maps a Cartesian rotation matrix into the real-SH
// degree-1 basis order (y, z, x), per the standard convention that
// Y_1^-1 ∝ y, Y_1^0 ∝ z, Y_1^1 ∝ x.
func band1FromMat3(r Mat3) [9]float32 {
	idx := func(row, col int) float32 {
		perm := [3]int{1, 2, 0} // y,z,x -> cartesian 1,2,0
		return r.At(perm[row], perm[col])
	}
	var m [9]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m[row*3+col] = idx(row, col)
		}
	}
	return m
}

// nextBand derives the (2l+3)x(2l+3) rotation block for band l+1 from the
// (2l+1)x(2l+1) block of band l, and the fixed 3x3 band-1 block, using the
// recursive real-SH rotation construction of Ivanic & Ruedenberg (1996).
func nextBand(prev []float32, l int, band1Mat [9]float32) []float32 {
	n := 2*l + 1     // dimension of prev
	m := 2*(l+1) + 1 // dimension of result
	band1 := band1Mat[:]
	result := make([]float32, m*m)

	// P special-cases on b (the new band's column index), not a: the new
	// band's row a always lands inside prev's valid range here (callers
	// only reach the a == ±(l+1) extremal rows through terms whose u/v/w
	// coefficient is already zero), while b == ±(l+1) has no column in
	// prev and must be synthesized from prev's own extremal columns.
	P := func(i, a, b int) float32 {
		// i indexes the band-1 basis {-1,0,1} -> matrix rows/cols {0,1,2}
		switch {
		case b == l+1:
			return band1[i*3+2]*getPrev(prev, n, a, l, l) - band1[i*3+0]*getPrev(prev, n, a, l, -l)
		case b == -(l + 1):
			return band1[i*3+2]*getPrev(prev, n, a, l, -l) + band1[i*3+0]*getPrev(prev, n, a, l, l)
		default:
			return band1[i*3+1] * getPrev(prev, n, a, l, b)
		}
	}

	for a := -(l + 1); a <= l+1; a++ {
		for b := -(l + 1); b <= l+1; b++ {
			u, v, w := uvwCoeff(l+1, a, b)
			var val float32
			if u != 0 {
				val += u * termU(P, prev, n, l, a, b)
			}
			if v != 0 {
				val += v * termV(P, prev, n, l, a, b)
			}
			if w != 0 {
				val += w * termW(P, prev, n, l, a, b)
			}
			result[index(a, l+1)*m+index(b, l+1)] = val
		}
	}
	return result
}

func index(m, l int) int { return m + l }

func getPrev(prev []float32, n, row, l, col int) float32 {
	ri, ci := row+l, col+l
	if ri < 0 || ri >= n || ci < 0 || ci >= n {
		return 0
	}
	return prev[ri*n+ci]
}

func termU(P func(i, a, b int) float32, prev []float32, n, l, a, b int) float32 {
	return P(1, a, b)
}

func termV(P func(i, a, b int) float32, prev []float32, n, l, a, b int) float32 {
	if a == 0 {
		return P(2, 1, b) + P(0, -1, b)
	}
	if a > 0 {
		d := kronecker(a, 1)
		return P(2, a-1, b)*math32.Sqrt(1+float32(d)) - P(0, -a+1, b)*(1-float32(d))
	}
	d := kronecker(a, -1)
	return P(2, a+1, b)*(1-float32(d)) + P(0, -a-1, b)*math32.Sqrt(1+float32(d))
}

func termW(P func(i, a, b int) float32, prev []float32, n, l, a, b int) float32 {
	if a == 0 {
		return 0
	}
	if a > 0 {
		return P(2, a+1, b) + P(0, -a-1, b)
	}
	return P(2, a-1, b) - P(0, -a+1, b)
}

func kronecker(a, b int) int {
	if a == b {
		return 1
	}
	return 0
}

// uvwCoeff returns the (u, v, w) coefficients of the Ivanic-Ruedenberg
// recursion for band l, indices a, b.
func uvwCoeff(l, a, b int) (u, v, w float32) {
	d := 0
	if a == 0 {
		d = 1
	}
	denom := float32((l + b) * (l - b))
	if b == l || b == -l {
		denom = float32(2 * l * (2*l - 1))
	}
	u = math32.Sqrt(float32((l+a)*(l-a)) / denom)
	v = 0.5 * math32.Sqrt(float32((1+d)*(l+absInt(a)-1)*(l+absInt(a))) / denom) * (1 - float32(2*d))
	w = -0.5 * math32.Sqrt(float32((l-absInt(a)-1)*(l-absInt(a))) / denom) * (1 - float32(d))
	return u, v, w
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Apply rotates a single channel's coefficient vector (length C(band)) by
// the block matching that band. coeffs is addressed in the real-SH
// ordering implied by the construction above: index 0 is m=-band, index
// 2*band is m=+band.
func (s ShRotation) Apply(band int, coeffs []float32) []float32 {
	out := make([]float32, len(coeffs))
	switch band {
	case 1:
		for i := 0; i < 3; i++ {
			var sum float32
			for j := 0; j < 3; j++ {
				sum += s.Band1[i][j] * coeffs[j]
			}
			out[i] = sum
		}
	case 2:
		for i := 0; i < 5; i++ {
			var sum float32
			for j := 0; j < 5; j++ {
				sum += s.Band2[i][j] * coeffs[j]
			}
			out[i] = sum
		}
	case 3:
		for i := 0; i < 7; i++ {
			var sum float32
			for j := 0; j < 7; j++ {
				sum += s.Band3[i][j] * coeffs[j]
			}
			out[i] = sum
		}
	default:
		copy(out, coeffs)
	}
	return out
}
