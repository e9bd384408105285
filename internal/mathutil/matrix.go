package mathutil

// Vec3 is a three-component float32 vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns a+b.
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Scale returns a*s.
func (a Vec3) Scale(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

// Mat3 is a row-major 3x3 matrix.
type Mat3 [9]float32

// IdentityMat3 is the 3x3 identity.
var IdentityMat3 = Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}

// At returns element (row, col), 0-indexed.
func (m Mat3) At(row, col int) float32 { return m[row*3+col] }

// MulVec3 applies m to v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Mul computes m*n.
func (m Mat3) Mul(n Mat3) Mat3 {
	var out Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += m.At(r, k) * n.At(k, c)
			}
			out[r*3+c] = sum
		}
	}
	return out
}

// Transpose returns m^T.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// TRS composes the combined translate/rotate/uniform-scale transform of
// SPEC_FULL.md §4.5: p' = R·(s·p) + t.
func TRS(p Vec3, r Mat3, s float32, t Vec3) Vec3 {
	return r.MulVec3(p.Scale(s)).Add(t)
}
