package mathutil

import (
	"math"

	"github.com/chewxy/math32"
)

// Quat is a quaternion in (w, x, y, z) order, matching the rot_0..3
// column layout of a Gaussian set (SPEC_FULL.md §3).
type Quat struct {
	W, X, Y, Z float32
}

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quat{W: 1}

// Norm returns the Euclidean norm of q.
func (q Quat) Norm() float32 {
	return math32.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns q scaled to unit length, or IdentityQuat if q has
// (near-)zero length.
func (q Quat) Normalized() Quat {
	n := q.Norm()
	if n < 1e-12 {
		return IdentityQuat
	}
	inv := 1 / n
	return Quat{q.W * inv, q.X * inv, q.Y * inv, q.Z * inv}
}

// Mul computes the Hamilton product q*r (apply r first, then q — i.e. this
// composes as "q after r", matching the rotate action's q_r · q_row form).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Dot computes the quaternion dot product, used to test alignment after a
// pack/unpack round trip (SPEC_FULL.md §8 law 7).
func (q Quat) Dot(r Quat) float32 {
	return q.W*r.W + q.X*r.X + q.Y*r.Y + q.Z*r.Z
}

// FromEulerDegrees builds a unit quaternion from XYZ Euler angles in
// degrees, intrinsic rotation order X then Y then Z (SPEC_FULL.md §4.5
// "rotate" action).
func FromEulerDegrees(xDeg, yDeg, zDeg float32) Quat {
	const deg2rad = float32(math.Pi) / 180
	hx, hy, hz := xDeg*deg2rad*0.5, yDeg*deg2rad*0.5, zDeg*deg2rad*0.5

	cx, sx := math32.Cos(hx), math32.Sin(hx)
	cy, sy := math32.Cos(hy), math32.Sin(hy)
	cz, sz := math32.Cos(hz), math32.Sin(hz)

	qx := Quat{W: cx, X: sx}
	qy := Quat{W: cy, Y: sy}
	qz := Quat{W: cz, Z: sz}

	// Compose X then Y then Z applied to a point: p' = Rz*Ry*Rx*p, so the
	// equivalent quaternion is qz * qy * qx.
	return qz.Mul(qy).Mul(qx).Normalized()
}

// ToMat3 converts a unit quaternion to its 3x3 rotation matrix, row-major.
func (q Quat) ToMat3() Mat3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	x2, y2, z2 := x+x, y+y, z+z
	wx, wy, wz := w*x2, w*y2, w*z2
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2

	return Mat3{
		1 - (yy + zz), xy - wz, xz + wy,
		xy + wz, 1 - (xx + zz), yz - wx,
		xz - wy, yz + wx, 1 - (xx + yy),
	}
}

// RotateVec3 rotates v by the unit quaternion q.
func (q Quat) RotateVec3(v Vec3) Vec3 {
	return q.ToMat3().MulVec3(v)
}
