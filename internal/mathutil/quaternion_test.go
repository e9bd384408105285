package mathutil

import "testing"

func approxEq(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestQuatNormalized(t *testing.T) {
	q := Quat{W: 2, X: 0, Y: 0, Z: 0}.Normalized()
	if !approxEq(q.Norm(), 1, 1e-6) {
		t.Fatalf("expected unit norm, got %v", q.Norm())
	}
	if q.W != 1 {
		t.Fatalf("expected W=1, got %v", q.W)
	}
}

func TestQuatNormalizedZeroFallsBackToIdentity(t *testing.T) {
	q := Quat{}.Normalized()
	if q != IdentityQuat {
		t.Fatalf("expected identity for zero quaternion, got %+v", q)
	}
}

func TestQuatMulIdentity(t *testing.T) {
	q := FromEulerDegrees(10, 20, 30)
	if got := q.Mul(IdentityQuat); !approxEq(got.W, q.W, 1e-6) || !approxEq(got.X, q.X, 1e-6) {
		t.Fatalf("q*identity changed q: %+v -> %+v", q, got)
	}
}

// TestFromEulerDegreesRotatesXToNegZ covers SPEC_FULL.md §8 scenario E3:
// a 90 degree rotation about Y sends (1,0,0) to (0,0,-1).
func TestFromEulerDegreesRotatesXToNegZ(t *testing.T) {
	q := FromEulerDegrees(0, 90, 0)
	got := q.RotateVec3(Vec3{X: 1})
	if !approxEq(got.X, 0, 1e-4) || !approxEq(got.Y, 0, 1e-4) || !approxEq(got.Z, -1, 1e-4) {
		t.Fatalf("expected (0,0,-1), got %+v", got)
	}

	const invSqrt2 = 0.70710678
	if !approxEq(q.W, invSqrt2, 1e-4) || !approxEq(q.Y, invSqrt2, 1e-4) {
		t.Fatalf("expected quaternion ~= (sqrt2/2, 0, sqrt2/2, 0), got %+v", q)
	}
}

func TestQuatDotSelfIsOne(t *testing.T) {
	q := FromEulerDegrees(5, 15, 25)
	if !approxEq(q.Dot(q), 1, 1e-5) {
		t.Fatalf("expected self-dot of unit quaternion to be 1, got %v", q.Dot(q))
	}
}
