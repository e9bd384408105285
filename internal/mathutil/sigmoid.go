package mathutil

import "github.com/chewxy/math32"

// Sigmoid maps a pre-activation value to (0, 1).
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// InverseSigmoid recovers the pre-activation value, clamping the input
// away from 0 and 1 by eps to avoid ±Inf (SPEC_FULL.md §4.9: ε = 1e-6).
func InverseSigmoid(y, eps float32) float32 {
	if y < eps {
		y = eps
	} else if y > 1-eps {
		y = 1 - eps
	}
	return math32.Log(y / (1 - y))
}
