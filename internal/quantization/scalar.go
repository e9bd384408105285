package quantization

import "math"

// ScalarQuantizer performs scalar quantization on float32 vectors
// Compresses float32 (4 bytes) to int8 (1 byte) - 4x memory reduction
type ScalarQuantizer struct {
	min    float32
	max    float32
	scale  float32
	offset float32
}

// NewScalarQuantizer creates a new scalar quantizer
func NewScalarQuantizer() *ScalarQuantizer {
	return &ScalarQuantizer{}
}

// TrainFromRange sets quantizer parameters directly from a known [min, max]
// range, reproducing the standard scale/offset formula without rescanning
// the source vectors. Used when min/max are persisted in a file header and
// the original training data isn't available at load time.
func (q *ScalarQuantizer) TrainFromRange(min, max float32) {
	q.min = min
	q.max = max
	valueRange := max - min
	if valueRange == 0 {
		valueRange = 1.0
	}
	q.scale = 254.0 / valueRange
	q.offset = -127.0 - (min * q.scale)
}

// Quantize converts a float32 vector to int8
func (q *ScalarQuantizer) Quantize(vector []float32) []int8 {
	quantized := make([]int8, len(vector))

	for i, val := range vector {
		// Scale to [-127, 127] and round
		scaled := val*q.scale + q.offset

		// Clamp to valid range
		if scaled < -127 {
			scaled = -127
		} else if scaled > 127 {
			scaled = 127
		}

		quantized[i] = int8(math.Round(float64(scaled)))
	}

	return quantized
}

// Dequantize converts an int8 vector back to float32
func (q *ScalarQuantizer) Dequantize(quantized []int8) []float32 {
	vector := make([]float32, len(quantized))

	for i, val := range quantized {
		// Reverse the quantization
		vector[i] = (float32(val) - q.offset) / q.scale
	}

	return vector
}
