package quantization

import (
	"math"
	"math/rand"
	"testing"
)

func TestScalarQuantizer_Quantize(t *testing.T) {
	q := NewScalarQuantizer()
	q.TrainFromRange(0.0, 1.0)

	quantized := q.Quantize([]float32{0.1, 0.55, 0.9})

	if len(quantized) != 3 {
		t.Errorf("Expected length 3, got %d", len(quantized))
	}

	for i, val := range quantized {
		if val < -127 || val > 127 {
			t.Errorf("Value %d out of range: %d", i, val)
		}
	}
}

func TestScalarQuantizer_Dequantize(t *testing.T) {
	q := NewScalarQuantizer()
	q.TrainFromRange(0.0, 1.0)

	original := []float32{0.3, 0.7}
	quantized := q.Quantize(original)
	dequantized := q.Dequantize(quantized)

	for i := range original {
		err := math.Abs(float64(original[i] - dequantized[i]))
		if err > 0.1 { // Allow 10% error
			t.Errorf("Large reconstruction error at %d: original=%f, dequantized=%f, error=%f",
				i, original[i], dequantized[i], err)
		}
	}
}

func TestScalarQuantizer_RoundTrip(t *testing.T) {
	q := NewScalarQuantizer()
	q.TrainFromRange(0.0, 1.0)

	testVector := make([]float32, 768)
	for j := range testVector {
		testVector[j] = rand.Float32()
	}

	quantized := q.Quantize(testVector)
	dequantized := q.Dequantize(quantized)

	var totalError float64
	for i := range testVector {
		totalError += math.Abs(float64(testVector[i] - dequantized[i]))
	}
	avgError := totalError / float64(len(testVector))

	if avgError > 0.05 { // 5% average error threshold
		t.Errorf("Average reconstruction error too high: %f", avgError)
	}
}

func TestScalarQuantizer_TrainFromRangeReproducesParameters(t *testing.T) {
	// ksplat's decoder calls TrainFromRange with the same [min, max] the
	// encoder persisted in the section header, so two independently built
	// quantizers trained on the same range must quantize identically.
	a := NewScalarQuantizer()
	a.TrainFromRange(-2.0, 2.0)

	b := NewScalarQuantizer()
	b.TrainFromRange(-2.0, 2.0)

	original := []float32{-1.5, 0.5, 1.9}
	qa := a.Quantize(original)
	qb := b.Quantize(original)
	for i := range qa {
		if qa[i] != qb[i] {
			t.Errorf("element %d: got %d and %d from identical TrainFromRange calls", i, qa[i], qb[i])
		}
	}

	roundTripped := b.Dequantize(qa)
	for i := range original {
		if math.Abs(float64(original[i]-roundTripped[i])) > 0.1 {
			t.Errorf("element %d: original=%f, roundTripped=%f", i, original[i], roundTripped[i])
		}
	}
}

func TestScalarQuantizer_ZeroWidthRangeAvoidsDivideByZero(t *testing.T) {
	q := NewScalarQuantizer()
	q.TrainFromRange(3.0, 3.0)

	quantized := q.Quantize([]float32{3.0})
	if quantized[0] < -127 || quantized[0] > 127 {
		t.Fatalf("expected a finite quantized value for a zero-width range, got %d", quantized[0])
	}
}

func BenchmarkScalarQuantize(b *testing.B) {
	q := NewScalarQuantizer()
	q.TrainFromRange(0.0, 1.0)

	testVector := make([]float32, 768)
	for j := range testVector {
		testVector[j] = rand.Float32()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Quantize(testVector)
	}
}

func BenchmarkScalarDequantize(b *testing.B) {
	q := NewScalarQuantizer()
	q.TrainFromRange(0.0, 1.0)

	quantized := make([]int8, 768)
	for j := range quantized {
		quantized[j] = int8(rand.Intn(255) - 127)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Dequantize(quantized)
	}
}
