package morton

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

// TestOrderIsBijection covers testable property 10: the recursive Morton
// sort returns a permutation of [0,N).
func TestOrderIsBijection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := make([]Point, 600)
	for i := range points {
		points[i] = Point{
			X: float32(rng.Float64() * 100),
			Y: float32(rng.Float64() * 100),
			Z: float32(rng.Float64() * 100),
		}
	}
	perm := Order(points)
	if len(perm) != len(points) {
		t.Fatalf("expected length %d, got %d", len(points), len(perm))
	}
	seen := make([]bool, len(points))
	for _, idx := range perm {
		if idx < 0 || idx >= len(points) {
			t.Fatalf("index out of range: %d", idx)
		}
		if seen[idx] {
			t.Fatalf("index %d repeated", idx)
		}
		seen[idx] = true
	}
	for i, s := range seen {
		if !s {
			t.Fatalf("index %d missing from permutation", i)
		}
	}
}

func TestOrderHandlesSingleAndEmpty(t *testing.T) {
	if got := Order(nil); len(got) != 0 {
		t.Fatalf("expected empty permutation, got %v", got)
	}
	if got := Order([]Point{{X: 1, Y: 2, Z: 3}}); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected [0], got %v", got)
	}
}

func TestOrderNonFiniteAbortsIdentity(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, Z: 0},
		{X: float32(math.Inf(1)), Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 1},
	}
	got := Order(points)
	for i, idx := range got {
		if idx != i {
			t.Fatalf("expected identity permutation on non-finite extent, got %v", got)
		}
	}
}

func TestOrderClustersSpatiallyClosePoints(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, Z: 0},
		{X: 100, Y: 100, Z: 100},
		{X: 0.1, Y: 0.1, Z: 0.1},
		{X: 99.9, Y: 99.9, Z: 99.9},
	}
	perm := Order(points)
	pos := make(map[int]int, len(perm))
	for i, idx := range perm {
		pos[idx] = i
	}
	// 0 and 2 are near the origin; 1 and 3 are near the far corner. Their
	// positions in the permutation should group together (sorted by proximity).
	near := []int{pos[0], pos[2]}
	far := []int{pos[1], pos[3]}
	sort.Ints(near)
	sort.Ints(far)
	if near[1]-near[0] > 1 {
		t.Errorf("expected near-origin points adjacent in sort order, got positions %v", near)
	}
	if far[1]-far[0] > 1 {
		t.Errorf("expected far-corner points adjacent in sort order, got positions %v", far)
	}
}
