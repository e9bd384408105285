package kdtree

import (
	"math/rand"
	"testing"
)

func bruteForceNearest(rows [][]float32, point []float32) (int, float64) {
	best := -1
	var bestDist float64
	for i, row := range rows {
		d := sqDistance(row, point)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func TestFindNearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n, d = 200, 3
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = []float32{
			float32(rng.Float64() * 50),
			float32(rng.Float64() * 50),
			float32(rng.Float64() * 50),
		}
	}
	tree := Build(rows, d)

	for q := 0; q < 20; q++ {
		point := []float32{
			float32(rng.Float64() * 50),
			float32(rng.Float64() * 50),
			float32(rng.Float64() * 50),
		}
		gotIdx, gotDist := tree.FindNearest(point)
		wantIdx, wantDist := bruteForceNearest(rows, point)
		if gotDist != wantDist {
			t.Fatalf("query %d: distance mismatch got %v want %v (gotIdx=%d wantIdx=%d)", q, gotDist, wantDist, gotIdx, wantIdx)
		}
		_ = gotIdx
		_ = wantIdx
	}
}

func TestFindNearestExactMatch(t *testing.T) {
	rows := [][]float32{{0, 0, 0}, {1, 1, 1}, {5, 5, 5}}
	tree := Build(rows, 3)
	idx, dist := tree.FindNearest([]float32{1, 1, 1})
	if idx != 1 || dist != 0 {
		t.Fatalf("expected exact match at index 1 with dist 0, got idx=%d dist=%v", idx, dist)
	}
}

func TestFindNearestSingleRow(t *testing.T) {
	rows := [][]float32{{3, 4, 0}}
	tree := Build(rows, 3)
	idx, dist := tree.FindNearest([]float32{0, 0, 0})
	if idx != 0 || dist != 25 {
		t.Fatalf("expected idx=0 dist=25, got idx=%d dist=%v", idx, dist)
	}
}
