// Package kmeans implements the Lloyd-style quantizer of SPEC_FULL.md §4.3:
// fixed iteration count, K-distinct-without-replacement initialization, and
// a pluggable nearest-centroid assignment backend (exhaustive CPU, k-d
// tree, or GPU).
package kmeans

import (
	"math/rand"

	"github.com/gsplat/splat-transform/internal/gpu"
	"github.com/gsplat/splat-transform/internal/kdtree"
)

// Backend selects how points are assigned to their nearest centroid during
// each iteration.
type Backend int

const (
	// BackendCPU does an exhaustive scan over all centroids per point.
	BackendCPU Backend = iota
	// BackendKDTree builds a k-d tree over the centroids each iteration and
	// queries it per point.
	BackendKDTree
	// BackendGPU delegates to internal/gpu.Cluster (currently CPU-backed;
	// see that package's doc comment).
	BackendGPU
)

// Result is the output of Run: a K-row centroid table and a per-point
// label array.
type Result struct {
	Centroids [][]float32
	Labels    []uint32
}

// Run quantizes points (N rows of D columns) into k centroids over exactly
// iterations Lloyd steps. rng must be non-nil for deterministic,
// reproducible runs.
func Run(points [][]float32, k, iterations int, backend Backend, rng *rand.Rand) Result {
	n := len(points)
	if n < k {
		centroids := make([][]float32, n)
		labels := make([]uint32, n)
		for i, p := range points {
			centroids[i] = append([]float32(nil), p...)
			labels[i] = uint32(i)
		}
		return Result{Centroids: centroids, Labels: labels}
	}

	centroids := initCentroids(points, k, rng)
	labels := make([]uint32, n)

	for iter := 0; iter < iterations; iter++ {
		assign(points, centroids, labels, backend)
		recompute(points, centroids, labels, k)
	}
	// Relabel against the final centroids so every returned label names
	// its nearest returned centroid; centroids are not moved again.
	assign(points, centroids, labels, backend)

	return Result{Centroids: centroids, Labels: labels}
}

// initCentroids picks k distinct point rows uniformly at random, without
// replacement, via a partial Fisher-Yates shuffle.
func initCentroids(points [][]float32, k int, rng *rand.Rand) [][]float32 {
	indices := make([]int, len(points))
	for i := range indices {
		indices[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(indices)-i)
		indices[i], indices[j] = indices[j], indices[i]
	}
	centroids := make([][]float32, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float32(nil), points[indices[i]]...)
	}
	return centroids
}

func assign(points, centroids [][]float32, labels []uint32, backend Backend) {
	switch backend {
	case BackendKDTree:
		dims := len(centroids[0])
		tree := kdtree.Build(centroids, dims)
		for i, p := range points {
			idx, _ := tree.FindNearest(p)
			labels[i] = uint32(idx)
		}
	case BackendGPU:
		gpu.Backend(true).Assign(points, centroids, labels)
	default:
		gpu.CPUBackend{}.Assign(points, centroids, labels)
	}
}

// recompute sets each centroid to the arithmetic mean of its assigned
// points; empty clusters retain their previous value.
func recompute(points, centroids [][]float32, labels []uint32, k int) {
	dims := len(centroids[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := 0; c < k; c++ {
		sums[c] = make([]float64, dims)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		for d := 0; d < dims; d++ {
			sums[c][d] += float64(p[d])
		}
	}
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		for d := 0; d < dims; d++ {
			centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
		}
	}
}
