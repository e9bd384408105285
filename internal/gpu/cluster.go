// Package gpu defines the batched-assignment backend seam used by
// internal/kmeans (SPEC_FULL.md §4.3, §6). Only a CPU implementation is
// registered; the interface exists so a future accelerated backend can
// be swapped in without touching the quantizer itself.
package gpu

// Cluster assigns each row in points to the index of its nearest row in
// centroids, under squared Euclidean distance, writing results into labels
// (len(labels) == len(points)). All backends must produce identical labels
// given identical inputs, modulo tie-breaks.
type Cluster interface {
	Assign(points, centroids [][]float32, labels []uint32)
}

// CPUBackend is an exhaustive, single-threaded nearest-centroid scan. It is
// the only backend wired in this repository: no GPU runtime is available
// in this environment, so Backend always resolves to this type even
// when the caller requests GPU acceleration (SPEC_FULL.md §4.3 Open
// Question: "batched GPU kernel" is modeled as an interface seam, not
// implemented against real hardware).
type CPUBackend struct{}

// Assign implements Cluster by exhaustive scan.
func (CPUBackend) Assign(points, centroids [][]float32, labels []uint32) {
	for i, p := range points {
		best := 0
		bestDist := sqDistance(p, centroids[0])
		for c := 1; c < len(centroids); c++ {
			d := sqDistance(p, centroids[c])
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = uint32(best)
	}
}

func sqDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}

// Backend selects a Cluster implementation given the requested GPU flag.
// There is currently no GPU-backed implementation: the flag is preserved
// in the signature so the CLI's -g/--no-gpu option has a stable meaning,
// but both branches currently resolve to the CPU backend.
func Backend(useGPU bool) Cluster {
	return CPUBackend{}
}
