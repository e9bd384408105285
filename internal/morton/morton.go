// Package morton computes a spatial sort permutation over the rows of a
// Gaussian table by recursively Morton-ordering (x,y,z) (SPEC_FULL.md §4.1).
package morton

import (
	"math"
	"sort"
)

// Point is the minimal input morton.Order needs from a row.
type Point struct {
	X, Y, Z float32
}

const maxRun = 256

// Order returns a permutation of [0, len(points)) that clusters
// spatially-close points together. Any non-finite bounding-box extent for a
// sub-range aborts ordering of that sub-range, leaving its current (input)
// order in place.
func Order(points []Point) []int {
	indices := make([]int, len(points))
	for i := range indices {
		indices[i] = i
	}
	orderRange(points, indices)
	return indices
}

// orderRange sorts indices (a slice over the original point indices) in
// place by Morton code over points, then recurses into any run longer than
// maxRun sharing the same code.
func orderRange(points []Point, indices []int) {
	if len(indices) < 2 {
		return
	}

	minX, minY, minZ := points[indices[0]].X, points[indices[0]].Y, points[indices[0]].Z
	maxX, maxY, maxZ := minX, minY, minZ
	for _, idx := range indices[1:] {
		p := points[idx]
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
		if p.Z < minZ {
			minZ = p.Z
		}
		if p.Z > maxZ {
			maxZ = p.Z
		}
	}
	if !finite(minX) || !finite(minY) || !finite(minZ) ||
		!finite(maxX) || !finite(maxY) || !finite(maxZ) {
		return
	}

	rangeX, rangeY, rangeZ := maxX-minX, maxY-minY, maxZ-minZ
	code := make([]uint32, len(indices))
	for i, idx := range indices {
		p := points[idx]
		code[i] = mortonCode(
			quantize(p.X, minX, rangeX),
			quantize(p.Y, minY, rangeY),
			quantize(p.Z, minZ, rangeZ),
		)
	}

	// Stable order by (code, original index) so ties are deterministic.
	order := make([]int, len(indices))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if code[ia] != code[ib] {
			return code[ia] < code[ib]
		}
		return indices[ia] < indices[ib]
	})

	sorted := make([]int, len(indices))
	sortedCode := make([]uint32, len(indices))
	for i, o := range order {
		sorted[i] = indices[o]
		sortedCode[i] = code[o]
	}
	copy(indices, sorted)

	// Recurse on any contiguous run sharing a code with length > maxRun.
	start := 0
	for i := 1; i <= len(sortedCode); i++ {
		if i < len(sortedCode) && sortedCode[i] == sortedCode[start] {
			continue
		}
		runLen := i - start
		if runLen > maxRun {
			orderRange(points, indices[start:i])
		}
		start = i
	}
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// quantize maps v in [lo, lo+span] to a 10-bit unsigned integer, clamped.
func quantize(v, lo, span float32) uint32 {
	if span <= 0 {
		return 0
	}
	q := (v - lo) * 1024 / span
	if q < 0 {
		q = 0
	}
	if q > 1023 {
		q = 1023
	}
	return uint32(q)
}

// mortonCode interleaves three 10-bit values into a 30-bit Morton code.
func mortonCode(x, y, z uint32) uint32 {
	return part1By2(x) | (part1By2(y) << 1) | (part1By2(z) << 2)
}

// part1By2 spreads the low 10 bits of x so that each occupies every third
// bit position (the "Part1By2" bit-spreader).
func part1By2(x uint32) uint32 {
	x &= 0x3ff
	x = (x | (x << 16)) & 0xff0000ff
	x = (x | (x << 8)) & 0x0300f00f
	x = (x | (x << 4)) & 0x030c30c3
	x = (x | (x << 2)) & 0x09249249
	return x
}
