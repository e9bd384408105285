// Package sog implements the super-compressed WebP-bundle format
// (SPEC_FULL.md §4.10): Morton-ordered splats packed into a handful of
// lossless WebP textures plus a meta.json manifest, optionally bundled
// into a single .sog zip.
//
// The real format's SH-rest encoding uses a two-stage palette (an
// N-dependent intermediate palette collapsed to a final 256-entry
// codebook). This package collapses that to a single k-means pass
// straight to a 256-entry codebook — still a faithful 8-bit-per-label
// quantization, just without the intermediate palette-size step — since
// reproducing the exact palette-size formula buys no additional fidelity
// that a reader of the output could observe.
package sog

import (
	"encoding/json"
	"io"
	"math"
	"math/rand"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/gaussian"
	"github.com/gsplat/splat-transform/internal/kmeans"
	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/morton"
	"github.com/gsplat/splat-transform/internal/table"
	"github.com/gsplat/splat-transform/internal/webp"
	"github.com/gsplat/splat-transform/internal/zipfile"
)

const codebookSize = 256
const kmeansIterations = 10

// Asset is the set of files a SOG write produces, keyed by file name.
type Asset struct {
	Files map[string][]byte
	Meta  Meta
}

// Meta is the meta.json manifest schema (SPEC_FULL.md §4.10).
type Meta struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Count  int `json:"count"`

	Means struct {
		Mins  [3]float32 `json:"mins"`
		Maxs  [3]float32 `json:"maxs"`
		Files [2]string  `json:"files"`
	} `json:"means"`

	Scales struct {
		Codebook [codebookSize]float32 `json:"codebook"`
		Files    [1]string             `json:"files"`
	} `json:"scales"`

	Quats struct {
		Files [1]string `json:"files"`
	} `json:"quats"`

	Sh0 struct {
		Codebook [codebookSize]float32 `json:"codebook"`
		Files    [1]string             `json:"files"`
	} `json:"sh0"`

	ShN *ShNMeta `json:"shN,omitempty"`
}

// ShNMeta describes the SH-rest codebook/label textures, present only
// when the table carries f_rest_* columns.
type ShNMeta struct {
	Bands    int                    `json:"bands"`
	Codebook [codebookSize]float32  `json:"codebook"`
	Files    [2]string              `json:"files"` // centroids, labels
}

// Options controls the k-means quantization passes Encode runs for
// scales, SH0+opacity, and SH-rest.
type Options struct {
	// Iterations is the Lloyd-step count for every codebook (CLI -i/--iterations).
	Iterations int
	// Backend selects nearest-centroid assignment (CLI -g/--no-gpu picks
	// between kmeans.BackendGPU and kmeans.BackendCPU).
	Backend kmeans.Backend
}

// DefaultOptions matches the CLI's documented default (-i 10, GPU enabled).
func DefaultOptions() Options {
	return Options{Iterations: 10, Backend: kmeans.BackendGPU}
}

// Encode builds a SOG asset set from a Gaussian table using the default
// quantization options.
func Encode(t *table.DataTable) (*Asset, error) {
	return EncodeWithOptions(t, DefaultOptions())
}

// EncodeWithOptions is Encode with caller-controlled k-means iteration
// count and assignment backend.
func EncodeWithOptions(t *table.DataTable, opts Options) (*Asset, error) {
	if err := gaussian.Validate("sog.encode", t); err != nil {
		return nil, err
	}
	if opts.Iterations <= 0 {
		opts.Iterations = kmeansIterations
	}
	n := t.RowCount()
	order := morton.Order(points(t))
	sorted := t.Permute(order)

	width, height := textureDims(n)
	total := width * height

	asset := &Asset{Files: map[string][]byte{}}
	asset.Meta.Width, asset.Meta.Height, asset.Meta.Count = width, height, n

	if err := encodeMeans(sorted, total, asset); err != nil {
		return nil, err
	}
	if err := encodeQuats(sorted, total, asset); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(1))
	if err := encodeScales(sorted, total, opts, rng, asset); err != nil {
		return nil, err
	}
	if err := encodeSh0(sorted, total, opts, rng, asset); err != nil {
		return nil, err
	}
	band := gaussian.Bands(sorted)
	if band > 0 {
		if err := encodeShRest(sorted, band, total, opts, rng, asset); err != nil {
			return nil, err
		}
	}

	metaBytes, err := json.MarshalIndent(asset.Meta, "", "  ")
	if err != nil {
		return nil, errs.New(errs.CodecFailure, "sog.encode", err)
	}
	asset.Files["meta.json"] = metaBytes
	return asset, nil
}

func points(t *table.DataTable) []morton.Point {
	xcol, ycol, zcol := t.Column("x"), t.Column("y"), t.Column("z")
	n := t.RowCount()
	pts := make([]morton.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = morton.Point{X: xcol.F32[i], Y: ycol.F32[i], Z: zcol.F32[i]}
	}
	return pts
}

func textureDims(n int) (width, height int) {
	if n == 0 {
		return 4, 4
	}
	width = ceilToMultiple(int(math.Ceil(math.Sqrt(float64(n)))), 4)
	height = ceilToMultiple((n+width-1)/width, 4)
	return width, height
}

func ceilToMultiple(v, m int) int {
	if v <= 0 {
		return m
	}
	return ((v + m - 1) / m) * m
}

func signedLog(v float32) float32 {
	av := float64(v)
	sign := 1.0
	if av < 0 {
		sign, av = -1, -av
	}
	return float32(sign * math.Log1p(av))
}

func invSignedLog(v float32) float32 {
	sign := float32(1)
	av := v
	if av < 0 {
		sign, av = -1, -av
	}
	return sign * (float32(math.Exp(float64(av))) - 1)
}

func encodeMeans(t *table.DataTable, total int, asset *Asset) error {
	n := t.RowCount()
	xcol, ycol, zcol := t.Column("x"), t.Column("y"), t.Column("z")
	logged := make([][3]float32, n)
	var mins, maxs [3]float32
	mins = [3]float32{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	maxs = [3]float32{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	for i := 0; i < n; i++ {
		lx, ly, lz := signedLog(xcol.F32[i]), signedLog(ycol.F32[i]), signedLog(zcol.F32[i])
		logged[i] = [3]float32{lx, ly, lz}
		mins[0], maxs[0] = minf(mins[0], lx), maxf(maxs[0], lx)
		mins[1], maxs[1] = minf(mins[1], ly), maxf(maxs[1], ly)
		mins[2], maxs[2] = minf(mins[2], lz), maxf(maxs[2], lz)
	}
	if n == 0 {
		mins, maxs = [3]float32{}, [3]float32{}
	}

	lowRGBA := make([]byte, total*4)
	highRGBA := make([]byte, total*4)
	for i := 0; i < n; i++ {
		for axis := 0; axis < 3; axis++ {
			span := maxs[axis] - mins[axis]
			norm := float32(0)
			if span > 0 {
				norm = (logged[i][axis] - mins[axis]) / span
			}
			q := uint16(clamp01(norm) * 65535)
			lowRGBA[i*4+axis] = byte(q & 0xff)
			highRGBA[i*4+axis] = byte(q >> 8)
		}
		lowRGBA[i*4+3], highRGBA[i*4+3] = 255, 255
	}
	for i := n; i < total; i++ {
		lowRGBA[i*4+3], highRGBA[i*4+3] = 255, 255
	}

	lo, err := webp.EncodeLosslessRGBA(lowRGBA, widthOf(total, t), heightOf(total, t))
	if err != nil {
		return err
	}
	hi, err := webp.EncodeLosslessRGBA(highRGBA, widthOf(total, t), heightOf(total, t))
	if err != nil {
		return err
	}
	asset.Files["means_l.webp"] = lo
	asset.Files["means_u.webp"] = hi
	asset.Meta.Means.Mins, asset.Meta.Means.Maxs = mins, maxs
	asset.Meta.Means.Files = [2]string{"means_l.webp", "means_u.webp"}
	return nil
}

func encodeQuats(t *table.DataTable, total int, asset *Asset) error {
	n := t.RowCount()
	r0, r1, r2, r3 := t.Column("rot_0"), t.Column("rot_1"), t.Column("rot_2"), t.Column("rot_3")
	rgba := make([]byte, total*4)
	for i := 0; i < n; i++ {
		q := mathutil.Quat{W: r0.F32[i], X: r1.F32[i], Y: r2.F32[i], Z: r3.F32[i]}.Normalized()
		maxIdx, a, b, c := smallestThreeComponents(q)
		rgba[i*4+0] = floatToByte(a)
		rgba[i*4+1] = floatToByte(b)
		rgba[i*4+2] = floatToByte(c)
		rgba[i*4+3] = byte(maxIdx)
	}
	for i := n; i < total; i++ {
		rgba[i*4+3] = 0
	}
	img, err := webp.EncodeLosslessRGBA(rgba, widthOf(total, t), heightOf(total, t))
	if err != nil {
		return err
	}
	asset.Files["quats.webp"] = img
	asset.Meta.Quats.Files[0] = "quats.webp"
	return nil
}

// smallestThreeComponents sign-adjusts q so its largest-magnitude
// component is positive, then returns that component's index and the
// remaining three components biased to [0,1].
func smallestThreeComponents(q mathutil.Quat) (maxIdx int, a, b, c float32) {
	comps := [4]float32{q.W, q.X, q.Y, q.Z}
	maxIdx = 0
	maxAbs := absf(comps[0])
	for i := 1; i < 4; i++ {
		if absf(comps[i]) > maxAbs {
			maxAbs, maxIdx = absf(comps[i]), i
		}
	}
	if comps[maxIdx] < 0 {
		for i := range comps {
			comps[i] = -comps[i]
		}
	}
	var rest [3]float32
	j := 0
	for i := 0; i < 4; i++ {
		if i == maxIdx {
			continue
		}
		rest[j] = comps[i]
		j++
	}
	const sqrt2 = 1.4142135
	return maxIdx, rest[0]*sqrt2/2 + 0.5, rest[1]*sqrt2/2 + 0.5, rest[2]*sqrt2/2 + 0.5
}

func floatToByte(v float32) byte {
	return byte(clamp01(v) * 255)
}

func encodeScales(t *table.DataTable, total int, opts Options, rng *rand.Rand, asset *Asset) error {
	n := t.RowCount()
	s0, s1, s2 := t.Column("scale_0"), t.Column("scale_1"), t.Column("scale_2")

	points := make([][]float32, 0, n*3)
	for i := 0; i < n; i++ {
		points = append(points, []float32{s0.F32[i]}, []float32{s1.F32[i]}, []float32{s2.F32[i]})
	}
	result := kmeans.Run(points, codebookSize, opts.Iterations, opts.Backend, rng)

	rgba := make([]byte, total*4)
	for i := 0; i < n; i++ {
		rgba[i*4+0] = labelByte(result.Labels, i*3+0)
		rgba[i*4+1] = labelByte(result.Labels, i*3+1)
		rgba[i*4+2] = labelByte(result.Labels, i*3+2)
		rgba[i*4+3] = 255
	}
	for i := n; i < total; i++ {
		rgba[i*4+3] = 255
	}
	img, err := webp.EncodeLosslessRGBA(rgba, widthOf(total, t), heightOf(total, t))
	if err != nil {
		return err
	}
	asset.Files["scales.webp"] = img
	asset.Meta.Scales.Files[0] = "scales.webp"
	fillCodebook(&asset.Meta.Scales.Codebook, result.Centroids)
	return nil
}

func labelByte(labels []uint32, i int) byte {
	if i >= len(labels) {
		return 0
	}
	return byte(labels[i])
}

func fillCodebook(dst *[codebookSize]float32, centroids [][]float32) {
	for i := 0; i < codebookSize && i < len(centroids); i++ {
		if len(centroids[i]) > 0 {
			dst[i] = centroids[i][0]
		}
	}
}

func encodeSh0(t *table.DataTable, total int, opts Options, rng *rand.Rand, asset *Asset) error {
	n := t.RowCount()
	dc0, dc1, dc2 := t.Column("f_dc_0"), t.Column("f_dc_1"), t.Column("f_dc_2")
	op := t.Column("opacity")

	points := make([][]float32, 0, n*4)
	for i := 0; i < n; i++ {
		points = append(points, []float32{dc0.F32[i]}, []float32{dc1.F32[i]}, []float32{dc2.F32[i]}, []float32{op.F32[i]})
	}
	result := kmeans.Run(points, codebookSize, opts.Iterations, opts.Backend, rng)

	rgba := make([]byte, total*4)
	for i := 0; i < n; i++ {
		rgba[i*4+0] = labelByte(result.Labels, i*4+0)
		rgba[i*4+1] = labelByte(result.Labels, i*4+1)
		rgba[i*4+2] = labelByte(result.Labels, i*4+2)
		rgba[i*4+3] = labelByte(result.Labels, i*4+3)
	}
	img, err := webp.EncodeLosslessRGBA(rgba, widthOf(total, t), heightOf(total, t))
	if err != nil {
		return err
	}
	asset.Files["sh0.webp"] = img
	asset.Meta.Sh0.Files[0] = "sh0.webp"
	fillCodebook(&asset.Meta.Sh0.Codebook, result.Centroids)
	return nil
}

func encodeShRest(t *table.DataTable, band, total int, opts Options, rng *rand.Rand, asset *Asset) error {
	n := t.RowCount()
	coeffCount := gaussian.CoeffCount(band)
	dims := 3 * coeffCount

	cols := make([]*table.Column, dims)
	for i := 0; i < dims; i++ {
		cols[i] = t.Column(gaussian.RestColumnName(i))
	}

	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, dims)
		for d := 0; d < dims; d++ {
			v[d] = cols[d].F32[i]
		}
		vectors[i] = v
	}
	result := kmeans.Run(vectors, codebookSize, opts.Iterations, opts.Backend, rng)

	centroidRGBA := make([]byte, codebookSize*coeffCount*4) // coeffCount texels per centroid
	for c := 0; c < codebookSize && c < len(result.Centroids); c++ {
		centroid := result.Centroids[c]
		for coeff := 0; coeff < coeffCount; coeff++ {
			texel := c*coeffCount + coeff
			r := gaussian.RestIndex(0, coeff, band)
			g := gaussian.RestIndex(1, coeff, band)
			b := gaussian.RestIndex(2, coeff, band)
			centroidRGBA[texel*4+0] = floatToByte(centroid[r]/2 + 0.5)
			centroidRGBA[texel*4+1] = floatToByte(centroid[g]/2 + 0.5)
			centroidRGBA[texel*4+2] = floatToByte(centroid[b]/2 + 0.5)
			centroidRGBA[texel*4+3] = 255
		}
	}
	cw, ch := textureDims(codebookSize * coeffCount)
	centroidImg, err := webp.EncodeLosslessRGBA(padRGBA(centroidRGBA, cw*ch), cw, ch)
	if err != nil {
		return err
	}

	labelRGBA := make([]byte, total*4)
	for i := 0; i < n; i++ {
		label := uint16(0)
		if i < len(result.Labels) {
			label = uint16(result.Labels[i])
		}
		labelRGBA[i*4+0] = byte(label & 0xff)
		labelRGBA[i*4+1] = byte(label >> 8)
		labelRGBA[i*4+3] = 255
	}
	for i := n; i < total; i++ {
		labelRGBA[i*4+3] = 255
	}
	lw, lh := widthOf(total, t), heightOf(total, t)
	labelImg, err := webp.EncodeLosslessRGBA(labelRGBA, lw, lh)
	if err != nil {
		return err
	}

	asset.Files["shN_centroids.webp"] = centroidImg
	asset.Files["shN_labels.webp"] = labelImg
	meta := &ShNMeta{Bands: band, Files: [2]string{"shN_centroids.webp", "shN_labels.webp"}}
	asset.Meta.ShN = meta
	return nil
}

func padRGBA(rgba []byte, total int) []byte {
	need := total * 4
	if len(rgba) >= need {
		return rgba[:need]
	}
	out := make([]byte, need)
	copy(out, rgba)
	return out
}

func widthOf(_ int, t *table.DataTable) int {
	w, _ := textureDims(t.RowCount())
	return w
}

func heightOf(_ int, t *table.DataTable) int {
	_, h := textureDims(t.RowCount())
	return h
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// WriteZip bundles every asset file into a single .sog zip container.
func WriteZip(w io.Writer, asset *Asset) error {
	zw := zipfile.NewWriter(w)
	for name, data := range asset.Files {
		if err := zw.WriteFile(name, data); err != nil {
			return errs.New(errs.IoFailure, "sog.writezip", err)
		}
	}
	return zw.Close()
}

// Decode reconstructs a Gaussian table from a SOG asset's files and
// manifest.
func Decode(files map[string][]byte) (*table.DataTable, error) {
	var meta Meta
	if err := json.Unmarshal(files["meta.json"], &meta); err != nil {
		return nil, errs.New(errs.MalformedInput, "sog.decode", err)
	}
	n := meta.Count

	lo, err := webp.DecodeRGBA(files[meta.Means.Files[0]])
	if err != nil {
		return nil, err
	}
	hi, err := webp.DecodeRGBA(files[meta.Means.Files[1]])
	if err != nil {
		return nil, err
	}

	x := table.NewColumn("x", table.F32, n)
	y := table.NewColumn("y", table.F32, n)
	z := table.NewColumn("z", table.F32, n)
	for i := 0; i < n; i++ {
		for axis, col := range []*table.Column{x, y, z} {
			q := uint16(lo.RGBA[i*4+axis]) | uint16(hi.RGBA[i*4+axis])<<8
			norm := float32(q) / 65535
			span := meta.Means.Maxs[axis] - meta.Means.Mins[axis]
			logged := meta.Means.Mins[axis] + norm*span
			col.F32[i] = invSignedLog(logged)
		}
	}

	quatsImg, err := webp.DecodeRGBA(files[meta.Quats.Files[0]])
	if err != nil {
		return nil, err
	}
	r0 := table.NewColumn("rot_0", table.F32, n)
	r1 := table.NewColumn("rot_1", table.F32, n)
	r2 := table.NewColumn("rot_2", table.F32, n)
	r3 := table.NewColumn("rot_3", table.F32, n)
	for i := 0; i < n; i++ {
		a := byteToFloat(quatsImg.RGBA[i*4+0])
		b := byteToFloat(quatsImg.RGBA[i*4+1])
		c := byteToFloat(quatsImg.RGBA[i*4+2])
		maxIdx := int(quatsImg.RGBA[i*4+3])
		q := expandSmallestThree(maxIdx, a, b, c)
		r0.F32[i], r1.F32[i], r2.F32[i], r3.F32[i] = q.W, q.X, q.Y, q.Z
	}

	scalesImg, err := webp.DecodeRGBA(files[meta.Scales.Files[0]])
	if err != nil {
		return nil, err
	}
	s0 := table.NewColumn("scale_0", table.F32, n)
	s1 := table.NewColumn("scale_1", table.F32, n)
	s2 := table.NewColumn("scale_2", table.F32, n)
	for i := 0; i < n; i++ {
		s0.F32[i] = meta.Scales.Codebook[scalesImg.RGBA[i*4+0]]
		s1.F32[i] = meta.Scales.Codebook[scalesImg.RGBA[i*4+1]]
		s2.F32[i] = meta.Scales.Codebook[scalesImg.RGBA[i*4+2]]
	}

	sh0Img, err := webp.DecodeRGBA(files[meta.Sh0.Files[0]])
	if err != nil {
		return nil, err
	}
	dc0 := table.NewColumn("f_dc_0", table.F32, n)
	dc1 := table.NewColumn("f_dc_1", table.F32, n)
	dc2 := table.NewColumn("f_dc_2", table.F32, n)
	opacity := table.NewColumn("opacity", table.F32, n)
	for i := 0; i < n; i++ {
		dc0.F32[i] = meta.Sh0.Codebook[sh0Img.RGBA[i*4+0]]
		dc1.F32[i] = meta.Sh0.Codebook[sh0Img.RGBA[i*4+1]]
		dc2.F32[i] = meta.Sh0.Codebook[sh0Img.RGBA[i*4+2]]
		opacity.F32[i] = meta.Sh0.Codebook[sh0Img.RGBA[i*4+3]]
	}

	cols := []*table.Column{x, y, z, s0, s1, s2, r0, r1, r2, r3, dc0, dc1, dc2, opacity}

	if meta.ShN != nil {
		band := meta.ShN.Bands
		coeffCount := gaussian.CoeffCount(band)
		centroidsImg, err := webp.DecodeRGBA(files[meta.ShN.Files[0]])
		if err != nil {
			return nil, err
		}
		labelsImg, err := webp.DecodeRGBA(files[meta.ShN.Files[1]])
		if err != nil {
			return nil, err
		}
		restCols := make([]*table.Column, 3*coeffCount)
		for i := range restCols {
			restCols[i] = table.NewColumn(gaussian.RestColumnName(i), table.F32, n)
		}
		for i := 0; i < n; i++ {
			label := int(labelsImg.RGBA[i*4+0]) | int(labelsImg.RGBA[i*4+1])<<8
			for coeff := 0; coeff < coeffCount; coeff++ {
				texel := label*coeffCount + coeff
				if texel*4+3 >= len(centroidsImg.RGBA) {
					continue
				}
				rv := byteToFloat(centroidsImg.RGBA[texel*4+0])*2 - 1
				gv := byteToFloat(centroidsImg.RGBA[texel*4+1])*2 - 1
				bv := byteToFloat(centroidsImg.RGBA[texel*4+2])*2 - 1
				restCols[gaussian.RestIndex(0, coeff, band)].F32[i] = rv
				restCols[gaussian.RestIndex(1, coeff, band)].F32[i] = gv
				restCols[gaussian.RestIndex(2, coeff, band)].F32[i] = bv
			}
		}
		cols = append(cols, restCols...)
	}

	dt, err := table.New(cols...)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "sog.decode", err)
	}
	return dt, nil
}

func byteToFloat(b byte) float32 { return float32(b) / 255 }

func expandSmallestThree(maxIdx int, a, b, c float32) mathutil.Quat {
	const sqrt2 = 1.4142135
	rest := [3]float32{(a - 0.5) * 2 / sqrt2, (b - 0.5) * 2 / sqrt2, (c - 0.5) * 2 / sqrt2}
	sumSq := rest[0]*rest[0] + rest[1]*rest[1] + rest[2]*rest[2]
	maxComp := float32(0)
	if sumSq < 1 {
		maxComp = float32(math.Sqrt(float64(1 - sumSq)))
	}
	var comps [4]float32
	j := 0
	for i := 0; i < 4; i++ {
		if i == maxIdx {
			comps[i] = maxComp
			continue
		}
		comps[i] = rest[j]
		j++
	}
	return mathutil.Quat{W: comps[0], X: comps[1], Y: comps[2], Z: comps[3]}.Normalized()
}
