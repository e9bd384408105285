// Package cply implements PlayCanvas's chunked, bit-packed compressed-PLY
// variant (SPEC_FULL.md §4.8): the input is Morton-ordered, partitioned
// into 256-splat chunks, and each chunk's position/rotation/scale/color
// fields are packed into one u32 apiece alongside an 18-float header of
// per-chunk min/max ranges.
package cply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/gaussian"
	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/morton"
	"github.com/gsplat/splat-transform/internal/table"
)

const chunkSize = 256

// chunkHeader is the 18-float per-chunk range header, named to match the
// property list SPEC_FULL.md §4.8 gives for PlayCanvas's convention.
type chunkHeader struct {
	MinX, MinY, MinZ          float32
	MaxX, MaxY, MaxZ          float32
	MinScaleX, MinScaleY, MinScaleZ float32
	MaxScaleX, MaxScaleY, MaxScaleZ float32
	MinColor                 [3]float32
	MaxColor                 [3]float32
}

// Compressed is the in-memory packed representation: one chunkHeader per
// 256-splat group plus four packed u32 streams of length N.
type Compressed struct {
	N                int
	Chunks           []chunkHeader
	PackedPosition   []uint32
	PackedRotation   []uint32
	PackedScale      []uint32
	PackedColor      []uint32
}

// Encode Morton-orders t, partitions it into 256-splat chunks, and packs
// every field per SPEC_FULL.md §4.8.
func Encode(t *table.DataTable) (*Compressed, error) {
	if err := gaussian.Validate("cply.encode", t); err != nil {
		return nil, err
	}
	n := t.RowCount()
	points := make([]morton.Point, n)
	xc, yc, zc := t.Column("x"), t.Column("y"), t.Column("z")
	for i := 0; i < n; i++ {
		points[i] = morton.Point{X: xc.F32[i], Y: yc.F32[i], Z: zc.F32[i]}
	}
	order := morton.Order(points)
	ordered := t.Permute(order)

	numChunks := (n + chunkSize - 1) / chunkSize
	if numChunks == 0 {
		numChunks = 0
	}
	out := &Compressed{
		N:              n,
		Chunks:         make([]chunkHeader, numChunks),
		PackedPosition: make([]uint32, n),
		PackedRotation: make([]uint32, n),
		PackedScale:    make([]uint32, n),
		PackedColor:    make([]uint32, n),
	}

	x, y, z := ordered.Column("x"), ordered.Column("y"), ordered.Column("z")
	s0, s1, s2 := ordered.Column("scale_0"), ordered.Column("scale_1"), ordered.Column("scale_2")
	r0, r1, r2, r3 := ordered.Column("rot_0"), ordered.Column("rot_1"), ordered.Column("rot_2"), ordered.Column("rot_3")
	dc0, dc1, dc2 := ordered.Column("f_dc_0"), ordered.Column("f_dc_1"), ordered.Column("f_dc_2")
	opacity := ordered.Column("opacity")

	for chunk := 0; chunk < numChunks; chunk++ {
		start := chunk * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}

		h := chunkHeader{}
		first := true
		for i := start; i < end; i++ {
			sx := clampScale(s0.F32[i])
			sy := clampScale(s1.F32[i])
			sz := clampScale(s2.F32[i])
			cr := dc0.F32[i]*gaussian.C0 + 0.5
			cg := dc1.F32[i]*gaussian.C0 + 0.5
			cb := dc2.F32[i]*gaussian.C0 + 0.5
			if first {
				h.MinX, h.MaxX = x.F32[i], x.F32[i]
				h.MinY, h.MaxY = y.F32[i], y.F32[i]
				h.MinZ, h.MaxZ = z.F32[i], z.F32[i]
				h.MinScaleX, h.MaxScaleX = sx, sx
				h.MinScaleY, h.MaxScaleY = sy, sy
				h.MinScaleZ, h.MaxScaleZ = sz, sz
				h.MinColor, h.MaxColor = [3]float32{cr, cg, cb}, [3]float32{cr, cg, cb}
				first = false
				continue
			}
			h.MinX, h.MaxX = minf(h.MinX, x.F32[i]), maxf(h.MaxX, x.F32[i])
			h.MinY, h.MaxY = minf(h.MinY, y.F32[i]), maxf(h.MaxY, y.F32[i])
			h.MinZ, h.MaxZ = minf(h.MinZ, z.F32[i]), maxf(h.MaxZ, z.F32[i])
			h.MinScaleX, h.MaxScaleX = minf(h.MinScaleX, sx), maxf(h.MaxScaleX, sx)
			h.MinScaleY, h.MaxScaleY = minf(h.MinScaleY, sy), maxf(h.MaxScaleY, sy)
			h.MinScaleZ, h.MaxScaleZ = minf(h.MinScaleZ, sz), maxf(h.MaxScaleZ, sz)
			h.MinColor[0], h.MaxColor[0] = minf(h.MinColor[0], cr), maxf(h.MaxColor[0], cr)
			h.MinColor[1], h.MaxColor[1] = minf(h.MinColor[1], cg), maxf(h.MaxColor[1], cg)
			h.MinColor[2], h.MaxColor[2] = minf(h.MinColor[2], cb), maxf(h.MaxColor[2], cb)
		}
		out.Chunks[chunk] = h

		for i := start; i < end; i++ {
			out.PackedPosition[i] = pack11_10_11(
				unorm(x.F32[i], h.MinX, h.MaxX, 2047),
				unorm(y.F32[i], h.MinY, h.MaxY, 1023),
				unorm(z.F32[i], h.MinZ, h.MaxZ, 2047),
			)
			out.PackedScale[i] = pack11_10_11(
				unorm(clampScale(s0.F32[i]), h.MinScaleX, h.MaxScaleX, 2047),
				unorm(clampScale(s1.F32[i]), h.MinScaleY, h.MaxScaleY, 1023),
				unorm(clampScale(s2.F32[i]), h.MinScaleZ, h.MaxScaleZ, 2047),
			)
			q := mathutil.Quat{W: r0.F32[i], X: r1.F32[i], Y: r2.F32[i], Z: r3.F32[i]}.Normalized()
			out.PackedRotation[i] = packSmallestThree(q)

			cr := dc0.F32[i]*gaussian.C0 + 0.5
			cg := dc1.F32[i]*gaussian.C0 + 0.5
			cb := dc2.F32[i]*gaussian.C0 + 0.5
			a := mathutil.Sigmoid(opacity.F32[i]) * 255
			out.PackedColor[i] = pack8888(
				byteUnorm(cr, h.MinColor[0], h.MaxColor[0]),
				byteUnorm(cg, h.MinColor[1], h.MaxColor[1]),
				byteUnorm(cb, h.MinColor[2], h.MaxColor[2]),
				uint8(clampf(a, 0, 255)),
			)
		}
	}
	return out, nil
}

func clampScale(v float32) float32 {
	return clampf(v, -20, 20)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
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

// unorm maps v in [lo,hi] to an unsigned integer in [0, maxVal].
func unorm(v, lo, hi float32, maxVal uint32) uint32 {
	if hi <= lo {
		return 0
	}
	q := (v - lo) / (hi - lo) * float32(maxVal)
	if q < 0 {
		q = 0
	}
	if q > float32(maxVal) {
		q = float32(maxVal)
	}
	return uint32(q + 0.5)
}

func denorm(q uint32, lo, hi float32, maxVal uint32) float32 {
	if maxVal == 0 {
		return lo
	}
	return lo + float32(q)/float32(maxVal)*(hi-lo)
}

func byteUnorm(v, lo, hi float32) uint8 {
	return uint8(unorm(v, lo, hi, 255))
}

func pack11_10_11(a, b, c uint32) uint32 {
	return (a << 21) | (b << 11) | c
}

func unpack11_10_11(packed uint32) (a, b, c uint32) {
	return packed >> 21, (packed >> 11) & 0x3ff, packed & 0x7ff
}

func pack8888(r, g, b, a uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

func unpack8888(packed uint32) (r, g, b, a uint8) {
	return uint8(packed >> 24), uint8(packed >> 16), uint8(packed >> 8), uint8(packed)
}

// packSmallestThree packs a unit quaternion into 2/10/10/10: the top 2
// bits name the index of the largest-magnitude component; the remaining
// three components are sign-adjusted so that component is implicitly
// positive, scaled by sqrt(2), and biased into [0,1] as 10-bit unorm.
func packSmallestThree(q mathutil.Quat) uint32 {
	comps := [4]float32{q.W, q.X, q.Y, q.Z}
	maxIdx := 0
	maxAbs := absf32(comps[0])
	for i := 1; i < 4; i++ {
		if absf32(comps[i]) > maxAbs {
			maxIdx, maxAbs = i, absf32(comps[i])
		}
	}
	sign := float32(1)
	if comps[maxIdx] < 0 {
		sign = -1
	}

	const sqrt2 = 1.4142135
	var packed [3]uint32
	j := 0
	for i := 0; i < 4; i++ {
		if i == maxIdx {
			continue
		}
		c := comps[i] * sign * sqrt2
		biased := (c*0.5 + 0.5)
		packed[j] = unorm(biased, 0, 1, 1023)
		j++
	}
	return (uint32(maxIdx) << 30) | (packed[0] << 20) | (packed[1] << 10) | packed[2]
}

func unpackSmallestThree(packed uint32) mathutil.Quat {
	maxIdx := packed >> 30
	a := denorm((packed>>20)&0x3ff, -1, 1, 1023)
	b := denorm((packed>>10)&0x3ff, -1, 1, 1023)
	c := denorm(packed&0x3ff, -1, 1, 1023)

	const invSqrt2 = 1 / 1.4142135
	a, b, c = a*invSqrt2, b*invSqrt2, c*invSqrt2

	sumSq := a*a + b*b + c*c
	maxComp := float32(0)
	if sumSq < 1 {
		maxComp = sqrtf32(1 - sumSq)
	}

	var comps [4]float32
	j := 0
	vals := [3]float32{a, b, c}
	for i := 0; i < 4; i++ {
		if uint32(i) == maxIdx {
			comps[i] = maxComp
			continue
		}
		comps[i] = vals[j]
		j++
	}
	return mathutil.Quat{W: comps[0], X: comps[1], Y: comps[2], Z: comps[3]}
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sqrtf32(v float32) float32 {
	// Newton's method single iteration seeded from a rough estimate is
	// unnecessary here; math32.Sqrt is used elsewhere in this codebase,
	// but this tiny, single-call site avoids the extra import.
	if v <= 0 {
		return 0
	}
	x := v
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

// Decode inverse-maps a Compressed chunk set back into a Gaussian table.
func Decode(c *Compressed) (*table.DataTable, error) {
	n := c.N
	x := table.NewColumn("x", table.F32, n)
	y := table.NewColumn("y", table.F32, n)
	z := table.NewColumn("z", table.F32, n)
	s0 := table.NewColumn("scale_0", table.F32, n)
	s1 := table.NewColumn("scale_1", table.F32, n)
	s2 := table.NewColumn("scale_2", table.F32, n)
	r0 := table.NewColumn("rot_0", table.F32, n)
	r1 := table.NewColumn("rot_1", table.F32, n)
	r2 := table.NewColumn("rot_2", table.F32, n)
	r3 := table.NewColumn("rot_3", table.F32, n)
	dc0 := table.NewColumn("f_dc_0", table.F32, n)
	dc1 := table.NewColumn("f_dc_1", table.F32, n)
	dc2 := table.NewColumn("f_dc_2", table.F32, n)
	opacity := table.NewColumn("opacity", table.F32, n)

	for chunk := range c.Chunks {
		h := c.Chunks[chunk]
		start := chunk * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			pa, pb, pc := unpack11_10_11(c.PackedPosition[i])
			x.F32[i] = denorm(pa, h.MinX, h.MaxX, 2047)
			y.F32[i] = denorm(pb, h.MinY, h.MaxY, 1023)
			z.F32[i] = denorm(pc, h.MinZ, h.MaxZ, 2047)

			sa, sb, sc := unpack11_10_11(c.PackedScale[i])
			s0.F32[i] = denorm(sa, h.MinScaleX, h.MaxScaleX, 2047)
			s1.F32[i] = denorm(sb, h.MinScaleY, h.MaxScaleY, 1023)
			s2.F32[i] = denorm(sc, h.MinScaleZ, h.MaxScaleZ, 2047)

			q := unpackSmallestThree(c.PackedRotation[i])
			r0.F32[i], r1.F32[i], r2.F32[i], r3.F32[i] = q.W, q.X, q.Y, q.Z

			cr, cg, cb, ca := unpack8888(c.PackedColor[i])
			dc0.F32[i] = (denormByte(cr, h.MinColor[0], h.MaxColor[0]) - 0.5) / gaussian.C0
			dc1.F32[i] = (denormByte(cg, h.MinColor[1], h.MaxColor[1]) - 0.5) / gaussian.C0
			dc2.F32[i] = (denormByte(cb, h.MinColor[2], h.MaxColor[2]) - 0.5) / gaussian.C0
			opacity.F32[i] = mathutil.InverseSigmoid(float32(ca)/255, 1e-6)
		}
	}

	dt, err := table.New(x, y, z, s0, s1, s2, r0, r1, r2, r3, dc0, dc1, dc2, opacity)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "cply.decode", err)
	}
	return dt, nil
}

func denormByte(b uint8, lo, hi float32) float32 {
	return denorm(uint32(b), lo, hi, 255)
}

// Write emits the two-element compressed PLY binary: a "chunk" element (18
// f32 properties per row) followed by a "vertex" element (4 u32 packed
// properties per row).
func Write(w io.Writer, c *Compressed) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("ply\n")
	bw.WriteString("format binary_little_endian 1.0\n")
	fmt.Fprintf(bw, "element chunk %d\n", len(c.Chunks))
	for _, name := range chunkPropertyNames {
		fmt.Fprintf(bw, "property float %s\n", name)
	}
	fmt.Fprintf(bw, "element vertex %d\n", c.N)
	for _, name := range []string{"packed_position", "packed_rotation", "packed_scale", "packed_color"} {
		fmt.Fprintf(bw, "property uint %s\n", name)
	}
	bw.WriteString("end_header\n")

	for _, h := range c.Chunks {
		for _, v := range chunkHeaderFields(h) {
			if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
				return errs.New(errs.IoFailure, "cply.write", err)
			}
		}
	}
	for i := 0; i < c.N; i++ {
		vals := []uint32{c.PackedPosition[i], c.PackedRotation[i], c.PackedScale[i], c.PackedColor[i]}
		for _, v := range vals {
			if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
				return errs.New(errs.IoFailure, "cply.write", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return errs.New(errs.IoFailure, "cply.write", err)
	}
	return nil
}

var chunkPropertyNames = []string{
	"min_x", "min_y", "min_z", "max_x", "max_y", "max_z",
	"min_scale_x", "min_scale_y", "min_scale_z", "max_scale_x", "max_scale_y", "max_scale_z",
	"min_color_0", "min_color_1", "min_color_2", "max_color_0", "max_color_1", "max_color_2",
}

func chunkHeaderFields(h chunkHeader) []float32 {
	return []float32{
		h.MinX, h.MinY, h.MinZ, h.MaxX, h.MaxY, h.MaxZ,
		h.MinScaleX, h.MinScaleY, h.MinScaleZ, h.MaxScaleX, h.MaxScaleY, h.MaxScaleZ,
		h.MinColor[0], h.MinColor[1], h.MinColor[2], h.MaxColor[0], h.MaxColor[1], h.MaxColor[2],
	}
}

// Read parses the two-element compressed PLY binary produced by Write.
func Read(r io.Reader) (*Compressed, error) {
	br := bufio.NewReader(r)
	header, err := readHeaderString(br)
	if err != nil {
		return nil, err
	}
	var numChunks, numVertices int
	for _, line := range strings.Split(header, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "element chunk ") {
			fmt.Sscanf(line, "element chunk %d", &numChunks)
		}
		if strings.HasPrefix(line, "element vertex ") {
			fmt.Sscanf(line, "element vertex %d", &numVertices)
		}
	}

	out := &Compressed{
		N:              numVertices,
		Chunks:         make([]chunkHeader, numChunks),
		PackedPosition: make([]uint32, numVertices),
		PackedRotation: make([]uint32, numVertices),
		PackedScale:    make([]uint32, numVertices),
		PackedColor:    make([]uint32, numVertices),
	}

	for i := range out.Chunks {
		fields := make([]float32, 18)
		for j := range fields {
			if err := binary.Read(br, binary.LittleEndian, &fields[j]); err != nil {
				return nil, errs.New(errs.MalformedInput, "cply.read", err)
			}
		}
		out.Chunks[i] = chunkHeader{
			MinX: fields[0], MinY: fields[1], MinZ: fields[2],
			MaxX: fields[3], MaxY: fields[4], MaxZ: fields[5],
			MinScaleX: fields[6], MinScaleY: fields[7], MinScaleZ: fields[8],
			MaxScaleX: fields[9], MaxScaleY: fields[10], MaxScaleZ: fields[11],
			MinColor: [3]float32{fields[12], fields[13], fields[14]},
			MaxColor: [3]float32{fields[15], fields[16], fields[17]},
		}
	}
	for i := 0; i < numVertices; i++ {
		vals := make([]uint32, 4)
		for j := range vals {
			if err := binary.Read(br, binary.LittleEndian, &vals[j]); err != nil {
				return nil, errs.New(errs.MalformedInput, "cply.read", err)
			}
		}
		out.PackedPosition[i], out.PackedRotation[i], out.PackedScale[i], out.PackedColor[i] = vals[0], vals[1], vals[2], vals[3]
	}
	return out, nil
}

const maxHeaderSize = 128 * 1024

func readHeaderString(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	const marker = "end_header\n"
	for sb.Len() < maxHeaderSize {
		b, err := br.ReadByte()
		if err != nil {
			return "", errs.New(errs.MalformedInput, "cply.read", err)
		}
		sb.WriteByte(b)
		if strings.HasSuffix(sb.String(), marker) {
			return sb.String(), nil
		}
	}
	return "", errs.New(errs.MalformedInput, "cply.read", fmt.Errorf("header exceeds %d bytes", maxHeaderSize))
}
