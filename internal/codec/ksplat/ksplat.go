// Package ksplat reads and writes mkkellogg's .ksplat format
// (SPEC_FULL.md §4.9): a 4 KiB main header followed by up to maxSections
// 1 KiB section headers at fixed offsets, each describing a contiguous
// run of splats compressed at one of three levels. Mode 0 stores raw
// float32 fields. Modes 1 and 2 quantize positions to 16 bits relative to
// per-bucket centroids and store scales/rotations as float16; mode 2
// additionally quantizes SH-rest coefficients to a byte via
// internal/quantization's scalar quantizer against a per-section
// [minHarmonic, maxHarmonic] range, while mode 1 keeps them as float16.
package ksplat

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/gaussian"
	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/quantization"
	"github.com/gsplat/splat-transform/internal/table"
)

const (
	magic            = 0x4c50534b // "KSPL" little-endian
	mainHeaderSize   = 4096
	sectionHeaderSize = 1024
	maxSections      = 1
)

// CompressionMode selects the per-section encoding level.
type CompressionMode uint32

const (
	ModeRaw        CompressionMode = 0
	ModeFloat16    CompressionMode = 1
	ModeQuantized8 CompressionMode = 2
)

// Options controls how Encode lays out a section.
type Options struct {
	Mode       CompressionMode
	BucketSize int // points per spatial bucket, modes 1 and 2 only
}

// DefaultOptions matches the reference encoder's typical bucket size.
func DefaultOptions() Options {
	return Options{Mode: ModeRaw, BucketSize: 256}
}

type sectionHeader struct {
	SplatCount      uint32
	Mode            uint32
	BucketSize      uint32
	BucketCount     uint32
	BlockSize       float32
	MinX, MinY, MinZ float32
	MaxX, MaxY, MaxZ float32
	ShDegree        uint32
	MinHarmonic     float32
	MaxHarmonic     float32
}

// Write serializes t into the .ksplat container using opts.
func Write(w io.Writer, t *table.DataTable, opts Options) error {
	if err := gaussian.Validate("ksplat.write", t); err != nil {
		return err
	}
	n := t.RowCount()
	band := gaussian.Bands(t)
	coeffCount := gaussian.CoeffCount(band)

	main := make([]byte, mainHeaderSize)
	binary.LittleEndian.PutUint32(main[0:4], magic)
	binary.LittleEndian.PutUint32(main[4:8], 1) // version
	binary.LittleEndian.PutUint32(main[8:12], 1) // section count

	bucketSize := opts.BucketSize
	if bucketSize <= 0 {
		bucketSize = 256
	}
	bucketCount := (n + bucketSize - 1) / bucketSize
	if bucketCount == 0 {
		bucketCount = 1
	}

	minX, minY, minZ := float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))
	maxX, maxY, maxZ := float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))
	xcol, ycol, zcol := t.Column("x"), t.Column("y"), t.Column("z")
	for i := 0; i < n; i++ {
		minX, maxX = minf(minX, xcol.F32[i]), maxf(maxX, xcol.F32[i])
		minY, maxY = minf(minY, ycol.F32[i]), maxf(maxY, ycol.F32[i])
		minZ, maxZ = minf(minZ, zcol.F32[i]), maxf(maxZ, zcol.F32[i])
	}
	if n == 0 {
		minX, minY, minZ, maxX, maxY, maxZ = 0, 0, 0, 0, 0, 0
	}

	minHarm, maxHarm := float32(math.Inf(1)), float32(math.Inf(-1))
	if coeffCount > 0 && opts.Mode == ModeQuantized8 {
		for i := 0; i < 3*coeffCount; i++ {
			c := t.Column(gaussian.RestColumnName(i))
			for r := 0; r < n; r++ {
				minHarm, maxHarm = minf(minHarm, c.F32[r]), maxf(maxHarm, c.F32[r])
			}
		}
	}
	if minHarm > maxHarm {
		minHarm, maxHarm = -1, 1
	}

	sh := sectionHeader{
		SplatCount:  uint32(n),
		Mode:        uint32(opts.Mode),
		BucketSize:  uint32(bucketSize),
		BucketCount: uint32(bucketCount),
		BlockSize:   spanOf(minX, maxX, minY, maxY, minZ, maxZ),
		MinX: minX, MinY: minY, MinZ: minZ,
		MaxX: maxX, MaxY: maxY, MaxZ: maxZ,
		ShDegree:    uint32(band),
		MinHarmonic: minHarm,
		MaxHarmonic: maxHarm,
	}

	sectionHeaderBytes := make([]byte, sectionHeaderSize)
	writeSectionHeader(sectionHeaderBytes, sh)

	var body bytes.Buffer
	if err := writeSectionBody(&body, t, sh, opts.Mode, coeffCount); err != nil {
		return err
	}

	if _, err := w.Write(main); err != nil {
		return errs.New(errs.IoFailure, "ksplat.write", err)
	}
	if _, err := w.Write(sectionHeaderBytes); err != nil {
		return errs.New(errs.IoFailure, "ksplat.write", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return errs.New(errs.IoFailure, "ksplat.write", err)
	}
	return nil
}

func writeSectionHeader(b []byte, h sectionHeader) {
	binary.LittleEndian.PutUint32(b[0:4], h.SplatCount)
	binary.LittleEndian.PutUint32(b[4:8], h.Mode)
	binary.LittleEndian.PutUint32(b[8:12], h.BucketSize)
	binary.LittleEndian.PutUint32(b[12:16], h.BucketCount)
	putF32(b[16:20], h.BlockSize)
	putF32(b[20:24], h.MinX)
	putF32(b[24:28], h.MinY)
	putF32(b[28:32], h.MinZ)
	putF32(b[32:36], h.MaxX)
	putF32(b[36:40], h.MaxY)
	putF32(b[40:44], h.MaxZ)
	binary.LittleEndian.PutUint32(b[44:48], h.ShDegree)
	putF32(b[48:52], h.MinHarmonic)
	putF32(b[52:56], h.MaxHarmonic)
}

func readSectionHeader(b []byte) sectionHeader {
	return sectionHeader{
		SplatCount:  binary.LittleEndian.Uint32(b[0:4]),
		Mode:        binary.LittleEndian.Uint32(b[4:8]),
		BucketSize:  binary.LittleEndian.Uint32(b[8:12]),
		BucketCount: binary.LittleEndian.Uint32(b[12:16]),
		BlockSize:   getF32(b[16:20]),
		MinX:        getF32(b[20:24]),
		MinY:        getF32(b[24:28]),
		MinZ:        getF32(b[28:32]),
		MaxX:        getF32(b[32:36]),
		MaxY:        getF32(b[36:40]),
		MaxZ:        getF32(b[40:44]),
		ShDegree:    binary.LittleEndian.Uint32(b[44:48]),
		MinHarmonic: getF32(b[48:52]),
		MaxHarmonic: getF32(b[52:56]),
	}
}

func writeSectionBody(w *bytes.Buffer, t *table.DataTable, sh sectionHeader, mode CompressionMode, coeffCount int) error {
	n := int(sh.SplatCount)
	xcol, ycol, zcol := t.Column("x"), t.Column("y"), t.Column("z")
	s0, s1, s2 := t.Column("scale_0"), t.Column("scale_1"), t.Column("scale_2")
	r0, r1, r2, r3 := t.Column("rot_0"), t.Column("rot_1"), t.Column("rot_2"), t.Column("rot_3")
	dc0, dc1, dc2 := t.Column("f_dc_0"), t.Column("f_dc_1"), t.Column("f_dc_2")
	op := t.Column("opacity")

	harmonicQ := quantization.NewScalarQuantizer()
	if mode == ModeQuantized8 {
		harmonicQ.TrainFromRange(sh.MinHarmonic, sh.MaxHarmonic)
	}

	bucketSize := int(sh.BucketSize)
	centroids := bucketCentroids(xcol, ycol, zcol, n, bucketSize)
	if mode != ModeRaw {
		for _, c := range centroids {
			writeF32(w, c[0])
			writeF32(w, c[1])
			writeF32(w, c[2])
		}
	}

	for i := 0; i < n; i++ {
		switch mode {
		case ModeRaw:
			writeF32(w, xcol.F32[i])
			writeF32(w, ycol.F32[i])
			writeF32(w, zcol.F32[i])
		default:
			bucket := i / bucketSize
			c := centroids[bucket]
			writeU16(w, quantizeOffset(xcol.F32[i]-c[0], sh.BlockSize))
			writeU16(w, quantizeOffset(ycol.F32[i]-c[1], sh.BlockSize))
			writeU16(w, quantizeOffset(zcol.F32[i]-c[2], sh.BlockSize))
		}

		switch mode {
		case ModeRaw:
			writeF32(w, s0.F32[i])
			writeF32(w, s1.F32[i])
			writeF32(w, s2.F32[i])
			writeF32(w, r0.F32[i])
			writeF32(w, r1.F32[i])
			writeF32(w, r2.F32[i])
			writeF32(w, r3.F32[i])
		default:
			writeU16(w, mathutil.Float32ToFloat16(s0.F32[i]))
			writeU16(w, mathutil.Float32ToFloat16(s1.F32[i]))
			writeU16(w, mathutil.Float32ToFloat16(s2.F32[i]))
			writeU16(w, mathutil.Float32ToFloat16(r0.F32[i]))
			writeU16(w, mathutil.Float32ToFloat16(r1.F32[i]))
			writeU16(w, mathutil.Float32ToFloat16(r2.F32[i]))
			writeU16(w, mathutil.Float32ToFloat16(r3.F32[i]))
		}

		writeF32(w, dc0.F32[i])
		writeF32(w, dc1.F32[i])
		writeF32(w, dc2.F32[i])
		writeF32(w, op.F32[i])

		for coeff := 0; coeff < coeffCount; coeff++ {
			for channel := 0; channel < 3; channel++ {
				idx := gaussian.RestIndex(channel, coeff, int(sh.ShDegree))
				v := t.Column(gaussian.RestColumnName(idx)).F32[i]
				switch mode {
				case ModeRaw, ModeFloat16:
					if mode == ModeRaw {
						writeF32(w, v)
					} else {
						writeU16(w, mathutil.Float32ToFloat16(v))
					}
				case ModeQuantized8:
					w.WriteByte(byte(harmonicQ.Quantize([]float32{v})[0]))
				}
			}
		}
	}
	return nil
}

func bucketCentroids(xcol, ycol, zcol *table.Column, n, bucketSize int) [][3]float32 {
	if bucketSize <= 0 {
		bucketSize = n
		if bucketSize == 0 {
			bucketSize = 1
		}
	}
	count := (n + bucketSize - 1) / bucketSize
	if count == 0 {
		count = 1
	}
	centroids := make([][3]float32, count)
	for b := 0; b < count; b++ {
		start := b * bucketSize
		end := start + bucketSize
		if end > n {
			end = n
		}
		var sx, sy, sz float64
		cnt := end - start
		for i := start; i < end; i++ {
			sx += float64(xcol.F32[i])
			sy += float64(ycol.F32[i])
			sz += float64(zcol.F32[i])
		}
		if cnt == 0 {
			cnt = 1
		}
		centroids[b] = [3]float32{float32(sx / float64(cnt)), float32(sy / float64(cnt)), float32(sz / float64(cnt))}
	}
	return centroids
}

func quantizeOffset(delta, blockSize float32) uint16 {
	if blockSize <= 0 {
		return 32768
	}
	half := blockSize
	norm := (delta/half + 1) / 2 // expect delta within [-blockSize, blockSize]
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	return uint16(norm * 65535)
}

func dequantizeOffset(q uint16, blockSize float32) float32 {
	norm := float32(q) / 65535
	return (norm*2 - 1) * blockSize
}

// Read parses a .ksplat stream back into a Gaussian table. Only the first
// section is decoded; additional sections (multi-resolution LOD chains in
// the reference format) are not produced by Write and are rejected.
func Read(r io.Reader) (*table.DataTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "ksplat.read", err)
	}
	if len(raw) < mainHeaderSize+sectionHeaderSize {
		return nil, errs.New(errs.MalformedInput, "ksplat.read", shortErr("ksplat: input shorter than headers"))
	}
	if binary.LittleEndian.Uint32(raw[0:4]) != magic {
		return nil, errs.Newf(errs.UnsupportedFormat, "ksplat.read", "bad magic")
	}
	sectionCount := binary.LittleEndian.Uint32(raw[8:12])
	if sectionCount > maxSections {
		return nil, errs.Newf(errs.UnsupportedFormat, "ksplat.read", "unsupported section count %d", sectionCount)
	}

	sh := readSectionHeader(raw[mainHeaderSize : mainHeaderSize+sectionHeaderSize])
	body := raw[mainHeaderSize+sectionHeaderSize:]
	mode := CompressionMode(sh.Mode)
	n := int(sh.SplatCount)
	band := int(sh.ShDegree)
	coeffCount := gaussian.CoeffCount(band)
	if coeffCount < 0 {
		coeffCount = 0
	}

	br := bytes.NewReader(body)
	bucketSize := int(sh.BucketSize)
	if bucketSize <= 0 {
		bucketSize = n
	}
	bucketCount := int(sh.BucketCount)
	if bucketCount == 0 {
		bucketCount = 1
	}

	centroids := make([][3]float32, bucketCount)
	if mode != ModeRaw {
		for b := 0; b < bucketCount; b++ {
			var c [3]float32
			if c[0], err = readF32R(br); err != nil {
				return nil, shortBodyErr()
			}
			if c[1], err = readF32R(br); err != nil {
				return nil, shortBodyErr()
			}
			if c[2], err = readF32R(br); err != nil {
				return nil, shortBodyErr()
			}
			centroids[b] = c
		}
	}

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

	restCols := make([]*table.Column, 3*coeffCount)
	for i := range restCols {
		restCols[i] = table.NewColumn(gaussian.RestColumnName(i), table.F32, n)
	}

	harmonicQ := quantization.NewScalarQuantizer()
	if mode == ModeQuantized8 {
		harmonicQ.TrainFromRange(sh.MinHarmonic, sh.MaxHarmonic)
	}

	for i := 0; i < n; i++ {
		switch mode {
		case ModeRaw:
			if x.F32[i], err = readF32R(br); err != nil {
				return nil, shortBodyErr()
			}
			if y.F32[i], err = readF32R(br); err != nil {
				return nil, shortBodyErr()
			}
			if z.F32[i], err = readF32R(br); err != nil {
				return nil, shortBodyErr()
			}
		default:
			bucket := i / bucketSize
			if bucket >= bucketCount {
				bucket = bucketCount - 1
			}
			c := centroids[bucket]
			qx, e := readU16Single(br)
			if e != nil {
				return nil, shortBodyErr()
			}
			qy, e := readU16Single(br)
			if e != nil {
				return nil, shortBodyErr()
			}
			qz, e := readU16Single(br)
			if e != nil {
				return nil, shortBodyErr()
			}
			x.F32[i] = c[0] + dequantizeOffset(qx, sh.BlockSize)
			y.F32[i] = c[1] + dequantizeOffset(qy, sh.BlockSize)
			z.F32[i] = c[2] + dequantizeOffset(qz, sh.BlockSize)
		}

		switch mode {
		case ModeRaw:
			s0.F32[i], _ = readF32R(br)
			s1.F32[i], _ = readF32R(br)
			s2.F32[i], _ = readF32R(br)
			r0.F32[i], _ = readF32R(br)
			r1.F32[i], _ = readF32R(br)
			r2.F32[i], _ = readF32R(br)
			r3.F32[i], _ = readF32R(br)
		default:
			s0.F32[i] = readF16(br)
			s1.F32[i] = readF16(br)
			s2.F32[i] = readF16(br)
			r0.F32[i] = readF16(br)
			r1.F32[i] = readF16(br)
			r2.F32[i] = readF16(br)
			r3.F32[i] = readF16(br)
		}

		dc0.F32[i], _ = readF32R(br)
		dc1.F32[i], _ = readF32R(br)
		dc2.F32[i], _ = readF32R(br)
		opacity.F32[i], _ = readF32R(br)

		for coeff := 0; coeff < coeffCount; coeff++ {
			for channel := 0; channel < 3; channel++ {
				idx := gaussian.RestIndex(channel, coeff, band)
				var v float32
				switch mode {
				case ModeRaw:
					v, _ = readF32R(br)
				case ModeFloat16:
					v = readF16(br)
				case ModeQuantized8:
					b, _ := br.ReadByte()
					v = harmonicQ.Dequantize([]int8{int8(b)})[0]
				}
				restCols[idx].F32[i] = v
			}
		}
	}

	cols := []*table.Column{x, y, z, s0, s1, s2, r0, r1, r2, r3, dc0, dc1, dc2, opacity}
	cols = append(cols, restCols...)
	dt, err := table.New(cols...)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "ksplat.read", err)
	}
	return dt, nil
}

func readU16Single(br *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(br, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readF16(br *bytes.Reader) float32 {
	v, err := readU16Single(br)
	if err != nil {
		return 0
	}
	return mathutil.Float16ToFloat32(v)
}

func readF32R(br *bytes.Reader) (float32, error) {
	var b [4]byte
	if _, err := io.ReadFull(br, b[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b[:])), nil
}

func shortBodyErr() error {
	return errs.New(errs.MalformedInput, "ksplat.read", shortErr("ksplat: body truncated"))
}

func writeF32(w *bytes.Buffer, v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.Write(b[:])
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func getF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
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

func spanOf(minX, maxX, minY, maxY, minZ, maxZ float32) float32 {
	dx, dy, dz := maxX-minX, maxY-minY, maxZ-minZ
	m := dx
	if dy > m {
		m = dy
	}
	if dz > m {
		m = dz
	}
	if m <= 0 {
		return 1
	}
	return m
}

type shortErr string

func (e shortErr) Error() string { return string(e) }
