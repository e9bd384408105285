// Package spz reads Niantic's .spz format (SPEC_FULL.md §4.9): a stream
// that is gzip-wrapped when it begins with the gzip magic, holding a
// fixed header (magic "NGSP", version 2 or 3) followed by fixed-point
// positions, byte scales/colors, and either 3-byte or smallest-three
// packed rotations, plus channel-major SH-rest bytes.
package spz

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/gaussian"
	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/table"
)

const magic = 0x5053474e // "NGSP" little-endian

type header struct {
	Magic          uint32
	Version        uint32
	NumPoints      uint32
	ShDegree       uint8
	FractionalBits uint8
	Flags          uint8
	Reserved       uint8
}

const headerSize = 16
const spzColorC0 = 0.15

// Read decodes a .spz stream (optionally gzip-wrapped) into a Gaussian
// table.
func Read(r io.Reader) (*table.DataTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "spz.read", err)
	}
	if len(raw) >= 2 && raw[0] == 0x1F && raw[1] == 0x8B {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errs.New(errs.MalformedInput, "spz.read", err)
		}
		defer gz.Close()
		raw, err = io.ReadAll(gz)
		if err != nil {
			return nil, errs.New(errs.MalformedInput, "spz.read", err)
		}
	}
	if len(raw) < headerSize {
		return nil, errs.New(errs.MalformedInput, "spz.read", errShortHeader)
	}

	h := header{
		Magic:          binary.LittleEndian.Uint32(raw[0:4]),
		Version:        binary.LittleEndian.Uint32(raw[4:8]),
		NumPoints:      binary.LittleEndian.Uint32(raw[8:12]),
		ShDegree:       raw[12],
		FractionalBits: raw[13],
		Flags:          raw[14],
		Reserved:       raw[15],
	}
	if h.Magic != magic {
		return nil, errs.Newf(errs.UnsupportedFormat, "spz.read", "bad magic %08x", h.Magic)
	}
	if h.Version != 2 && h.Version != 3 {
		return nil, errs.Newf(errs.UnsupportedFormat, "spz.read", "unsupported version %d", h.Version)
	}

	n := int(h.NumPoints)
	body := raw[headerSize:]
	off := 0

	readBytes := func(count int) ([]byte, error) {
		if off+count > len(body) {
			return nil, errs.New(errs.MalformedInput, "spz.read", errShortBody)
		}
		b := body[off : off+count]
		off += count
		return b, nil
	}

	posBytes, err := readBytes(n * 3 * 3) // 24-bit fixed point, 3 axes
	if err != nil {
		return nil, err
	}
	scaleBytes, err := readBytes(n * 3)
	if err != nil {
		return nil, err
	}
	colorBytes, err := readBytes(n * 3)
	if err != nil {
		return nil, err
	}
	alphaBytes, err := readBytes(n)
	if err != nil {
		return nil, err
	}

	rotByteCount := 3
	if h.Version == 3 {
		rotByteCount = 4
	}
	rotBytes, err := readBytes(n * rotByteCount)
	if err != nil {
		return nil, err
	}

	band := int(h.ShDegree)
	coeffCount := gaussian.CoeffCount(band)
	if coeffCount < 0 {
		coeffCount = 0
	}
	shBytes, err := readBytes(n * 3 * coeffCount)
	if err != nil {
		return nil, err
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

	scaleFactor := 1.0 / float64(int(1)<<h.FractionalBits)
	for i := 0; i < n; i++ {
		x.F32[i] = float32(fixed24(posBytes, i*9+0) * scaleFactor)
		y.F32[i] = float32(fixed24(posBytes, i*9+3) * scaleFactor)
		z.F32[i] = float32(fixed24(posBytes, i*9+6) * scaleFactor)

		s0.F32[i] = float32(scaleBytes[i*3+0]) - 10
		s1.F32[i] = float32(scaleBytes[i*3+1]) - 10
		s2.F32[i] = float32(scaleBytes[i*3+2]) - 10

		dc0.F32[i] = invertSpzColor(colorBytes[i*3+0])
		dc1.F32[i] = invertSpzColor(colorBytes[i*3+1])
		dc2.F32[i] = invertSpzColor(colorBytes[i*3+2])
		opacity.F32[i] = mathutil.InverseSigmoid(float32(alphaBytes[i])/255, 1e-6)

		var q mathutil.Quat
		if h.Version == 2 {
			bx := float32(rotBytes[i*3+0])/127.5 - 1
			by := float32(rotBytes[i*3+1])/127.5 - 1
			bz := float32(rotBytes[i*3+2])/127.5 - 1
			w := float32(0)
			sumSq := bx*bx + by*by + bz*bz
			if sumSq < 1 {
				w = sqrtf32(1 - sumSq)
			}
			q = mathutil.Quat{W: w, X: bx, Y: by, Z: bz}
		} else {
			q = unpackRotationV3(binary.LittleEndian.Uint32(rotBytes[i*4 : i*4+4]))
		}
		q = q.Normalized()
		r0.F32[i], r1.F32[i], r2.F32[i], r3.F32[i] = q.W, q.X, q.Y, q.Z
	}

	cols := []*table.Column{x, y, z, s0, s1, s2, r0, r1, r2, r3, dc0, dc1, dc2, opacity}
	if coeffCount > 0 {
		restCols := make([]*table.Column, 3*coeffCount)
		for i := range restCols {
			restCols[i] = table.NewColumn(gaussian.RestColumnName(i), table.F32, n)
		}
		// Stored channel-major; re-ordered to coefficient-channel pairs
		// (i, channel) with sh_byte/128 - 1, per SPEC_FULL.md §4.9.
		for p := 0; p < n; p++ {
			for channel := 0; channel < 3; channel++ {
				for coeff := 0; coeff < coeffCount; coeff++ {
					b := shBytes[p*3*coeffCount+channel*coeffCount+coeff]
					v := float32(b)/128 - 1
					restCols[gaussian.RestIndex(channel, coeff, band)].F32[p] = v
				}
			}
		}
		cols = append(cols, restCols...)
	}

	dt, err := table.New(cols...)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "spz.read", err)
	}
	return dt, nil
}

func fixed24(b []byte, off int) float64 {
	v := int32(b[off]) | int32(b[off+1])<<8 | int32(b[off+2])<<16
	if v&0x800000 != 0 {
		v |= -0x1000000 // sign-extend 24-bit
	}
	return float64(v)
}

func invertSpzColor(c uint8) float32 {
	return (float32(c)/255 - 0.5) / spzColorC0
}

// unpackRotationV3 decodes the 32-bit smallest-three form: 2 bits for the
// omitted-component index, then three 10-bit fields (at bits 20, 10 and 0),
// each a 9-bit magnitude over 511 with the sign in its low bit. Component
// indices are x=0, y=1, z=2, w=3, per SPEC_FULL.md §4.9.
func unpackRotationV3(packed uint32) mathutil.Quat {
	maxIdx := packed >> 30
	comp := func(shift uint32) float32 {
		field := (packed >> shift) & 0x3ff
		mag := float32(field>>1) / 511
		if field&1 != 0 {
			mag = -mag
		}
		return mag
	}
	a := comp(20)
	b := comp(10)
	c := comp(0)

	sumSq := a*a + b*b + c*c
	maxComp := float32(0)
	if sumSq < 1 {
		maxComp = sqrtf32(1 - sumSq)
	}
	var comps [4]float32
	vals := [3]float32{a, b, c}
	j := 0
	for i := 0; i < 4; i++ {
		if uint32(i) == maxIdx {
			comps[i] = maxComp
			continue
		}
		comps[i] = vals[j]
		j++
	}
	return mathutil.Quat{X: comps[0], Y: comps[1], Z: comps[2], W: comps[3]}
}

func sqrtf32(v float32) float32 {
	if v <= 0 {
		return 0
	}
	x := v
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

var errShortHeader = shortErr("spz: input shorter than header")
var errShortBody = shortErr("spz: body truncated")

type shortErr string

func (e shortErr) Error() string { return string(e) }
