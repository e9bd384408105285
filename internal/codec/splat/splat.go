// Package splat reads antimatter15's .splat format (SPEC_FULL.md §4.9):
// fixed 32-byte records of position, linear scale, color+opacity bytes,
// and quaternion bytes, decoded into a Gaussian table.
package splat

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/gaussian"
	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/table"
)

const recordSize = 32

// Read decodes a .splat stream into a Gaussian table.
func Read(r io.Reader) (*table.DataTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "splat.read", err)
	}
	if len(data)%recordSize != 0 {
		return nil, errs.Newf(errs.MalformedInput, "splat.read", "length %d is not a multiple of %d", len(data), recordSize)
	}
	n := len(data) / recordSize

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

	for i := 0; i < n; i++ {
		rec := data[i*recordSize : (i+1)*recordSize]

		px := readF32(rec, 0)
		py := readF32(rec, 4)
		pz := readF32(rec, 8)
		sx := readF32(rec, 12)
		sy := readF32(rec, 16)
		sz := readF32(rec, 20)
		colorR, colorG, colorB, colorA := rec[24], rec[25], rec[26], rec[27]
		quatW, quatX, quatY, quatZ := rec[28], rec[29], rec[30], rec[31]

		x.F32[i], y.F32[i], z.F32[i] = px, py, pz
		s0.F32[i] = logScale(sx)
		s1.F32[i] = logScale(sy)
		s2.F32[i] = logScale(sz)

		dc0.F32[i] = invertColor(colorR)
		dc1.F32[i] = invertColor(colorG)
		dc2.F32[i] = invertColor(colorB)
		opacity.F32[i] = mathutil.InverseSigmoid(float32(colorA)/255, 1e-6)

		q := mathutil.Quat{
			W: float32(quatW)/127.5 - 1,
			X: float32(quatX)/127.5 - 1,
			Y: float32(quatY)/127.5 - 1,
			Z: float32(quatZ)/127.5 - 1,
		}
		if q.Norm() < 1e-12 {
			q = mathutil.IdentityQuat
		} else {
			q = q.Normalized()
		}
		r0.F32[i], r1.F32[i], r2.F32[i], r3.F32[i] = q.W, q.X, q.Y, q.Z
	}

	dt, err := table.New(x, y, z, s0, s1, s2, r0, r1, r2, r3, dc0, dc1, dc2, opacity)
	if err != nil {
		return nil, errs.New(errs.IoFailure, "splat.read", err)
	}
	return dt, nil
}

func readF32(b []byte, off int) float32 {
	bits := binary.LittleEndian.Uint32(b[off : off+4])
	return math.Float32frombits(bits)
}

func logScale(v float32) float32 {
	return float32(math.Log(float64(v)))
}

func invertColor(c uint8) float32 {
	return (float32(c)/255 - 0.5) / gaussian.C0
}
