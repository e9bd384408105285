// Package transform implements the Gaussian-table transform pipeline of
// SPEC_FULL.md §4.5: translate, rotate, scale, combined TRS, filterNaN,
// filterByValue, filterBands, and the generator-only param no-op.
package transform

import (
	"math"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/gaussian"
	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/table"
)

// Action is one step of the pipeline. Actions apply left-to-right; each
// returns a new table (sharing unchanged column arrays where the filter
// dropped no rows, per SPEC_FULL.md §4.5).
type Action interface {
	Apply(t *table.DataTable) (*table.DataTable, error)
}

// Pipeline runs a sequence of actions against a Gaussian table.
type Pipeline struct {
	Actions []Action
}

// Run applies every action in order, returning the final table.
func (p Pipeline) Run(t *table.DataTable) (*table.DataTable, error) {
	cur := t
	for _, a := range p.Actions {
		next, err := a.Apply(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Translate adds Delta to (x,y,z).
type Translate struct {
	Delta mathutil.Vec3
}

func (a Translate) Apply(t *table.DataTable) (*table.DataTable, error) {
	if err := gaussian.Validate("translate", t); err != nil {
		return nil, err
	}
	out := t.Clone()
	x, y, z := out.Column("x"), out.Column("y"), out.Column("z")
	for i := 0; i < out.RowCount(); i++ {
		x.F32[i] += a.Delta.X
		y.F32[i] += a.Delta.Y
		z.F32[i] += a.Delta.Z
	}
	return out, nil
}

// Rotate composes a unit quaternion from Euler degrees and applies it to
// positions, row quaternions, and SH coefficients.
type Rotate struct {
	EulerDegrees mathutil.Vec3
}

func (a Rotate) Apply(t *table.DataTable) (*table.DataTable, error) {
	if err := gaussian.Validate("rotate", t); err != nil {
		return nil, err
	}
	q := mathutil.FromEulerDegrees(a.EulerDegrees.X, a.EulerDegrees.Y, a.EulerDegrees.Z)
	return rotateTable(t, q)
}

func rotateTable(t *table.DataTable, q mathutil.Quat) (*table.DataTable, error) {
	out := t.Clone()
	rotatePositionsAndFrame(out, q)
	if err := rotateSHCoefficients(out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func rotatePositionsAndFrame(t *table.DataTable, q mathutil.Quat) {
	m := q.ToMat3()
	x, y, z := t.Column("x"), t.Column("y"), t.Column("z")
	r0, r1, r2, r3 := t.Column("rot_0"), t.Column("rot_1"), t.Column("rot_2"), t.Column("rot_3")
	for i := 0; i < t.RowCount(); i++ {
		p := mathutil.Vec3{X: x.F32[i], Y: y.F32[i], Z: z.F32[i]}
		p2 := m.MulVec3(p)
		x.F32[i], y.F32[i], z.F32[i] = p2.X, p2.Y, p2.Z

		// rot_0 is w (SPEC_FULL.md §3: quaternion rotation, w-first).
		row := mathutil.Quat{W: r0.F32[i], X: r1.F32[i], Y: r2.F32[i], Z: r3.F32[i]}
		updated := q.Mul(row).Normalized()
		r0.F32[i], r1.F32[i], r2.F32[i], r3.F32[i] = updated.W, updated.X, updated.Y, updated.Z
	}
}

func rotateSHCoefficients(t *table.DataTable, q mathutil.Quat) error {
	band := gaussian.Bands(t)
	if band == 0 {
		return nil
	}
	rot := mathutil.NewShRotation(q.ToMat3())
	coeffCount := gaussian.CoeffCount(band)
	cols := make([]*table.Column, 3*coeffCount)
	for i := range cols {
		c := t.Column(gaussian.RestColumnName(i))
		if c == nil {
			return errs.Newf(errs.InvalidArgument, "rotate", "missing rest column %q", gaussian.RestColumnName(i))
		}
		cols[i] = c
	}

	row := make([]float32, coeffCount)
	for i := 0; i < t.RowCount(); i++ {
		for channel := 0; channel < 3; channel++ {
			for coeff := 0; coeff < coeffCount; coeff++ {
				row[coeff] = cols[gaussian.RestIndex(channel, coeff, band)].F32[i]
			}
			rotated := rot.Apply(band, row)
			for coeff := 0; coeff < coeffCount; coeff++ {
				cols[gaussian.RestIndex(channel, coeff, band)].F32[i] = rotated[coeff]
			}
		}
	}
	return nil
}

// Scale multiplies positions by Factor and adds ln(Factor) to each
// scale_i log-scale column.
type Scale struct {
	Factor float32
}

func (a Scale) Apply(t *table.DataTable) (*table.DataTable, error) {
	if err := gaussian.Validate("scale", t); err != nil {
		return nil, err
	}
	out := t.Clone()
	scaleTable(out, a.Factor)
	return out, nil
}

func scaleTable(t *table.DataTable, factor float32) {
	x, y, z := t.Column("x"), t.Column("y"), t.Column("z")
	lnFactor := float32(math.Log(float64(factor)))
	s0, s1, s2 := t.Column("scale_0"), t.Column("scale_1"), t.Column("scale_2")
	for i := 0; i < t.RowCount(); i++ {
		x.F32[i] *= factor
		y.F32[i] *= factor
		z.F32[i] *= factor
		s0.F32[i] += lnFactor
		s1.F32[i] += lnFactor
		s2.F32[i] += lnFactor
	}
}

// TRS applies the combined translate/rotate/scale action using mat4.setTRS
// semantics: p' = R·(s·p) + t; q_row ← q_r · q_row; scale_i ← ln(exp(scale_i)·s).
type TRS struct {
	Translation  mathutil.Vec3
	EulerDegrees mathutil.Vec3
	Factor       float32
}

func (a TRS) Apply(t *table.DataTable) (*table.DataTable, error) {
	if err := gaussian.Validate("transform", t); err != nil {
		return nil, err
	}
	q := mathutil.FromEulerDegrees(a.EulerDegrees.X, a.EulerDegrees.Y, a.EulerDegrees.Z)
	m := q.ToMat3()

	out := t.Clone()
	x, y, z := out.Column("x"), out.Column("y"), out.Column("z")
	r0, r1, r2, r3 := out.Column("rot_0"), out.Column("rot_1"), out.Column("rot_2"), out.Column("rot_3")
	s0, s1, s2 := out.Column("scale_0"), out.Column("scale_1"), out.Column("scale_2")
	lnFactor := float32(math.Log(float64(a.Factor)))

	for i := 0; i < out.RowCount(); i++ {
		p := mathutil.Vec3{X: x.F32[i], Y: y.F32[i], Z: z.F32[i]}
		p2 := mathutil.TRS(p, m, a.Factor, a.Translation)
		x.F32[i], y.F32[i], z.F32[i] = p2.X, p2.Y, p2.Z

		row := mathutil.Quat{W: r0.F32[i], X: r1.F32[i], Y: r2.F32[i], Z: r3.F32[i]}
		updated := q.Mul(row).Normalized()
		r0.F32[i], r1.F32[i], r2.F32[i], r3.F32[i] = updated.W, updated.X, updated.Y, updated.Z

		s0.F32[i] += lnFactor
		s1.F32[i] += lnFactor
		s2.F32[i] += lnFactor
	}

	if err := rotateSHCoefficients(out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterNaN drops rows containing any non-finite column value, with two
// tolerances: opacity == ±Inf is acceptable, scale_{0,1,2} == -Inf is
// acceptable (zero linear scale).
type FilterNaN struct{}

func (FilterNaN) Apply(t *table.DataTable) (*table.DataTable, error) {
	isScaleCol := map[string]bool{"scale_0": true, "scale_1": true, "scale_2": true}
	pred := func(dt *table.DataTable, row int) bool {
		for _, c := range dt.Columns() {
			if c.Type != table.F32 && c.Type != table.F64 {
				continue
			}
			v := c.At(row)
			if !finite(v) {
				if c.Name == "opacity" && math.IsInf(v, 0) {
					continue
				}
				if isScaleCol[c.Name] && math.IsInf(v, -1) {
					continue
				}
				return false
			}
		}
		return true
	}
	return t.Filter(pred), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Cmp is a filterByValue comparison operator.
type Cmp int

const (
	Lt Cmp = iota
	Lte
	Gt
	Gte
	Eq
	Neq
)

// FilterByValue drops rows where the comparison against Column is false.
// An unknown Column keeps all rows.
type FilterByValue struct {
	Column string
	Op     Cmp
	Value  float64
}

func (a FilterByValue) Apply(t *table.DataTable) (*table.DataTable, error) {
	c := t.Column(a.Column)
	if c == nil {
		return t.Clone(), nil
	}
	pred := func(dt *table.DataTable, row int) bool {
		v := dt.Column(a.Column).At(row)
		switch a.Op {
		case Lt:
			return v < a.Value
		case Lte:
			return v <= a.Value
		case Gt:
			return v > a.Value
		case Gte:
			return v >= a.Value
		case Eq:
			return v == a.Value
		case Neq:
			return v != a.Value
		default:
			return true
		}
	}
	return t.Filter(pred), nil
}

// FilterBands renames/drops SH-rest columns so the table has exactly
// 3*C(Band) rest coefficients in channel-major order, preserving
// per-coefficient values for retained indices within each channel. A
// no-op if the input already has Band or fewer bands.
type FilterBands struct {
	Band int
}

func (a FilterBands) Apply(t *table.DataTable) (*table.DataTable, error) {
	if err := gaussian.Validate("filterBands", t); err != nil {
		return nil, err
	}
	inBand := gaussian.Bands(t)
	if inBand <= a.Band {
		return t.Clone(), nil
	}

	out := t.Clone()
	outCoeff := gaussian.CoeffCount(a.Band)
	inCoeff := gaussian.CoeffCount(inBand)
	newCols := make([]*table.Column, 3*outCoeff)
	for channel := 0; channel < 3; channel++ {
		for coeff := 0; coeff < outCoeff; coeff++ {
			src := out.Column(gaussian.RestColumnName(channel*inCoeff + coeff))
			newCols[channel*outCoeff+coeff] = src.Clone()
		}
	}

	for n := 0; ; n++ {
		name := gaussian.RestColumnName(n)
		if !out.HasColumn(name) {
			break
		}
		out.RemoveColumn(name)
	}
	for i, c := range newCols {
		c.Name = gaussian.RestColumnName(i)
		if err := out.AddColumn(c); err != nil {
			return nil, errs.New(errs.IoFailure, "filterBands", err)
		}
	}
	return out, nil
}

// Param is consumed only by the generator adapter; it is a no-op for the
// core pipeline.
type Param struct {
	Name  string
	Value string
}

func (Param) Apply(t *table.DataTable) (*table.DataTable, error) {
	return t, nil
}
