// Package gaussian recognizes a table.DataTable as a Gaussian splat set and
// implements the operations specific to that domain: SH-band bookkeeping
// and the multi-table combine (SPEC_FULL.md §3, §4.6). It deliberately
// knows nothing about file formats — readers and writers live in
// internal/codec/*.
package gaussian

import (
	"fmt"

	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/table"
)

// C0 is the zero-band spherical-harmonic normalization constant.
const C0 = 0.28209479177387814

// requiredColumns are the columns every recognized Gaussian set must carry.
var requiredColumns = []string{
	"x", "y", "z",
	"scale_0", "scale_1", "scale_2",
	"rot_0", "rot_1", "rot_2", "rot_3",
	"f_dc_0", "f_dc_1", "f_dc_2",
	"opacity",
}

// CoeffCount returns C(b): the number of rest coefficients per channel for
// SH band b, where b ∈ {0,1,2,3}.
func CoeffCount(band int) int {
	switch band {
	case 0:
		return 0
	case 1:
		return 3
	case 2:
		return 8
	case 3:
		return 15
	default:
		return -1
	}
}

// BandFromRestCount inverts CoeffCount*3 (the total rest-column count) back
// to a band number, or returns -1 if the count names no valid band.
func BandFromRestCount(restColumns int) int {
	switch restColumns {
	case 0:
		return 0
	case 9:
		return 1
	case 24:
		return 2
	case 45:
		return 3
	default:
		return -1
	}
}

// IsGaussianSet reports whether t carries every required column.
func IsGaussianSet(t *table.DataTable) bool {
	for _, name := range requiredColumns {
		if !t.HasColumn(name) {
			return false
		}
	}
	return true
}

// Validate returns a MissingRequiredColumns error naming the first missing
// column if t is not a recognized Gaussian set, and an InvalidArgument
// error if the rest-column count is present but invalid.
func Validate(op string, t *table.DataTable) error {
	for _, name := range requiredColumns {
		if !t.HasColumn(name) {
			return errs.Newf(errs.MissingRequiredColumns, op, "missing column %q", name)
		}
	}
	if n := RestColumnCount(t); n >= 0 && BandFromRestCount(n) < 0 {
		return errs.Newf(errs.InvalidArgument, op, "%d f_rest_* columns does not match any SH band (want 0, 9, 24, or 45)", n)
	}
	return nil
}

// RestColumnCount counts the consecutive f_rest_i columns present,
// starting at f_rest_0. It returns 0 when there are none, which is the
// valid "band 0" state.
func RestColumnCount(t *table.DataTable) int {
	n := 0
	for {
		if !t.HasColumn(fmt.Sprintf("f_rest_%d", n)) {
			break
		}
		n++
	}
	if n == 0 {
		return 0
	}
	return n
}

// Bands returns the SH band implied by the table's f_rest_* columns.
func Bands(t *table.DataTable) int {
	b := BandFromRestCount(RestColumnCount(t))
	if b < 0 {
		return 0
	}
	return b
}

// RestColumnName formats the channel-major rest-column name for
// coefficient index i in [0, 3*C(band)).
func RestColumnName(i int) string {
	return fmt.Sprintf("f_rest_%d", i)
}

// ChannelCoeff decodes a channel-major rest-column index i into
// (channel, coeff) where channel ∈ {0=R,1=G,2=B} and coeff ∈ [0, C(band)).
func ChannelCoeff(i, band int) (channel, coeff int) {
	c := CoeffCount(band)
	return i / c, i % c
}

// RestIndex is the inverse of ChannelCoeff.
func RestIndex(channel, coeff, band int) int {
	return channel*CoeffCount(band) + coeff
}
