// Package generator defines the adapter seam for `.mjs` procedural-splat
// generators (SPEC_FULL.md §4.13). No embedded scripting engine ships in
// this repository, and nothing outside this package calls it: the CLI
// dispatcher has no `.mjs` read path, so a `.mjs` input fails there with
// UnsupportedFormat. Resolving an unregistered generator name also fails
// with UnsupportedFormat rather than silently producing an empty table.
package generator

import "github.com/gsplat/splat-transform/internal/errs"

// Row is a single generated splat's column values, keyed by column name.
type Row map[string]float64

// RowSource yields rows one at a time. Next returns false once exhausted.
type RowSource interface {
	Next() (Row, bool)
}

// Adapter produces a RowSource of count rows, configured by params (the
// `-P name=value` pipeline action's accumulated key/value pairs).
type Adapter interface {
	Generate(params map[string]string, count int) (RowSource, error)
}

// Registry maps a generator name (the basename of the `.mjs` path, without
// extension) to its Adapter.
type Registry map[string]Adapter

// Resolve looks up name in the registry, returning UnsupportedFormat if it
// is not registered.
func (r Registry) Resolve(name string) (Adapter, error) {
	a, ok := r[name]
	if !ok {
		return nil, errs.Newf(errs.UnsupportedFormat, "generator", "no generator registered for %q", name)
	}
	return a, nil
}

// sliceSource is the trivial in-memory RowSource implementation a real
// Adapter can return.
type sliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource wraps a pre-built row slice as a RowSource.
func NewSliceSource(rows []Row) RowSource {
	return &sliceSource{rows: rows}
}

func (s *sliceSource) Next() (Row, bool) {
	if s.pos >= len(s.rows) {
		return nil, false
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true
}
