// Package dispatch maps file names to the codec that reads or writes
// them (SPEC_FULL.md §5), and orchestrates concurrent per-file reads
// followed by sequential per-file transforms.
package dispatch

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gsplat/splat-transform/internal/codec/cply"
	"github.com/gsplat/splat-transform/internal/codec/csv"
	"github.com/gsplat/splat-transform/internal/codec/ksplat"
	"github.com/gsplat/splat-transform/internal/codec/ply"
	"github.com/gsplat/splat-transform/internal/codec/sog"
	"github.com/gsplat/splat-transform/internal/codec/splat"
	"github.com/gsplat/splat-transform/internal/codec/spz"
	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/htmlview"
	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/table"
)

// Format names a recognized file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatPLY
	FormatCompressedPLY
	FormatSplat
	FormatKSplat
	FormatSPZ
	FormatSOG
	FormatSOGMeta
	FormatCSV
	FormatHTML
)

// DetectByName classifies a path by its suffix, recognizing the compound
// ".compressed.ply" and "meta.json" spellings before falling back to the
// plain extension.
func DetectByName(path string) Format {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	switch {
	case strings.HasSuffix(lower, ".compressed.ply"):
		return FormatCompressedPLY
	case lower == "meta.json":
		return FormatSOGMeta
	case strings.HasSuffix(lower, ".ply"):
		return FormatPLY
	case strings.HasSuffix(lower, ".splat"):
		return FormatSplat
	case strings.HasSuffix(lower, ".ksplat"):
		return FormatKSplat
	case strings.HasSuffix(lower, ".spz"):
		return FormatSPZ
	case strings.HasSuffix(lower, ".sog"):
		return FormatSOG
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".mjs"):
		return FormatHTML
	default:
		return FormatUnknown
	}
}

// plyHeaderSniffLimit bounds the compressed-PLY sniff to the same header
// region ply.Read itself is willing to scan (SPEC_FULL.md §4.7).
const plyHeaderSniffLimit = 128 * 1024

// looksLikeCompressedPLY peeks at a ".ply"-suffixed file's ASCII header for
// PlayCanvas's "element chunk" declaration, which only ever appears
// alongside the packed_* properties of the compressed variant (SPEC_FULL.md
// §4.8). This lets a plainly-named foo.ply that is actually chunked,
// bit-packed data route to cply.Read instead of ply.Read, per spec.md/
// SPEC_FULL.md §6's "auto-detects compressed variant by property-name set".
func looksLikeCompressedPLY(data []byte) bool {
	limit := len(data)
	if limit > plyHeaderSniffLimit {
		limit = plyHeaderSniffLimit
	}
	header := data[:limit]
	if idx := bytes.Index(header, []byte("end_header")); idx >= 0 {
		header = header[:idx]
	}
	return bytes.Contains(header, []byte("element chunk "))
}

// ReadInput decodes path's already-loaded bytes into a Gaussian table
// using the codec DetectByName selects.
func ReadInput(path string, data []byte) (*table.DataTable, error) {
	switch DetectByName(path) {
	case FormatPLY:
		if looksLikeCompressedPLY(data) {
			compressed, err := cply.Read(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			return cply.Decode(compressed)
		}
		t, err := ply.Read(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return t.Data, nil
	case FormatCompressedPLY:
		compressed, err := cply.Read(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return cply.Decode(compressed)
	case FormatSplat:
		return splat.Read(bytes.NewReader(data))
	case FormatKSplat:
		return ksplat.Read(bytes.NewReader(data))
	case FormatSPZ:
		return spz.Read(bytes.NewReader(data))
	case FormatCSV:
		return csv.Read(bytes.NewReader(data))
	default:
		return nil, errs.Newf(errs.UnsupportedFormat, "dispatch.readinput", "unrecognized input format for %q", path)
	}
}

// ReadSOG decodes a SOG asset (already split into named files by the
// caller, since a .sog zip and a meta.json-rooted directory both resolve
// to the same name->bytes map before reaching this package).
func ReadSOG(files map[string][]byte) (*table.DataTable, error) {
	return sog.Decode(files)
}

// Output describes what to write and in what format.
type Output struct {
	Path   string
	Format Format
}

// WriteOutput encodes t in the format implied by out.Format, returning
// the bytes to write. SOG output (which produces many files, not one) is
// handled separately by WriteSOG.
func WriteOutput(out Output, t *table.DataTable, cameraPos, cameraTarget mathutil.Vec3) ([]byte, error) {
	switch out.Format {
	case FormatPLY:
		var buf bytes.Buffer
		if err := ply.Write(&buf, &ply.Table{Data: t}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatCompressedPLY:
		compressed, err := cply.Encode(t)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := cply.Write(&buf, compressed); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatKSplat:
		var buf bytes.Buffer
		if err := ksplat.Write(&buf, t, ksplat.DefaultOptions()); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatCSV:
		var buf bytes.Buffer
		if err := csv.Write(&buf, t); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatHTML:
		compressed, err := cply.Encode(t)
		if err != nil {
			return nil, err
		}
		var cplyBuf bytes.Buffer
		if err := cply.Write(&cplyBuf, compressed); err != nil {
			return nil, err
		}
		html := htmlview.Render(cplyBuf.Bytes(), cameraPos, cameraTarget)
		return []byte(html), nil
	default:
		return nil, errs.Newf(errs.UnsupportedFormat, "dispatch.writeoutput", "unsupported output format for %q", out.Path)
	}
}

// WriteSOG encodes t as a SOG asset set (SPEC_FULL.md §4.10) using opts to
// control k-means iteration count and assignment backend. The caller
// bundles asset.Files into a zip (via internal/zipfile, when out.Path ends
// in ".sog") or writes them as a directory of files otherwise.
func WriteSOG(t *table.DataTable, opts sog.Options) (*sog.Asset, error) {
	return sog.EncodeWithOptions(t, opts)
}

// LoadedInput pairs a source path with its decoded table or error.
type LoadedInput struct {
	Path  string
	Table *table.DataTable
	Err   error
}

// ReadAllConcurrent reads every (path, data) pair concurrently — decoding
// is CPU-bound and independent per file — then returns results in the
// original order, matching SPEC_FULL.md §5's "concurrent reads,
// sequential per-file transforms" concurrency model.
func ReadAllConcurrent(paths []string, data [][]byte) []LoadedInput {
	results := make([]LoadedInput, len(paths))
	var wg sync.WaitGroup
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			t, err := ReadInput(paths[i], data[i])
			results[i] = LoadedInput{Path: paths[i], Table: t, Err: err}
		}(i)
	}
	wg.Wait()
	return results
}
