// Package zipfile wraps archive/zip for the SOG bundle format: a
// STORE-only (uncompressed) ZIP whose entries use data descriptors
// (SPEC_FULL.md §4.10 step 8). No third-party ZIP container library
// appears anywhere in the retrieved example pack — the klauspost-style
// libraries seen there target streaming compressors, not the container
// format itself — so this is a justified stdlib use (see DESIGN.md).
package zipfile

import (
	"archive/zip"
	"io"

	"github.com/gsplat/splat-transform/internal/errs"
)

// Writer accumulates named byte buffers and flushes them as a STORE-only
// ZIP archive.
type Writer struct {
	zw *zip.Writer
}

// NewWriter wraps w in a zip.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// WriteFile adds one entry, stored (uncompressed), with a data descriptor
// (zip.Writer emits one automatically for entries created via CreateHeader
// on a non-seekable stream, which matches the SOG bundle's streaming
// construction).
func (w *Writer) WriteFile(name string, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return errs.New(errs.CodecFailure, "zip.write", err)
	}
	if _, err := fw.Write(data); err != nil {
		return errs.New(errs.CodecFailure, "zip.write", err)
	}
	return nil
}

// Close flushes the central directory.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		return errs.New(errs.CodecFailure, "zip.write", err)
	}
	return nil
}

// ReadAll opens a ZIP archive from r (which must support ReaderAt, as
// provided by an *os.File or bytes.Reader) and returns every entry's
// contents keyed by name.
func ReadAll(r io.ReaderAt, size int64) (map[string][]byte, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errs.New(errs.CodecFailure, "zip.read", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, errs.New(errs.CodecFailure, "zip.read", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errs.New(errs.CodecFailure, "zip.read", err)
		}
		out[f.Name] = data
	}
	return out, nil
}
