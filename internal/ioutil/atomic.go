// Package ioutil provides the atomic-write helper used by every codec
// writer: content is staged in a temp file beside the destination, then
// renamed into place, so a crash or interrupted write never leaves a
// partially-written output file (SPEC_FULL.md ambient stack).
package ioutil

import (
	"os"
	"path/filepath"

	"github.com/gsplat/splat-transform/internal/errs"
)

// WriteFileAtomic writes data to path by first writing to a temp file in
// the same directory, then renaming it over path. overwrite must be true
// if path already exists; otherwise an IoFailure error is returned without
// touching the filesystem.
func WriteFileAtomic(path string, overwrite bool, write func(f *os.File) error) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errs.Newf(errs.IoFailure, "write", "output %q already exists (use -w/--overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".splat-transform-*.tmp")
	if err != nil {
		return errs.New(errs.IoFailure, "write", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return errs.New(errs.IoFailure, "write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.New(errs.IoFailure, "write", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.New(errs.IoFailure, "write", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errs.New(errs.IoFailure, "write", err)
	}
	return nil
}
