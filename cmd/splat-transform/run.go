package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gsplat/splat-transform/internal/codec/sog"
	"github.com/gsplat/splat-transform/internal/dispatch"
	"github.com/gsplat/splat-transform/internal/errs"
	"github.com/gsplat/splat-transform/internal/gaussian"
	"github.com/gsplat/splat-transform/internal/ioutil"
	"github.com/gsplat/splat-transform/internal/kmeans"
	"github.com/gsplat/splat-transform/internal/observability"
	"github.com/gsplat/splat-transform/internal/table"
	"github.com/gsplat/splat-transform/internal/zipfile"
)

// run executes the full read -> transform -> combine -> write pipeline
// described by g and files, where files[len(files)-1] is the output.
func run(g globals, files []fileSpec, log *observability.Logger) error {
	if len(files) < 2 {
		return errs.New(errs.InvalidArgument, "run", usageErr("at least two paths (input(s) and output) are required"))
	}
	inputs := files[:len(files)-1]
	output := files[len(files)-1]

	if !g.Overwrite {
		if _, err := os.Stat(output.path); err == nil {
			return errs.Newf(errs.IoFailure, "run", "output %q already exists (use -w to overwrite)", output.path)
		}
	}

	var loaded []*table.DataTable
	if err := log.Stage("read", func() error {
		var err error
		loaded, err = readInputsConcurrently(inputs)
		return err
	}); err != nil {
		return err
	}

	transformed := make([]*table.DataTable, len(inputs))
	for i, spec := range inputs {
		t := loaded[i]
		for _, action := range spec.actions {
			var err error
			t, err = action.Apply(t)
			if err != nil {
				return err
			}
		}
		transformed[i] = t
	}

	combined, err := gaussian.Combine(transformed)
	if err != nil {
		return err
	}

	for _, action := range output.actions {
		combined, err = action.Apply(combined)
		if err != nil {
			return err
		}
	}

	return log.Stage("write", func() error {
		return writeOutput(output.path, combined, g)
	})
}

func readInputsConcurrently(inputs []fileSpec) ([]*table.DataTable, error) {
	paths := make([]string, len(inputs))
	data := make([][]byte, len(inputs))
	for i, spec := range inputs {
		paths[i] = spec.path
	}

	var wg sync.WaitGroup
	readErrs := make([]error, len(inputs))
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if dispatch.DetectByName(paths[i]) == dispatch.FormatSOGMeta || filepathExt(paths[i]) == ".sog" {
				return
			}
			b, err := os.ReadFile(paths[i])
			if err != nil {
				readErrs[i] = errs.New(errs.IoFailure, "run.read", err)
				return
			}
			data[i] = b
		}(i)
	}
	wg.Wait()
	for _, err := range readErrs {
		if err != nil {
			return nil, err
		}
	}

	results := make([]*table.DataTable, len(inputs))
	loaded := dispatch.ReadAllConcurrent(paths, data)
	for i, r := range loaded {
		if dispatch.DetectByName(paths[i]) == dispatch.FormatSOGMeta || filepathExt(paths[i]) == ".sog" {
			t, err := readSOGInput(paths[i])
			if err != nil {
				return nil, err
			}
			results[i] = t
			continue
		}
		if r.Err != nil {
			return nil, r.Err
		}
		results[i] = r.Table
	}
	return results, nil
}

func readSOGInput(path string) (*table.DataTable, error) {
	files := map[string][]byte{}
	if filepathExt(path) == ".sog" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errs.New(errs.IoFailure, "run.readsog", err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, errs.New(errs.IoFailure, "run.readsog", err)
		}
		files, err = zipfile.ReadAll(f, info.Size())
		if err != nil {
			return nil, err
		}
	} else {
		dir := filepath.Dir(path)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errs.New(errs.IoFailure, "run.readsog", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			b, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, errs.New(errs.IoFailure, "run.readsog", err)
			}
			files[e.Name()] = b
		}
	}
	return dispatch.ReadSOG(files)
}

func writeOutput(path string, t *table.DataTable, g globals) error {
	format := dispatch.DetectByName(path)
	if format == dispatch.FormatSOG || format == dispatch.FormatSOGMeta {
		return writeSOGOutput(path, t, format, g)
	}

	data, err := dispatch.WriteOutput(dispatch.Output{Path: path, Format: format}, t, g.CameraPos, g.CameraTarget)
	if err != nil {
		return err
	}
	return ioutil.WriteFileAtomic(path, g.Overwrite, func(f *os.File) error {
		_, werr := f.Write(data)
		return werr
	})
}

func writeSOGOutput(path string, t *table.DataTable, format dispatch.Format, g globals) error {
	backend := kmeans.BackendGPU
	if g.NoGPU {
		backend = kmeans.BackendCPU
	}
	asset, err := dispatch.WriteSOG(t, sog.Options{Iterations: g.Iterations, Backend: backend})
	if err != nil {
		return err
	}
	if format == dispatch.FormatSOG {
		return ioutil.WriteFileAtomic(path, g.Overwrite, func(f *os.File) error {
			return zipfileWrite(f, asset)
		})
	}

	dir := filepath.Dir(path)
	for name, data := range asset.Files {
		p := filepath.Join(dir, name)
		if err := ioutil.WriteFileAtomic(p, g.Overwrite, func(f *os.File) error {
			_, werr := f.Write(data)
			return werr
		}); err != nil {
			return err
		}
	}
	return nil
}

func zipfileWrite(f *os.File, asset *sog.Asset) error {
	zw := zipfile.NewWriter(f)
	for name, data := range asset.Files {
		if err := zw.WriteFile(name, data); err != nil {
			return errs.New(errs.IoFailure, "run.writesog", err)
		}
	}
	return zw.Close()
}

func filepathExt(path string) string {
	ext := filepath.Ext(path)
	switch ext {
	case ".ply", ".splat", ".ksplat", ".spz", ".sog", ".csv", ".html", ".mjs":
		return ext
	default:
		return ""
	}
}
