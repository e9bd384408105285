// Package config holds the CLI's global run options (SPEC_FULL.md §6
// "CLI"), separate from the per-file action list the dispatcher parses.
package config

import "github.com/gsplat/splat-transform/internal/mathutil"

// Config holds the global options that apply to the whole invocation,
// independent of any one input or output file.
type Config struct {
	Overwrite    bool // -w/--overwrite
	NoGPU        bool // -g/--no-gpu
	Iterations   int  // -i/--iterations, default 10
	CameraPos    mathutil.Vec3 // -p/--cameraPos, default (2,2,-2)
	CameraTarget mathutil.Vec3 // -e/--cameraTarget, default (0,0,0)
}

// Default returns the CLI's documented default global configuration.
func Default() Config {
	return Config{
		Overwrite:    false,
		NoGPU:        false,
		Iterations:   10,
		CameraPos:    mathutil.Vec3{X: 2, Y: 2, Z: -2},
		CameraTarget: mathutil.Vec3{X: 0, Y: 0, Z: 0},
	}
}
