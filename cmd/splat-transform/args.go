package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gsplat/splat-transform/internal/config"
	"github.com/gsplat/splat-transform/internal/mathutil"
	"github.com/gsplat/splat-transform/internal/transform"
)

// globals holds the GLOBAL flags that apply to the whole run, not to any
// one file. It embeds config.Config (the CLI's documented default set of
// run options) and adds the two flags that end the run immediately
// instead of configuring it.
type globals struct {
	config.Config
	showHelp    bool
	showVersion bool
}

// fileSpec is one positional path plus the ordered per-file actions that
// follow it in the token stream, per SPEC_FULL.md §6's
// `tool [GLOBAL] <input> [ACTIONS]… <output> [ACTIONS]` grammar.
type fileSpec struct {
	path    string
	actions []transform.Action
}

// parseArgs hand-rolls a left-to-right token walker rather than forcing
// flag.FlagSet onto a grammar that interleaves positionals and per-file
// action flags (SPEC_FULL.md §6).
func parseArgs(args []string) (globals, []fileSpec, error) {
	g := globals{Config: config.Default()}

	var files []fileSpec
	var current *fileSpec

	i := 0
	for i < len(args) {
		tok := args[i]
		switch tok {
		case "-w", "--overwrite":
			g.Overwrite = true
			i++
		case "-h", "--help":
			g.showHelp = true
			i++
		case "-v", "--version":
			g.showVersion = true
			i++
		case "-g", "--no-gpu":
			g.NoGPU = true
			i++
		case "-i", "--iterations":
			v, err := nextInt(args, &i)
			if err != nil {
				return g, nil, err
			}
			g.Iterations = v
		case "-p", "--cameraPos":
			v, err := nextVec3(args, &i)
			if err != nil {
				return g, nil, err
			}
			g.CameraPos = v
		case "-e", "--cameraTarget":
			v, err := nextVec3(args, &i)
			if err != nil {
				return g, nil, err
			}
			g.CameraTarget = v
		case "-t":
			if current == nil {
				return g, nil, usageErr("-t given before any file path")
			}
			v, err := nextVec3(args, &i)
			if err != nil {
				return g, nil, err
			}
			current.actions = append(current.actions, transform.Translate{Delta: v})
		case "-r":
			if current == nil {
				return g, nil, usageErr("-r given before any file path")
			}
			v, err := nextVec3(args, &i)
			if err != nil {
				return g, nil, err
			}
			current.actions = append(current.actions, transform.Rotate{EulerDegrees: v})
		case "-s":
			if current == nil {
				return g, nil, usageErr("-s given before any file path")
			}
			v, err := nextFloat(args, &i)
			if err != nil {
				return g, nil, err
			}
			current.actions = append(current.actions, transform.Scale{Factor: v})
		case "-n":
			if current == nil {
				return g, nil, usageErr("-n given before any file path")
			}
			current.actions = append(current.actions, transform.FilterNaN{})
			i++
		case "-c":
			if current == nil {
				return g, nil, usageErr("-c given before any file path")
			}
			act, err := nextFilterByValue(args, &i)
			if err != nil {
				return g, nil, err
			}
			current.actions = append(current.actions, act)
		case "-b":
			if current == nil {
				return g, nil, usageErr("-b given before any file path")
			}
			v, err := nextInt(args, &i)
			if err != nil {
				return g, nil, err
			}
			current.actions = append(current.actions, transform.FilterBands{Band: v})
		case "-P":
			if current == nil {
				return g, nil, usageErr("-P given before any file path")
			}
			acts, err := nextParams(args, &i)
			if err != nil {
				return g, nil, err
			}
			current.actions = append(current.actions, acts...)
		default:
			if strings.HasPrefix(tok, "-") {
				return g, nil, usageErr(fmt.Sprintf("unrecognized flag %q", tok))
			}
			files = append(files, fileSpec{path: tok})
			current = &files[len(files)-1]
			i++
		}
	}
	return g, files, nil
}

func nextArg(args []string, i *int) (string, error) {
	*i++
	if *i >= len(args) {
		return "", usageErr("missing value after flag")
	}
	v := args[*i]
	*i++
	return v, nil
}

func nextInt(args []string, i *int) (int, error) {
	s, err := nextArg(args, i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usageErr(fmt.Sprintf("expected integer, got %q", s))
	}
	return n, nil
}

func nextFloat(args []string, i *int) (float32, error) {
	s, err := nextArg(args, i)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, usageErr(fmt.Sprintf("expected number, got %q", s))
	}
	return float32(f), nil
}

func nextVec3(args []string, i *int) (mathutil.Vec3, error) {
	s, err := nextArg(args, i)
	if err != nil {
		return mathutil.Vec3{}, err
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mathutil.Vec3{}, usageErr(fmt.Sprintf("expected x,y,z, got %q", s))
	}
	var v [3]float64
	for j, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mathutil.Vec3{}, usageErr(fmt.Sprintf("expected number in %q", s))
		}
		v[j] = f
	}
	return mathutil.Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}, nil
}

func nextFilterByValue(args []string, i *int) (transform.FilterByValue, error) {
	s, err := nextArg(args, i)
	if err != nil {
		return transform.FilterByValue{}, err
	}
	parts := strings.SplitN(s, ",", 3)
	if len(parts) != 3 {
		return transform.FilterByValue{}, usageErr(fmt.Sprintf("expected name,cmp,value, got %q", s))
	}
	op, ok := parseCmp(parts[1])
	if !ok {
		return transform.FilterByValue{}, usageErr(fmt.Sprintf("unrecognized comparator %q", parts[1]))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return transform.FilterByValue{}, usageErr(fmt.Sprintf("expected number, got %q", parts[2]))
	}
	return transform.FilterByValue{Column: parts[0], Op: op, Value: v}, nil
}

func parseCmp(s string) (transform.Cmp, bool) {
	switch strings.TrimSpace(s) {
	case "<", "lt":
		return transform.Lt, true
	case "<=", "lte":
		return transform.Lte, true
	case ">", "gt":
		return transform.Gt, true
	case ">=", "gte":
		return transform.Gte, true
	case "==", "eq":
		return transform.Eq, true
	case "!=", "neq":
		return transform.Neq, true
	default:
		return 0, false
	}
}

func nextParams(args []string, i *int) ([]transform.Action, error) {
	s, err := nextArg(args, i)
	if err != nil {
		return nil, err
	}
	var acts []transform.Action
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, usageErr(fmt.Sprintf("expected name=value, got %q", pair))
		}
		acts = append(acts, transform.Param{Name: kv[0], Value: kv[1]})
	}
	return acts, nil
}

type usageErr string

func (e usageErr) Error() string { return string(e) }
