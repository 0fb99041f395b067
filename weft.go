// Package weft provides a dataflow compiler for live audio/visual
// programming.
//
// A WEFT source file declares bundles (named tuples of scalar
// expressions) and spindles (user-defined functions); compiling it
// produces a Program: per-bundle strand expressions, an execution
// order, and, for the two sink bundles `display` and `play`, the
// generated visual kernel source and interpretable audio expression
// trees a host renders through a GPU context and an audio callback.
//
// Example usage:
//
//	result, err := weft.Compile(source, "scene.weft", weft.DefaultOptions())
//	if err != nil {
//	    file, line, col, msg := weft.FormatError(err)
//	    log.Fatalf("%s:%d:%d: %s", file, line, col, msg)
//	}
//	for _, unit := range result.VisualUnits {
//	    // upload unit.Source to the GPU context
//	}
package weft

import (
	"github.com/weft-lang/weft/internal/compiler"
)

// Options configures one compile (§6, SPEC_FULL ambient config layer).
type Options struct {
	SearchPaths          []string
	StdlibDir            string
	MaterializeThreshold int
}

// DefaultOptions returns sensible defaults: no extra include paths, no
// stdlib directory, and the §4.7 default materialize threshold.
func DefaultOptions() Options {
	return Options{MaterializeThreshold: 30}
}

// Result is the host-facing compiled program (§6 "Core -> host").
type Result = compiler.Result

// Compile runs the full pipeline over source (read from path, used for
// #include resolution and error reporting) and returns the compiled
// Program, or the first stage error encountered (§6 "compile(source,
// path) -> Program | Error").
func Compile(source, path string, opts Options) (*Result, error) {
	sess := compiler.NewSession(compiler.Options{
		SearchPaths:          opts.SearchPaths,
		StdlibDir:            opts.StdlibDir,
		MaterializeThreshold: opts.MaterializeThreshold,
	})
	return sess.Compile(source, path)
}

// FormatError implements the host-facing formatError(err) surface
// (§6): it returns the (file, line, col, message) tuple for any error
// a Compile call can return.
func FormatError(err error) (file string, line, col int, message string) {
	return compiler.FormatError(err)
}
