// Package lower turns a desugared AST into IR (§4.4): it infers
// implicit bundle widths, resolves names, expands chain patterns and
// ranges, and orders bundles into the current-tick topological
// schedule. Cache extraction, annotation, and swatch assignment are
// later, separate stages.
package lower

import (
	"github.com/weft-lang/weft/internal/ast"
	"github.com/weft-lang/weft/internal/diag"
	"github.com/weft-lang/weft/internal/ir"
)

// Options configures lowering behavior (§4.4, §9 open questions).
type Options struct {
	// Pipeline is not read by Lower: `me.*` fields are lowered as
	// written, without checking them against a pipeline's coordinate
	// set or the reserved coordinate names.
	Pipeline ir.Backend
}

// context carries the state shared across every bundle and spindle
// lowered from one program: the source AST (for on-demand width
// lookups of implicitly-widthed bundles), the resource/text registries,
// and in-progress/finished memoization for recursive width inference.
type context struct {
	prog *ast.Program

	bundlesByName  map[string]*ast.BundleDecl
	spindlesByName map[string]*ast.SpindleDecl

	resources *ir.ResourceRegistry
	texts     *ir.ResourceRegistry

	// lowered memoizes every global bundle's lowered strands once its
	// RHS has been lowered; caching the *Expression slice itself, not
	// just the width, avoids lowering a bundle twice.
	lowered map[string][]*ir.Expression
	// lowering guards against a true cycle through implicit-width
	// bundles: a bundle referencing its own width, directly or
	// transitively, with no intervening explicit width or cache read
	// (§4.4 "Circular width dependency").
	lowering map[string]bool

	// spindleReturns memoizes a spindle's lowered return expressions so
	// repeated calls don't re-lower the body (each spindle is lowered
	// once, since Param resolution depends on nothing
	// call-site-specific, only on the spindle's own body).
	spindleReturns map[string][]ir.Expression
	spindleLocals  map[string][]*ir.Bundle
	spindleLowered map[string]bool

	errs diag.List
}

func newContext(prog *ast.Program) *context {
	c := &context{
		prog:           prog,
		bundlesByName:  map[string]*ast.BundleDecl{},
		spindlesByName: map[string]*ast.SpindleDecl{},
		resources:      ir.NewResourceRegistry(),
		texts:          ir.NewResourceRegistry(),
		lowered:        map[string][]*ir.Expression{},
		lowering:       map[string]bool{},
		spindleReturns: map[string][]ir.Expression{},
		spindleLocals:  map[string][]*ir.Bundle{},
		spindleLowered: map[string]bool{},
	}
	for _, b := range prog.Bundles {
		c.bundlesByName[b.Name] = b
	}
	for _, s := range prog.Spindles {
		c.spindlesByName[s.Name] = s
	}
	return c
}

func (c *context) errorf(kind string, span diag.Span, format string, args ...interface{}) {
	c.errs.Add(diag.Lowering(kind, span, format, args...))
}

// bundleValues returns the lowered strand expressions of the global
// bundle name, lowering it on demand (and memoizing) if it hasn't been
// lowered yet. Used both for resolving `name.field` accesses from
// other bundles and for width-inferring implicit-width bundles.
func (c *context) bundleValues(name string, span diag.Span) ([]*ir.Expression, bool) {
	if vs, ok := c.lowered[name]; ok {
		return vs, true
	}
	decl, ok := c.bundlesByName[name]
	if !ok {
		return nil, false
	}
	if c.lowering[name] {
		c.errorf("CircularWidthDependency", span, "circular width dependency through bundle %q", name)
		return nil, false
	}
	c.lowering[name] = true
	vs, err := lowerRHS(decl.Expr, globalScope(), c)
	delete(c.lowering, name)
	if err != nil {
		c.errorf("LoweringFailed", decl.Span, "lowering bundle %q: %v", name, err)
		return nil, false
	}
	c.lowered[name] = vs
	return vs, true
}

// bundleFieldNames returns the declared output names of an explicit
// named-output bundle, or nil if the bundle is index-output or
// implicit-width.
func (c *context) bundleFieldNames(name string) map[string]int {
	decl, ok := c.bundlesByName[name]
	if !ok || decl.Outputs == nil {
		return nil
	}
	names := map[string]int{}
	for i, o := range decl.Outputs {
		if o.Kind == ast.OutputName {
			names[o.Name] = i
		}
	}
	return names
}
