package lower

import (
	"errors"
	"fmt"

	"github.com/weft-lang/weft/internal/ast"
	"github.com/weft-lang/weft/internal/diag"
	"github.com/weft-lang/weft/internal/ir"
)

// Lower turns a desugared program into IR (§4.4): every bundle's RHS is
// lowered to its strand expressions, every spindle's body is lowered
// once, and the whole bundle set is ordered by current-tick dependency
// (§4.4 Topological sort). Width inference, name resolution, range
// expansion, and temporal-remap detection all happen as a byproduct of
// lowering each bundle/spindle, not as separate passes — name and
// width resolution fall out of the same walk that builds expressions,
// rather than running as a dedicated pass beforehand.
func Lower(prog *ast.Program, opts Options) (*ir.Program, error) {
	c := newContext(prog)

	bundles := make(map[string]*ir.Bundle, len(prog.Bundles))
	for _, decl := range prog.Bundles {
		b, err := lowerBundle(decl, c)
		if err != nil {
			c.errorf("LoweringFailed", decl.Span, "bundle %q: %v", decl.Name, err)
			continue
		}
		bundles[decl.Name] = b
	}
	if c.errs.HasErrors() {
		return nil, c.errs
	}

	spindles := make(map[string]*ir.Spindle, len(prog.Spindles))
	for _, decl := range prog.Spindles {
		if err := ensureSpindleLowered(decl, c); err != nil {
			c.errorf("LoweringFailed", decl.Span, "spindle %q: %v", decl.Name, err)
			continue
		}
		spindles[decl.Name] = &ir.Spindle{
			Name:    decl.Name,
			Params:  append([]string(nil), decl.Params...),
			Locals:  c.spindleLocals[decl.Name],
			Returns: c.spindleReturns[decl.Name],
		}
	}
	if c.errs.HasErrors() {
		return nil, c.errs
	}

	order, err := topoSort(bundles)
	if err != nil {
		var cycleErr *circularDependencyError
		if errors.As(err, &cycleErr) {
			span := diag.Span{}
			if decl, ok := c.bundlesByName[cycleErr.name]; ok {
				span = decl.Span
			}
			c.errorf("CircularDependency", span, "%s", cycleErr.Error())
			return nil, c.errs
		}
		return nil, err
	}

	return &ir.Program{
		Bundles:   bundles,
		Spindles:  spindles,
		Order:     order,
		Resources: c.resources.Entries(),
		Texts:     c.texts.Entries(),
	}, nil
}

// lowerBundle lowers one top-level bundle declaration to its strands,
// using the memoizing context so a bundle referenced by name from
// another bundle's RHS (§4.4 width inference) is lowered exactly once.
func lowerBundle(decl *ast.BundleDecl, c *context) (*ir.Bundle, error) {
	vs, ok := c.bundleValues(decl.Name, decl.Span)
	if !ok {
		return nil, &namedLoweringError{decl.Name}
	}
	if decl.Outputs != nil && len(decl.Outputs) != len(vs) {
		return nil, widthMismatchError{decl.Name, len(decl.Outputs), len(vs)}
	}
	strands := make([]ir.Strand, len(vs))
	for i, v := range vs {
		strands[i] = ir.Strand{Name: outputName(decl, i), Index: i, Expr: *v}
	}
	return &ir.Bundle{Name: decl.Name, Strands: strands}, nil
}

func outputName(decl *ast.BundleDecl, i int) string {
	if decl.Outputs == nil || i >= len(decl.Outputs) {
		return ""
	}
	o := decl.Outputs[i]
	if o.Kind == ast.OutputName {
		return o.Name
	}
	return ""
}

type namedLoweringError struct{ name string }

func (e *namedLoweringError) Error() string { return "failed to lower bundle " + e.name }

type widthMismatchError struct {
	name          string
	declared, got int
}

func (e widthMismatchError) Error() string {
	return fmt.Sprintf("bundle %q declares %d output(s) but its expression produces %d", e.name, e.declared, e.got)
}
