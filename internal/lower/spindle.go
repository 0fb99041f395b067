package lower

import (
	"fmt"

	"github.com/weft-lang/weft/internal/ast"
	"github.com/weft-lang/weft/internal/ir"
)

// ensureSpindleLowered lowers decl's body (locals in order, then
// returns) exactly once, memoizing the result in c so repeated call
// sites share the same return width and local bundles (§4.2 spindle
// bodies).
func ensureSpindleLowered(decl *ast.SpindleDecl, c *context) error {
	if c.spindleLowered[decl.Name] {
		return nil
	}
	if c.lowering["spindle:"+decl.Name] {
		return fmt.Errorf("spindle %q calls itself, directly or transitively", decl.Name)
	}
	c.lowering["spindle:"+decl.Name] = true
	defer delete(c.lowering, "spindle:"+decl.Name)

	sc := globalScope().forSpindle(decl.Name, decl.Params)

	var indexed map[int]*ir.Expression
	var full []*ir.Expression
	var locals []*ir.Bundle

	for _, item := range decl.Body {
		switch it := item.(type) {
		case *ast.BundleDecl:
			vs, err := lowerRHS(it.Expr, sc, c)
			if err != nil {
				return fmt.Errorf("spindle %q local %q: %w", decl.Name, it.Name, err)
			}
			strands := make([]ir.Strand, len(vs))
			for i, v := range vs {
				strands[i] = ir.Strand{Name: localStrandName(it, i), Index: i, Expr: *v}
			}
			b := &ir.Bundle{Name: it.Name, Strands: strands}
			locals = append(locals, b)
			sc = sc.withLocal(it.Name, b)

		case *ast.ReturnStmt:
			if it.Index == nil {
				vs, err := lowerRHS(it.Expr, sc, c)
				if err != nil {
					return fmt.Errorf("spindle %q return: %w", decl.Name, err)
				}
				full = vs
				continue
			}
			v, err := lowerScalar(it.Expr, sc, c)
			if err != nil {
				return fmt.Errorf("spindle %q return.%d: %w", decl.Name, *it.Index, err)
			}
			if indexed == nil {
				indexed = map[int]*ir.Expression{}
			}
			indexed[*it.Index] = v
		}
	}

	var returns []ir.Expression
	switch {
	case full != nil:
		returns = make([]ir.Expression, len(full))
		for i, v := range full {
			returns[i] = *v
		}
	case indexed != nil:
		maxIdx := -1
		for idx := range indexed {
			if idx > maxIdx {
				maxIdx = idx
			}
		}
		returns = make([]ir.Expression, maxIdx+1)
		for idx := 0; idx <= maxIdx; idx++ {
			v, ok := indexed[idx]
			if !ok {
				return fmt.Errorf("spindle %q is missing return.%d", decl.Name, idx)
			}
			returns[idx] = *v
		}
	default:
		return fmt.Errorf("spindle %q has no return statement", decl.Name)
	}

	c.spindleReturns[decl.Name] = returns
	c.spindleLocals[decl.Name] = locals
	c.spindleLowered[decl.Name] = true
	return nil
}

func localStrandName(decl *ast.BundleDecl, i int) string {
	if decl.Outputs == nil || i >= len(decl.Outputs) {
		return ""
	}
	o := decl.Outputs[i]
	if o.Kind == ast.OutputName {
		return o.Name
	}
	return ""
}
