package lower

import (
	"fmt"

	"github.com/weft-lang/weft/internal/ast"
	"github.com/weft-lang/weft/internal/ir"
)

// lowerChain lowers `base | pattern1 | pattern2 | …` (§4.2, §4.4): each
// pattern step consumes the previous step's output positionally (and,
// for the very first step, by name when the base is a named bundle)
// and produces the next step's input.
func lowerChain(e *ast.ChainExpr, sc *scope, c *context) ([]*ir.Expression, error) {
	input, err := lowerRHS(e.Base, sc, c)
	if err != nil {
		return nil, err
	}
	names := baseFieldNames(e.Base, c)

	for _, pat := range e.Patterns {
		input, err = lowerPattern(pat, input, names, sc, c)
		if err != nil {
			return nil, err
		}
		names = nil // only the chain's original base carries field names
	}
	return input, nil
}

func baseFieldNames(base ast.Expr, c *context) map[string]int {
	id, ok := base.(*ast.Ident)
	if !ok {
		return nil
	}
	return c.bundleFieldNames(id.Name)
}

// lowerPattern lowers one `| …` step against the previous step's
// output, returning the new output list (§4.2).
func lowerPattern(pat ast.Pattern, input []*ir.Expression, names map[string]int, sc *scope, c *context) ([]*ir.Expression, error) {
	psc := sc.forPattern(input, names)

	if pat.Inline != nil {
		return lowerOutputExprs(pat.Inline, psc, c)
	}

	if len(pat.Locals) > 0 {
		var err error
		psc, err = lowerPatternLocals(pat.Locals, psc, c)
		if err != nil {
			return nil, err
		}
	}
	return lowerOutputExprs(pat.Outputs, psc, c)
}

// lowerPatternLocals lowers a full-body pattern's locals against a
// scope where every local name resolves — even one not yet lowered —
// so a local's RHS may forward-reference a later local in the same
// pattern body (§4.4). Each local is lowered at most once, memoized
// into a shared results map as it resolves; a local that is still
// being resolved when its own name is looked up again is a genuine
// reference cycle between locals, which is an error rather than a
// width-inference concern.
func lowerPatternLocals(locals []ast.BundleDecl, psc *scope, c *context) (*scope, error) {
	results := map[string]*scalarBinding{}
	inProgress := map[string]bool{}

	lsc := *psc
	var resolve func(name string) (*scalarBinding, bool, error)
	resolve = func(name string) (*scalarBinding, bool, error) {
		if b, ok := results[name]; ok {
			return b, true, nil
		}
		idx := -1
		for i, local := range locals {
			if local.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false, nil
		}
		if inProgress[name] {
			return nil, true, fmt.Errorf("pattern local %q forms a circular reference", name)
		}
		local := locals[idx]
		inProgress[name] = true
		vs, err := lowerRHS(local.Expr, &lsc, c)
		delete(inProgress, name)
		if err != nil {
			return nil, true, fmt.Errorf("pattern local %q: %w", local.Name, err)
		}
		names := map[string]int{}
		for i, o := range local.Outputs {
			if o.Kind == ast.OutputName {
				names[o.Name] = i
			}
		}
		b := &scalarBinding{values: vs, names: names}
		results[name] = b
		return b, true, nil
	}

	lsc.patternLocals = results
	lsc.patternLocalResolve = resolve

	for _, local := range locals {
		if _, _, err := resolve(local.Name); err != nil {
			return nil, err
		}
	}
	return &lsc, nil
}

// lowerOutputExprs lowers a pattern step's output expression list,
// expanding any embedded range expressions (§4.4 range expansion): an
// output expression containing one or more `lo..hi` ranges is unrolled
// into (hi-lo) separate strands, one per integer in the range, with
// every range in that single expression substituted in lockstep.
func lowerOutputExprs(exprs []ast.Expr, sc *scope, c *context) ([]*ir.Expression, error) {
	var out []*ir.Expression
	for _, expr := range exprs {
		ranges := collectRanges(expr)
		if len(ranges) == 0 {
			vs, err := lowerRHS(expr, sc, c)
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
			continue
		}
		size := ranges[0].Hi - ranges[0].Lo
		for _, r := range ranges[1:] {
			if r.Hi-r.Lo != size {
				return nil, fmt.Errorf("ranges in one output expression must share the same size")
			}
		}
		if size < 0 {
			return nil, fmt.Errorf("range has negative size")
		}
		lo := ranges[0].Lo
		for i := 0; i < size; i++ {
			substituted := substituteRanges(expr, lo+i)
			v, err := lowerScalar(substituted, sc, c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// collectRanges finds every RangeExpr in expr; ranges are only legal
// inside a chain pattern output, never nested under another range.
func collectRanges(expr ast.Expr) []*ast.RangeExpr {
	var out []*ast.RangeExpr
	var visit func(ast.Expr)
	visit = func(expr ast.Expr) {
		if expr == nil {
			return
		}
		switch e := expr.(type) {
		case *ast.RangeExpr:
			out = append(out, e)
		case *ast.BinaryExpr:
			visit(e.Left)
			visit(e.Right)
		case *ast.UnaryExpr:
			visit(e.Operand)
		case *ast.CallExpr:
			for _, a := range e.Args {
				visit(a)
			}
		case *ast.StrandAccess:
			visit(e.Bundle)
			visit(e.IndexExpr)
		case *ast.ExtractExpr:
			visit(e.Call)
		case *ast.BundleLiteral:
			for _, el := range e.Elems {
				visit(el)
			}
		case *ast.RemapExpr:
			visit(e.Base)
			for _, s := range e.Subs {
				visit(s.Value)
			}
		}
	}
	visit(expr)
	return out
}

// substituteRanges deep-clones expr, replacing every RangeExpr leaf
// with the literal value lo+i (§4.4).
func substituteRanges(expr ast.Expr, value int) ast.Expr {
	switch e := expr.(type) {
	case *ast.RangeExpr:
		return &ast.NumberLit{Value: float64(value), Span: e.Span}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Op: e.Op, Left: substituteRanges(e.Left, value), Right: substituteRanges(e.Right, value), Span: e.Span}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Op: e.Op, Operand: substituteRanges(e.Operand, value), Span: e.Span}
	case *ast.CallExpr:
		args := make([]ast.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = substituteRanges(a, value)
		}
		return &ast.CallExpr{Name: e.Name, Args: args, Span: e.Span}
	case *ast.StrandAccess:
		ns := *e
		if e.Bundle != nil {
			ns.Bundle = substituteRanges(e.Bundle, value)
		}
		if e.IndexExpr != nil {
			ns.IndexExpr = substituteRanges(e.IndexExpr, value)
		}
		return &ns
	case *ast.ExtractExpr:
		return &ast.ExtractExpr{Call: substituteRanges(e.Call, value), Index: e.Index, Span: e.Span}
	case *ast.BundleLiteral:
		elems := make([]ast.Expr, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = substituteRanges(el, value)
		}
		return &ast.BundleLiteral{Elems: elems, Span: e.Span}
	case *ast.RemapExpr:
		subs := make([]ast.RemapSub, len(e.Subs))
		for i, s := range e.Subs {
			subs[i] = ast.RemapSub{BundleName: s.BundleName, Field: s.Field, Value: substituteRanges(s.Value, value)}
		}
		return &ast.RemapExpr{Base: substituteRanges(e.Base, value), Subs: subs, Span: e.Span}
	default:
		return expr
	}
}
