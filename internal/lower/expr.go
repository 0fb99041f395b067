package lower

import (
	"fmt"

	"github.com/weft-lang/weft/internal/ast"
	"github.com/weft-lang/weft/internal/ir"
)

// lowerScalar lowers expr and requires it to produce exactly one
// strand, the common case for operator operands and builtin/spindle
// arguments (§4.4).
func lowerScalar(expr ast.Expr, sc *scope, c *context) (*ir.Expression, error) {
	vs, err := lowerRHS(expr, sc, c)
	if err != nil {
		return nil, err
	}
	if len(vs) != 1 {
		return nil, fmt.Errorf("expected a single-strand expression, got width %d", len(vs))
	}
	return vs[0], nil
}

// lowerRHS lowers expr to the one-or-more IR expressions it produces
// (§4.4): a plain scalar expression yields exactly one, a bundle
// literal or multi-return spindle call yields several, concatenated in
// order.
func lowerRHS(expr ast.Expr, sc *scope, c *context) ([]*ir.Expression, error) {
	switch e := expr.(type) {
	case *ast.NumberLit:
		return one(&ir.Expression{Kind: ir.Num{Value: e.Value}, Span: e.Span}), nil

	case *ast.StringLit:
		return nil, fmt.Errorf("string literal is only valid as a resource builtin argument")

	case *ast.Ident:
		return lowerIdent(e, sc, c)

	case *ast.MeAccess:
		return one(&ir.Expression{
			Kind: ir.Index{Bundle: "me", FieldName: e.Field},
			Span: e.Span,
		}), nil

	case *ast.StrandAccess:
		return lowerStrandAccess(e, sc, c)

	case *ast.BinaryExpr:
		l, err := lowerScalar(e.Left, sc, c)
		if err != nil {
			return nil, err
		}
		r, err := lowerScalar(e.Right, sc, c)
		if err != nil {
			return nil, err
		}
		return one(&ir.Expression{Kind: ir.BinaryOp{Op: e.Op, Left: l, Right: r}, Span: e.Span}), nil

	case *ast.UnaryExpr:
		o, err := lowerScalar(e.Operand, sc, c)
		if err != nil {
			return nil, err
		}
		return one(&ir.Expression{Kind: ir.UnaryOp{Op: e.Op, Operand: o}, Span: e.Span}), nil

	case *ast.CallExpr:
		return lowerCall(e, sc, c)

	case *ast.ExtractExpr:
		call, err := lowerScalar(e.Call, sc, c)
		if err != nil {
			return nil, err
		}
		return one(&ir.Expression{Kind: ir.Extract{Call: call, Index: e.Index}, Span: e.Span}), nil

	case *ast.BundleLiteral:
		var out []*ir.Expression
		for _, el := range e.Elems {
			vs, err := lowerRHS(el, sc, c)
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
		}
		return out, nil

	case *ast.RangeExpr:
		return nil, fmt.Errorf("range expression is only valid as a chain pattern output")

	case *ast.ChainExpr:
		return lowerChain(e, sc, c)

	case *ast.RemapExpr:
		return lowerRemap(e, sc, c)

	case *ast.TagExpr:
		return nil, fmt.Errorf("internal error: tag expression survived desugaring")

	default:
		return nil, fmt.Errorf("internal error: unhandled expression type %T", expr)
	}
}

func one(e *ir.Expression) []*ir.Expression { return []*ir.Expression{e} }

// lowerIdent resolves a bare identifier by the priority order of §4.4:
// pattern-local, then parameter, then spindle-local bundle, then
// global bundle.
func lowerIdent(e *ast.Ident, sc *scope, c *context) ([]*ir.Expression, error) {
	if sc.patternLocals != nil {
		if b, ok := sc.patternLocals[e.Name]; ok {
			return append([]*ir.Expression(nil), b.values...), nil
		}
	}
	if sc.patternLocalResolve != nil {
		b, ok, err := sc.patternLocalResolve(e.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			return append([]*ir.Expression(nil), b.values...), nil
		}
	}
	if sc.params != nil && sc.params[e.Name] {
		return one(&ir.Expression{Kind: ir.Param{Name: e.Name}, Span: e.Span}), nil
	}
	if sc.spindleLocals != nil {
		if b, ok := sc.spindleLocals[e.Name]; ok {
			out := make([]*ir.Expression, len(b.Strands))
			for i := range b.Strands {
				out[i] = &b.Strands[i].Expr
			}
			return out, nil
		}
	}
	if vs, ok := c.bundleValues(e.Name, e.Span); ok {
		return append([]*ir.Expression(nil), vs...), nil
	}
	return nil, fmt.Errorf("undefined name %q", e.Name)
}

// lowerStrandAccess resolves `bundle.field`, `bundle.N`, `bundle.(expr)`,
// and the bare `.field` pattern-input forms (§4.2, §4.4).
func lowerStrandAccess(e *ast.StrandAccess, sc *scope, c *context) ([]*ir.Expression, error) {
	if e.Bundle == nil {
		return lowerPatternInputAccess(e, sc)
	}

	// `call(...).N` — extract the N-th return of a spindle invocation,
	// built by the parser as a StrandAccess on a CallExpr base (the
	// comment on ast.ExtractExpr).
	if call, ok := e.Bundle.(*ast.CallExpr); ok {
		return lowerCallExtract(e, call, sc, c)
	}

	ident, ok := e.Bundle.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("strand access base must be a name or call")
	}

	if sc.spindleLocals != nil {
		if b, ok := sc.spindleLocals[ident.Name]; ok {
			return one(selectSpindleLocalStrand(b, e)), nil
		}
	}

	switch e.Kind {
	case ast.FieldByName:
		return one(&ir.Expression{Kind: ir.Index{Bundle: ident.Name, FieldName: e.Name}, Span: e.Span}), nil
	case ast.FieldByIndex:
		idx := e.Index
		return one(&ir.Expression{Kind: ir.Index{Bundle: ident.Name, FieldIndex: &idx}, Span: e.Span}), nil
	case ast.FieldDynamic:
		ix, err := lowerScalar(e.IndexExpr, sc, c)
		if err != nil {
			return nil, err
		}
		return one(&ir.Expression{Kind: ir.Index{Bundle: ident.Name, IndexExpr: ix}, Span: e.Span}), nil
	default:
		return nil, fmt.Errorf("internal error: unknown strand access kind")
	}
}

func selectSpindleLocalStrand(b *ir.Bundle, e *ast.StrandAccess) *ir.Expression {
	switch e.Kind {
	case ast.FieldByIndex:
		if e.Index >= 0 && e.Index < len(b.Strands) {
			return &b.Strands[e.Index].Expr
		}
	case ast.FieldByName:
		for i := range b.Strands {
			if b.Strands[i].Name == e.Name {
				return &b.Strands[i].Expr
			}
		}
	}
	return &ir.Expression{Kind: ir.Num{Value: 0}, Span: e.Span}
}

// lowerPatternInputAccess resolves the bare `.field` / `.N` forms valid
// only inside a chain pattern body, against the previous step's output
// (§4.2).
func lowerPatternInputAccess(e *ast.StrandAccess, sc *scope) ([]*ir.Expression, error) {
	if sc.patternInput == nil {
		return nil, fmt.Errorf("bare strand access is only valid inside a chain pattern")
	}
	switch e.Kind {
	case ast.FieldByIndex:
		if e.Index < 0 || e.Index >= len(sc.patternInput) {
			return nil, fmt.Errorf("pattern input has no strand %d", e.Index)
		}
		return one(sc.patternInput[e.Index]), nil
	case ast.FieldByName:
		idx, ok := sc.patternInputNames[e.Name]
		if !ok {
			return nil, fmt.Errorf("pattern input has no strand named %q", e.Name)
		}
		return one(sc.patternInput[idx]), nil
	default:
		return nil, fmt.Errorf("dynamic strand access is not valid on a pattern input")
	}
}

// lowerCallExtract lowers a `spindle(args).N` access to an Extract over
// a single shared Call node (§3, ast.ExtractExpr doc comment).
func lowerCallExtract(e *ast.StrandAccess, call *ast.CallExpr, sc *scope, c *context) ([]*ir.Expression, error) {
	if _, ok := c.spindlesByName[call.Name]; !ok {
		// Not a spindle call: fall through to ordinary builtin lowering
		// and then index into its (width>1 is not legal for builtins,
		// but this keeps the error message meaningful).
		vs, err := lowerCall(call, sc, c)
		if err != nil {
			return nil, err
		}
		idx := e.Index
		if e.Kind == ast.FieldByIndex && idx >= 0 && idx < len(vs) {
			return one(vs[idx]), nil
		}
		return nil, fmt.Errorf("builtin %q does not return multiple values", call.Name)
	}
	callExpr, err := lowerSpindleCallNode(call, sc, c)
	if err != nil {
		return nil, err
	}
	idx := e.Index
	if e.Kind != ast.FieldByIndex {
		return nil, fmt.Errorf("spindle return must be accessed by index")
	}
	return one(&ir.Expression{Kind: ir.Extract{Call: callExpr, Index: idx}, Span: e.Span}), nil
}

// lowerCall dispatches a call expression to a builtin primitive or a
// user spindle (§4.4 name resolution: a spindle shadows a builtin of
// the same name; no stage rejects such a spindle name).
func lowerCall(e *ast.CallExpr, sc *scope, c *context) ([]*ir.Expression, error) {
	if _, ok := c.spindlesByName[e.Name]; ok {
		callExpr, err := lowerSpindleCallNode(e, sc, c)
		if err != nil {
			return nil, err
		}
		width := len(c.spindleReturns[e.Name])
		if width == 1 {
			return one(&ir.Expression{Kind: ir.Extract{Call: callExpr, Index: 0}, Span: e.Span}), nil
		}
		out := make([]*ir.Expression, width)
		for i := range out {
			out[i] = &ir.Expression{Kind: ir.Extract{Call: callExpr, Index: i}, Span: e.Span}
		}
		return out, nil
	}

	if _, ok := builtinWidth(e.Name); ok {
		if arity := builtinArity(e.Name); arity >= 0 && len(e.Args) != arity {
			return nil, fmt.Errorf("builtin %q expects %d argument(s), got %d", e.Name, arity, len(e.Args))
		}
		args, err := lowerCallArgs(e.Args, e.Name, sc, c)
		if err != nil {
			return nil, err
		}
		return one(&ir.Expression{Kind: ir.Builtin{Name: e.Name, Args: args}, Span: e.Span}), nil
	}

	return nil, fmt.Errorf("undefined spindle or builtin %q", e.Name)
}

// lowerSpindleCallNode lowers a spindle call's arguments and ensures
// the callee is itself lowered first (so its return width is known),
// returning the shared Call node to be wrapped in Extract per use.
func lowerSpindleCallNode(e *ast.CallExpr, sc *scope, c *context) (*ir.Expression, error) {
	decl := c.spindlesByName[e.Name]
	if len(e.Args) != len(decl.Params) {
		return nil, fmt.Errorf("spindle %q expects %d argument(s), got %d", e.Name, len(decl.Params), len(e.Args))
	}
	args := make([]*ir.Expression, len(e.Args))
	for i, a := range e.Args {
		v, err := lowerScalar(a, sc, c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if err := ensureSpindleLowered(decl, c); err != nil {
		return nil, err
	}
	return &ir.Expression{Kind: ir.Call{Spindle: e.Name, Args: args}, Span: e.Span}, nil
}

func lowerCallArgs(args []ast.Expr, name string, sc *scope, c *context) ([]*ir.Expression, error) {
	out := make([]*ir.Expression, 0, len(args))
	for i, a := range args {
		if i == 0 && (resourceBuiltins[name] || textResourceBuiltins[name]) {
			lit, ok := a.(*ast.StringLit)
			if !ok {
				return nil, fmt.Errorf("%s: first argument must be a string literal", name)
			}
			var id int
			if textResourceBuiltins[name] {
				id = c.texts.Intern(lit.Value)
			} else {
				id = c.resources.Intern(lit.Value)
			}
			out = append(out, &ir.Expression{Kind: ir.Num{Value: float64(id)}, Span: lit.Span})
			continue
		}
		v, err := lowerScalar(a, sc, c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// lowerRemap lowers `expr[key ~ value, ...]` (§3 Remap). A substitution
// keyed "me.t" marks the remap temporal (§4.4, ir.Remap doc comment);
// when base is itself multi-strand, the same substitution set is
// distributed over each resulting strand.
func lowerRemap(e *ast.RemapExpr, sc *scope, c *context) ([]*ir.Expression, error) {
	base, err := lowerRHS(e.Base, sc, c)
	if err != nil {
		return nil, err
	}
	subs := map[string]*ir.Expression{}
	temporal := false
	for _, s := range e.Subs {
		v, err := lowerScalar(s.Value, sc, c)
		if err != nil {
			return nil, err
		}
		key := s.BundleName + "." + s.Field
		subs[key] = v
		if s.BundleName == "me" && s.Field == "t" {
			temporal = true
		}
	}
	out := make([]*ir.Expression, len(base))
	for i, b := range base {
		out[i] = &ir.Expression{
			Kind: ir.Remap{Base: b, Substitutions: subs, Temporal: temporal},
			Span: e.Span,
		}
	}
	return out, nil
}
