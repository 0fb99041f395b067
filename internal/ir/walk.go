package ir

// Ref is a qualified strand reference: a bundle name plus, when known
// statically, the strand within it. DynamicWhole is true when the
// reference is through a dynamic index (`bundle.(expr)`), in which
// case the dependency is on the whole bundle (§4.4 "Dynamic strand
// access").
type Ref struct {
	Bundle       string
	Strand       string
	DynamicWhole bool
}

// Children returns the immediate child expressions of e, in evaluation
// order. Every traversal in this package (free-vars, builtin
// collection, child-mapping) is a single-dispatch switch over the
// variant tag, per §9.
func Children(e *Expression) []*Expression {
	if e == nil {
		return nil
	}
	switch k := e.Kind.(type) {
	case Num, Param:
		return nil
	case Index:
		if k.IndexExpr != nil {
			return []*Expression{k.IndexExpr}
		}
		return nil
	case BinaryOp:
		return []*Expression{k.Left, k.Right}
	case UnaryOp:
		return []*Expression{k.Operand}
	case Call:
		return append([]*Expression(nil), k.Args...)
	case Builtin:
		return append([]*Expression(nil), k.Args...)
	case Extract:
		return []*Expression{k.Call}
	case Remap:
		children := []*Expression{k.Base}
		for _, v := range k.Substitutions {
			children = append(children, v)
		}
		return children
	case CacheRead:
		return nil
	default:
		return nil
	}
}

// CurrentTickFreeVars returns the set of qualified strand references
// that contribute to s's *current-tick* dependency edges (§4.4
// Topological sort, §3 invariant 3). A Remap carrying the "me.t"
// substitution key does not propagate its base's free vars into this
// set — that dependency is resolved as a previous-tick read instead
// (§4.4, §8 invariant 5). CacheRead nodes contribute nothing: they are
// a previous-tick read by construction (§4.6).
func CurrentTickFreeVars(e *Expression) []Ref {
	var out []Ref
	var visit func(e *Expression)
	visit = func(e *Expression) {
		if e == nil {
			return
		}
		switch k := e.Kind.(type) {
		case Index:
			if k.IndexExpr != nil {
				out = append(out, Ref{Bundle: k.Bundle, DynamicWhole: true})
				visit(k.IndexExpr)
				return
			}
			field := k.FieldName
			if k.FieldIndex != nil {
				field = indexFieldKey(*k.FieldIndex)
			}
			out = append(out, Ref{Bundle: k.Bundle, Strand: field})
		case Remap:
			if k.Temporal {
				// base's free vars resolved as a previous-tick read; do
				// not contribute to the current-tick edge set.
				for _, v := range k.Substitutions {
					visit(v)
				}
				return
			}
			visit(k.Base)
			for _, v := range k.Substitutions {
				visit(v)
			}
		case CacheRead:
			// previous-tick by construction; no current-tick edge.
		case Builtin:
			if k.Name == "cache" && len(k.Args) > 0 {
				// the history value becomes a previous-tick CacheRead once
				// the cache extractor runs (§4.6); the scheduling order
				// computed during lowering must already treat it that way,
				// since extraction happens afterward.
				for _, a := range k.Args[1:] {
					visit(a)
				}
				return
			}
			for _, c := range Children(e) {
				visit(c)
			}
		default:
			for _, c := range Children(e) {
				visit(c)
			}
		}
	}
	visit(e)
	return out
}

func indexFieldKey(i int) string {
	return "#" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// ContainsCacheBuiltin reports whether e's tree contains a pre-extraction
// `cache(...)` builtin call (§4.5 stateful flag, before extraction).
func ContainsCacheBuiltin(e *Expression) bool {
	if e == nil {
		return false
	}
	if b, ok := e.Kind.(Builtin); ok && b.Name == "cache" {
		return true
	}
	for _, c := range Children(e) {
		if ContainsCacheBuiltin(c) {
			return true
		}
	}
	return false
}

// ContainsCacheRead reports whether e's tree contains a CacheRead node
// (§4.5 stateful flag, after extraction).
func ContainsCacheRead(e *Expression) bool {
	if e == nil {
		return false
	}
	if _, ok := e.Kind.(CacheRead); ok {
		return true
	}
	for _, c := range Children(e) {
		if ContainsCacheRead(c) {
			return true
		}
	}
	return false
}

// CollectHardware returns the set of hardware primitives e's tree
// consumes (§4.5 Hardware set).
func CollectHardware(e *Expression) map[Hardware]bool {
	out := map[Hardware]bool{}
	var visit func(e *Expression)
	visit = func(e *Expression) {
		if e == nil {
			return
		}
		if b, ok := e.Kind.(Builtin); ok {
			switch b.Name {
			case "camera":
				out[HardwareCamera] = true
			case "microphone":
				out[HardwareMicrophone] = true
			case "mouse", "key":
				out[HardwareMouse] = true
			}
		}
		for _, c := range Children(e) {
			visit(c)
		}
	}
	visit(e)
	return out
}

// MapChildren rebuilds e with each immediate child replaced by fn(child),
// preserving the node's own Kind variant and Span. Used by the cache
// extractor, by InlineExtract's parameter substitution, and by the
// audio generator's inlining.
func MapChildren(e *Expression, fn func(*Expression) *Expression) *Expression {
	if e == nil {
		return nil
	}
	switch k := e.Kind.(type) {
	case Num, Param, CacheRead:
		return e
	case Index:
		nk := k
		if k.IndexExpr != nil {
			nk.IndexExpr = fn(k.IndexExpr)
		}
		return &Expression{Kind: nk, Span: e.Span}
	case BinaryOp:
		nk := k
		nk.Left = fn(k.Left)
		nk.Right = fn(k.Right)
		return &Expression{Kind: nk, Span: e.Span}
	case UnaryOp:
		nk := k
		nk.Operand = fn(k.Operand)
		return &Expression{Kind: nk, Span: e.Span}
	case Call:
		nk := k
		nk.Args = mapSlice(k.Args, fn)
		return &Expression{Kind: nk, Span: e.Span}
	case Builtin:
		nk := k
		nk.Args = mapSlice(k.Args, fn)
		return &Expression{Kind: nk, Span: e.Span}
	case Extract:
		nk := k
		nk.Call = fn(k.Call)
		return &Expression{Kind: nk, Span: e.Span}
	case Remap:
		nk := k
		nk.Base = fn(k.Base)
		if k.Substitutions != nil {
			subs := make(map[string]*Expression, len(k.Substitutions))
			for key, v := range k.Substitutions {
				subs[key] = fn(v)
			}
			nk.Substitutions = subs
		}
		return &Expression{Kind: nk, Span: e.Span}
	default:
		return e
	}
}

func mapSlice(in []*Expression, fn func(*Expression) *Expression) []*Expression {
	if in == nil {
		return nil
	}
	out := make([]*Expression, len(in))
	for i, e := range in {
		out[i] = fn(e)
	}
	return out
}
