package lower

import "github.com/weft-lang/weft/internal/ir"

// scope carries the name-resolution context for one lowering call
// (§4.4 Name resolution): a bare identifier resolves to a parameter
// first, then a spindle-local bundle, then the global bundle table;
// outside a spindle only the global table is consulted. A pattern
// layers two more lookups on top: pattern-locals (inline-substituted)
// and the previous pattern step's positional/named outputs.
type scope struct {
	spindleName string
	params      map[string]bool

	spindleLocals map[string]*ir.Bundle

	// patternLocals holds pattern-local bundle declarations, inline
	// substituted into later strands of the *same* pattern (§4.4
	// "locals do not survive the pattern").
	patternLocals map[string]*scalarBinding

	// patternLocalResolve lazily lowers a not-yet-resolved pattern
	// local by name and memoizes it into patternLocals, so a local's
	// RHS may forward-reference a later local in the same pattern body
	// (§4.4 "full-body patterns support forward references to locals
	// within the same pattern"). Nil outside a full-body pattern with
	// locals. The bool return is false when name is not a pattern
	// local at all (fall through to the next scope in the lookup
	// order), distinct from an error (name is a local but its
	// resolution failed or cycled).
	patternLocalResolve func(name string) (*scalarBinding, bool, error)

	// patternInput is the previous chain step's produced values,
	// addressed positionally (.0, .N) or by name (.field) from a bare
	// strand access — valid only inside a pattern body (§4.2, §4.4).
	patternInput      []*ir.Expression
	patternInputNames map[string]int
}

// scalarBinding is a pattern-local's lowered value; locals are always
// width >= 1, but most uses project a single strand by name or index.
type scalarBinding struct {
	values []*ir.Expression
	names  map[string]int
}

func globalScope() *scope { return &scope{} }

func (s *scope) forSpindle(name string, params []string) *scope {
	ns := &scope{spindleName: name, params: map[string]bool{}, spindleLocals: map[string]*ir.Bundle{}}
	for _, p := range params {
		ns.params[p] = true
	}
	return ns
}

// withLocal returns a copy of s with a spindle-local bundle registered.
func (s *scope) withLocal(name string, b *ir.Bundle) *scope {
	ns := *s
	locals := make(map[string]*ir.Bundle, len(s.spindleLocals)+1)
	for k, v := range s.spindleLocals {
		locals[k] = v
	}
	locals[name] = b
	ns.spindleLocals = locals
	return &ns
}

// forPattern returns a scope layered with pattern-local bindings and
// the previous step's input, for lowering one pattern body.
func (s *scope) forPattern(input []*ir.Expression, inputNames map[string]int) *scope {
	ns := *s
	ns.patternLocals = map[string]*scalarBinding{}
	ns.patternInput = input
	ns.patternInputNames = inputNames
	return &ns
}
