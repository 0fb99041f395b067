// Package cache implements the cache extractor (§4.6): it rewrites
// every `cache(value, historySize, tapIndex, signal)` builtin call into
// a CacheRead node plus a producer entry in the Program's cache
// descriptor table, breaking the cycle a self-referential feedback
// strand would otherwise form in the current-tick dependency graph.
package cache

import (
	"fmt"

	"github.com/weft-lang/weft/internal/ir"
)

// Extract rewrites cache(...) builtins across every bundle's strands
// in place and appends one descriptor per occurrence to
// prog.CacheDescriptors, in a stable (owner, strandIndex, ordinal)
// order. It must run after the annotator and swatch builder, since a
// descriptor's domain is the owning bundle's already-assigned backend.
func Extract(prog *ir.Program) error {
	var descriptors []ir.CacheDescriptor

	for _, entry := range prog.Order {
		b, ok := prog.Bundles[entry.Bundle]
		if !ok {
			continue
		}
		for i := range b.Strands {
			s := &b.Strands[i]
			ordinal := 0
			rewritten, err := rewrite(&s.Expr, b, i, &ordinal, &descriptors)
			if err != nil {
				return err
			}
			s.Expr = *rewritten
		}
	}

	prog.CacheDescriptors = descriptors
	return nil
}

// rewrite walks e bottom-up, replacing every cache(...) call with a
// CacheRead and recording its descriptor.
func rewrite(e *ir.Expression, owner *ir.Bundle, strandIndex int, ordinal *int, descriptors *[]ir.CacheDescriptor) (*ir.Expression, error) {
	if e == nil {
		return nil, nil
	}

	var firstErr error
	rewritten := ir.MapChildren(e, func(child *ir.Expression) *ir.Expression {
		out, err := rewrite(child, owner, strandIndex, ordinal, descriptors)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return child
		}
		return out
	})
	if firstErr != nil {
		return nil, firstErr
	}

	b, ok := rewritten.Kind.(ir.Builtin)
	if !ok || b.Name != "cache" {
		return rewritten, nil
	}
	if len(b.Args) != 4 {
		return nil, fmt.Errorf("cache() expects 4 arguments, got %d", len(b.Args))
	}

	historySize, ok := asInt(b.Args[1])
	if !ok {
		return nil, fmt.Errorf("cache(): historySize must be a numeric literal")
	}
	tapIndex, ok := asInt(b.Args[2])
	if !ok {
		return nil, fmt.Errorf("cache(): tapIndex must be a numeric literal")
	}

	id := fmt.Sprintf("%s#%d#%d", owner.Name, strandIndex, *ordinal)
	*ordinal++

	*descriptors = append(*descriptors, ir.CacheDescriptor{
		ID:          id,
		Owner:       owner.Name,
		StrandIndex: strandIndex,
		HistorySize: historySize,
		TapIndex:    tapIndex,
		Domain:      owner.Backend,
		HasSelfRef:  referencesBundle(b.Args[0], owner.Name),
		Value:       b.Args[0],
	})

	return &ir.Expression{
		Kind: ir.CacheRead{CacheID: id, TapIndex: tapIndex},
		Span: e.Span,
	}, nil
}

func asInt(e *ir.Expression) (int, bool) {
	n, ok := e.Kind.(ir.Num)
	if !ok {
		return 0, false
	}
	return int(n.Value), true
}

// referencesBundle reports whether e's tree reads any strand of
// bundle name, used to flag a cache entry as self-referential (§4.6).
func referencesBundle(e *ir.Expression, name string) bool {
	if e == nil {
		return false
	}
	if idx, ok := e.Kind.(ir.Index); ok && idx.Bundle == name {
		return true
	}
	for _, c := range ir.Children(e) {
		if referencesBundle(c, name) {
			return true
		}
	}
	return false
}
