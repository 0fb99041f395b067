// Package audio generates the interpretable expression trees audio
// strands are executed from (§4.7): unlike the visual kernel emitter,
// audio strands stay as IR and are evaluated per-sample by the host,
// with every spindle Call/Extract fully inlined first so the host
// interpreter never needs the spindle table at runtime.
package audio

import (
	"fmt"

	"github.com/weft-lang/weft/internal/ir"
	"github.com/weft-lang/weft/internal/swatch"
)

// Strand is one audio strand ready for per-sample interpretation.
type Strand struct {
	Name  string
	Index int
	Expr  *ir.Expression
}

// Unit is one audio swatch's interpretable strand set.
type Unit struct {
	Backend ir.Backend
	Bundle  string
	Strands []Strand

	// CachePushes holds one fully-inlined push expression per
	// ir.CacheDescriptor this bundle owns (§4.6): the host interpreter
	// evaluates each after the tick's Strands have all been evaluated
	// and writes the result into that descriptor's ring buffer, so a
	// later tick's CacheRead sees this tick's value.
	CachePushes []CachePush
}

// CachePush is one post-tick history-buffer write.
type CachePush struct {
	CacheID string
	Expr    *ir.Expression
}

// Generate produces one Unit per audio bundle, in swatch order.
func Generate(prog *ir.Program, sw *swatch.Result) ([]*Unit, error) {
	var units []*Unit
	for _, s := range sw.Swatches {
		if s.Backend != ir.BackendAudio {
			continue
		}
		for _, name := range s.Bundles {
			b, ok := prog.Bundles[name]
			if !ok {
				continue
			}
			u := &Unit{Backend: ir.BackendAudio, Bundle: b.Name}
			for i := range b.Strands {
				st := &b.Strands[i]
				inlined, err := fullyInline(&st.Expr, prog.Spindles)
				if err != nil {
					return nil, fmt.Errorf("audio codegen: bundle %q strand %d: %w", b.Name, i, err)
				}
				u.Strands = append(u.Strands, Strand{Name: st.Name, Index: i, Expr: inlined})
			}
			for _, cd := range prog.CacheDescriptors {
				if cd.Owner != b.Name {
					continue
				}
				inlined, err := fullyInline(cd.Value, prog.Spindles)
				if err != nil {
					return nil, fmt.Errorf("audio codegen: cache %q push value: %w", cd.ID, err)
				}
				u.CachePushes = append(u.CachePushes, CachePush{CacheID: cd.ID, Expr: inlined})
			}
			units = append(units, u)
		}
	}
	return units, nil
}

// fullyInline replaces every Extract(Call(...)) in e's tree with its
// resolved return expression, recursively, so the result contains no
// Call or Extract nodes — spindles never recurse (a Non-goal), so this
// always terminates.
func fullyInline(e *ir.Expression, spindles map[string]*ir.Spindle) (*ir.Expression, error) {
	if e == nil {
		return nil, nil
	}
	var firstErr error
	rewritten := ir.MapChildren(e, func(c *ir.Expression) *ir.Expression {
		out, err := fullyInline(c, spindles)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return c
		}
		return out
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if _, ok := rewritten.Kind.(ir.Extract); !ok {
		return rewritten, nil
	}
	inlined, ok := ir.InlineExtract(rewritten, spindles)
	if !ok {
		return nil, fmt.Errorf("unresolved spindle extraction")
	}
	return fullyInline(inlined, spindles)
}
