package annotate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weft-lang/weft/internal/ir"
)

func TestAnnotateMeCoordinateDomain(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"glow": {Name: "glow", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Index{Bundle: "me", FieldName: "x"}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "glow"}},
	}
	require.NoError(t, Annotate(prog))
	require.True(t, prog.Bundles["glow"].Strands[0].Domain[ir.CoordX])
	require.Equal(t, ir.BackendVisual, prog.Bundles["glow"].Backend)
}

func TestAnnotateDomainPropagatesThroughUpstreamBundle(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Index{Bundle: "me", FieldName: "i"}}},
			}},
			"b": {Name: "b", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Index{Bundle: "a", FieldIndex: intp(0)}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}, {Bundle: "b"}},
	}
	require.NoError(t, Annotate(prog))
	require.True(t, prog.Bundles["b"].Strands[0].Domain[ir.CoordI])
	require.Equal(t, ir.BackendAudio, prog.Bundles["b"].Backend)
}

func TestAnnotateDisplayAndPlayPinnedRegardlessOfDomain(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"display": {Name: "display", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 1}}},
			}},
			"play": {Name: "play", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 1}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "display"}, {Bundle: "play"}},
	}
	require.NoError(t, Annotate(prog))
	require.Equal(t, ir.BackendVisual, prog.Bundles["display"].Backend)
	require.Equal(t, ir.BackendAudio, prog.Bundles["play"].Backend)
}

func TestAnnotateStatefulFromCacheBuiltin(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Builtin{Name: "cache", Args: []*ir.Expression{
					{Kind: ir.Num{Value: 0}}, {Kind: ir.Num{Value: 4}}, {Kind: ir.Num{Value: 0}},
				}}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}},
	}
	require.NoError(t, Annotate(prog))
	require.True(t, prog.Bundles["a"].Strands[0].Stateful)
	require.Equal(t, ir.PurityStateful, prog.Bundles["a"].Purity)
}

func TestAnnotateStatefulFromCacheRead(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.CacheRead{CacheID: "a#0#0", TapIndex: 1}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}},
	}
	require.NoError(t, Annotate(prog))
	require.True(t, prog.Bundles["a"].Strands[0].Stateful)
}

func TestAnnotateHardwarePurityIsExternal(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"cam": {Name: "cam", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Builtin{Name: "camera"}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "cam"}},
	}
	require.NoError(t, Annotate(prog))
	require.Equal(t, ir.PurityExternal, prog.Bundles["cam"].Purity)
	require.True(t, prog.Bundles["cam"].Hardware[ir.HardwareCamera])
}

func TestAnnotatePureArithmeticBundle(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"k": {Name: "k", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 2}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "k"}},
	}
	require.NoError(t, Annotate(prog))
	require.Equal(t, ir.PurityPure, prog.Bundles["k"].Purity)
	require.Equal(t, ir.BackendUnknown, prog.Bundles["k"].Backend)
}

func TestAnnotateAmbiguousConstantFollowsDownstreamSink(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"k": {Name: "k", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 2}}},
			}},
			"glow": {Name: "glow", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.BinaryOp{
					Op:    "+",
					Left:  &ir.Expression{Kind: ir.Index{Bundle: "me", FieldName: "x"}},
					Right: &ir.Expression{Kind: ir.Index{Bundle: "k", FieldIndex: intp(0)}},
				}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "k"}, {Bundle: "glow"}},
	}
	require.NoError(t, Annotate(prog))
	require.Equal(t, ir.BackendVisual, prog.Bundles["glow"].Backend)
	require.Equal(t, ir.BackendVisual, prog.Bundles["k"].Backend,
		"a shared constant with no domain of its own must inherit its sink's backend instead of staying BackendUnknown")
}

func TestAnnotateAmbiguousConstantChainPropagatesTransitively(t *testing.T) {
	// "k" feeds "scaled", which has no domain of its own either, which
	// feeds "glow" (visual) -- both ambiguous links in the chain must
	// resolve to visual.
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"k": {Name: "k", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 2}}},
			}},
			"scaled": {Name: "scaled", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Index{Bundle: "k", FieldIndex: intp(0)}}},
			}},
			"glow": {Name: "glow", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.BinaryOp{
					Op:    "+",
					Left:  &ir.Expression{Kind: ir.Index{Bundle: "me", FieldName: "x"}},
					Right: &ir.Expression{Kind: ir.Index{Bundle: "scaled", FieldIndex: intp(0)}},
				}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "k"}, {Bundle: "scaled"}, {Bundle: "glow"}},
	}
	require.NoError(t, Annotate(prog))
	require.Equal(t, ir.BackendVisual, prog.Bundles["scaled"].Backend)
	require.Equal(t, ir.BackendVisual, prog.Bundles["k"].Backend)
}

func intp(i int) *int { return &i }
