package audio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weft-lang/weft/internal/ir"
	"github.com/weft-lang/weft/internal/swatch"
)

func buildResult(prog *ir.Program) *swatch.Result {
	res, err := swatch.Build(prog)
	if err != nil {
		panic(err)
	}
	return res
}

func TestGenerateSkipsNonAudioSwatches(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"glow": {Name: "glow", Backend: ir.BackendVisual, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 0}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "glow"}},
	}
	units, err := Generate(prog, buildResult(prog))
	require.NoError(t, err)
	require.Empty(t, units)
}

func TestGenerateProducesOneUnitPerAudioBundle(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"play": {Name: "play", Backend: ir.BackendAudio, Strands: []ir.Strand{
				{Index: 0, Name: "l", Expr: ir.Expression{Kind: ir.Index{Bundle: "me", FieldName: "i"}}},
				{Index: 1, Name: "r", Expr: ir.Expression{Kind: ir.Index{Bundle: "me", FieldName: "i"}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "play"}},
	}
	units, err := Generate(prog, buildResult(prog))
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "play", units[0].Bundle)
	require.Len(t, units[0].Strands, 2)
	require.Equal(t, "l", units[0].Strands[0].Name)
	require.Equal(t, "r", units[0].Strands[1].Name)
}

func TestGenerateFullyInlinesSpindleCall(t *testing.T) {
	spindle := &ir.Spindle{
		Name:   "scale",
		Params: []string{"v", "k"},
		Returns: []ir.Expression{
			{Kind: ir.BinaryOp{Op: "*", Left: &ir.Expression{Kind: ir.Param{Name: "v"}}, Right: &ir.Expression{Kind: ir.Param{Name: "k"}}}},
		},
	}
	call := &ir.Expression{Kind: ir.Call{Spindle: "scale", Args: []*ir.Expression{
		{Kind: ir.Index{Bundle: "me", FieldName: "i"}}, {Kind: ir.Num{Value: 2}},
	}}}
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"play": {Name: "play", Backend: ir.BackendAudio, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Extract{Call: call, Index: 0}}},
			}},
		},
		Spindles: map[string]*ir.Spindle{"scale": spindle},
		Order:    []ir.ExecEntry{{Bundle: "play"}},
	}
	units, err := Generate(prog, buildResult(prog))
	require.NoError(t, err)
	require.Len(t, units, 1)
	result := units[0].Strands[0].Expr
	bin, ok := result.Kind.(ir.BinaryOp)
	require.True(t, ok, "expected fully-inlined BinaryOp, got %T", result.Kind)
	require.Equal(t, "*", bin.Op)
	_, leftIsCall := bin.Left.Kind.(ir.Call)
	require.False(t, leftIsCall)

	// original spindle definition must be untouched
	_, stillParam := spindle.Returns[0].Kind.(ir.BinaryOp)
	require.True(t, stillParam)
	left := spindle.Returns[0].Kind.(ir.BinaryOp).Left
	_, unresolved := left.Kind.(ir.Param)
	require.True(t, unresolved)
}

func TestGenerateUnresolvedSpindleErrors(t *testing.T) {
	call := &ir.Expression{Kind: ir.Call{Spindle: "missing"}}
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"play": {Name: "play", Backend: ir.BackendAudio, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Extract{Call: call, Index: 0}}},
			}},
		},
		Spindles: map[string]*ir.Spindle{},
		Order:    []ir.ExecEntry{{Bundle: "play"}},
	}
	_, err := Generate(prog, buildResult(prog))
	require.Error(t, err)
}

func TestGenerateEmitsCachePushForOwnedDescriptor(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"play": {Name: "play", Backend: ir.BackendAudio, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.CacheRead{CacheID: "play#0#0", TapIndex: 0}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "play"}},
		CacheDescriptors: []ir.CacheDescriptor{
			{
				ID:          "play#0#0",
				Owner:       "play",
				StrandIndex: 0,
				HistorySize: 4,
				TapIndex:    0,
				Domain:      ir.BackendAudio,
				Value:       &ir.Expression{Kind: ir.Index{Bundle: "me", FieldName: "i"}},
			},
		},
	}
	units, err := Generate(prog, buildResult(prog))
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Len(t, units[0].CachePushes, 1)
	require.Equal(t, "play#0#0", units[0].CachePushes[0].CacheID)
	idx, ok := units[0].CachePushes[0].Expr.Kind.(ir.Index)
	require.True(t, ok)
	require.Equal(t, "me", idx.Bundle)
}

func TestGenerateNestedExtractInsideBinaryOpIsInlined(t *testing.T) {
	spindle := &ir.Spindle{
		Name:    "half",
		Params:  []string{"v"},
		Returns: []ir.Expression{{Kind: ir.BinaryOp{Op: "/", Left: &ir.Expression{Kind: ir.Param{Name: "v"}}, Right: &ir.Expression{Kind: ir.Num{Value: 2}}}}},
	}
	call := &ir.Expression{Kind: ir.Call{Spindle: "half", Args: []*ir.Expression{{Kind: ir.Index{Bundle: "me", FieldName: "i"}}}}}
	expr := ir.Expression{Kind: ir.BinaryOp{
		Op:   "+",
		Left: &ir.Expression{Kind: ir.Extract{Call: call, Index: 0}},
		Right: &ir.Expression{Kind: ir.Num{Value: 1}},
	}}
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"play": {Name: "play", Backend: ir.BackendAudio, Strands: []ir.Strand{{Expr: expr}}},
		},
		Spindles: map[string]*ir.Spindle{"half": spindle},
		Order:    []ir.ExecEntry{{Bundle: "play"}},
	}
	units, err := Generate(prog, buildResult(prog))
	require.NoError(t, err)
	outer := units[0].Strands[0].Expr.Kind.(ir.BinaryOp)
	inner, ok := outer.Left.Kind.(ir.BinaryOp)
	require.True(t, ok, "expected inlined half() to surface as a BinaryOp, got %T", outer.Left.Kind)
	require.Equal(t, "/", inner.Op)
}
