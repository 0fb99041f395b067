package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weft-lang/weft/internal/ir"
)

func TestExtractRewritesCacheBuiltinToCacheRead(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Backend: ir.BackendAudio, Strands: []ir.Strand{
				{Index: 0, Expr: ir.Expression{Kind: ir.Builtin{Name: "cache", Args: []*ir.Expression{
					{Kind: ir.Index{Bundle: "a", FieldIndex: intp(0)}},
					{Kind: ir.Num{Value: 4}},
					{Kind: ir.Num{Value: 0}},
					{Kind: ir.Num{Value: 1}},
				}}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}},
	}

	require.NoError(t, Extract(prog))

	read, ok := prog.Bundles["a"].Strands[0].Expr.Kind.(ir.CacheRead)
	require.True(t, ok)
	require.Equal(t, 0, read.TapIndex)

	require.Len(t, prog.CacheDescriptors, 1)
	d := prog.CacheDescriptors[0]
	require.Equal(t, "a", d.Owner)
	require.Equal(t, 0, d.StrandIndex)
	require.Equal(t, 4, d.HistorySize)
	require.Equal(t, 0, d.TapIndex)
	require.Equal(t, ir.BackendAudio, d.Domain)
	require.True(t, d.HasSelfRef)
	require.Equal(t, read.CacheID, d.ID)

	require.NotNil(t, d.Value, "descriptor must retain the cache() call's value argument so codegen can push it after the tick")
	idx, ok := d.Value.Kind.(ir.Index)
	require.True(t, ok)
	require.Equal(t, "a", idx.Bundle)
}

func TestExtractNonSelfReferentialCache(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"src": {Name: "src", Backend: ir.BackendVisual, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 0}}},
			}},
			"a": {Name: "a", Backend: ir.BackendVisual, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Builtin{Name: "cache", Args: []*ir.Expression{
					{Kind: ir.Index{Bundle: "src", FieldIndex: intp(0)}},
					{Kind: ir.Num{Value: 8}},
					{Kind: ir.Num{Value: 1}},
					{Kind: ir.Num{Value: 1}},
				}}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "src"}, {Bundle: "a"}},
	}

	require.NoError(t, Extract(prog))
	require.False(t, prog.CacheDescriptors[0].HasSelfRef)
}

func TestExtractAssignsDistinctOrdinalsPerStrand(t *testing.T) {
	cacheExpr := func() *ir.Expression {
		return &ir.Expression{Kind: ir.Builtin{Name: "cache", Args: []*ir.Expression{
			{Kind: ir.Num{Value: 0}}, {Kind: ir.Num{Value: 2}}, {Kind: ir.Num{Value: 0}}, {Kind: ir.Num{Value: 1}},
		}}}
	}
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Strands: []ir.Strand{
				{Index: 0, Expr: *cacheExpr()},
				{Index: 1, Expr: *cacheExpr()},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}},
	}
	require.NoError(t, Extract(prog))
	require.Len(t, prog.CacheDescriptors, 2)
	require.NotEqual(t, prog.CacheDescriptors[0].ID, prog.CacheDescriptors[1].ID)
}

func TestExtractMissingArgumentError(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Builtin{Name: "cache", Args: []*ir.Expression{
					{Kind: ir.Num{Value: 0}},
				}}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}},
	}
	require.Error(t, Extract(prog))
}

func intp(i int) *int { return &i }
