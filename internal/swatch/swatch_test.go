package swatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weft-lang/weft/internal/ir"
)

func intp(i int) *int { return &i }

func TestBuildGroupsBundlesByBackendPreservingOrder(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Backend: ir.BackendVisual},
			"b": {Name: "b", Backend: ir.BackendAudio},
			"c": {Name: "c", Backend: ir.BackendVisual},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}, {Bundle: "b"}, {Bundle: "c"}},
	}

	res, err := Build(prog)
	require.NoError(t, err)
	require.Len(t, res.Swatches, 2)
	require.Equal(t, ir.BackendVisual, res.Swatches[0].Backend)
	require.Equal(t, []string{"a", "c"}, res.Swatches[0].Bundles)
	require.Equal(t, ir.BackendAudio, res.Swatches[1].Backend)
	require.Equal(t, []string{"b"}, res.Swatches[1].Bundles)
}

func TestBuildOneSwatchPerBackend(t *testing.T) {
	// a, b, c interleave visual/audio/visual — since "a" and "c" share a
	// backend but are not adjacent, the swatch index map must route "c"
	// back into the first swatch rather than opening a third one.
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Backend: ir.BackendVisual},
			"b": {Name: "b", Backend: ir.BackendAudio},
			"c": {Name: "c", Backend: ir.BackendVisual},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}, {Bundle: "b"}, {Bundle: "c"}},
	}
	res, err := Build(prog)
	require.NoError(t, err)
	require.Len(t, res.Swatches, 2)
}

func TestBuildRecordsCrossBackendBuffer(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"src": {Name: "src", Backend: ir.BackendAudio, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 0}}},
			}},
			"glow": {Name: "glow", Backend: ir.BackendVisual, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Index{Bundle: "src", FieldIndex: intp(0)}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "src"}, {Bundle: "glow"}},
	}

	res, err := Build(prog)
	require.NoError(t, err)
	require.Len(t, res.CrossBuffers, 1)
	cb := res.CrossBuffers[0]
	require.Equal(t, "src", cb.Bundle)
	require.Equal(t, ir.BackendAudio, cb.From)
	require.Equal(t, ir.BackendVisual, cb.To)
}

func TestBuildSameBackendReferenceIsNotCrossBuffer(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"a": {Name: "a", Backend: ir.BackendVisual, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 1}}},
			}},
			"b": {Name: "b", Backend: ir.BackendVisual, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Index{Bundle: "a", FieldIndex: intp(0)}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "a"}, {Bundle: "b"}},
	}

	res, err := Build(prog)
	require.NoError(t, err)
	require.Empty(t, res.CrossBuffers)
}

func TestBuildDeduplicatesRepeatedCrossReference(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"src": {Name: "src", Backend: ir.BackendAudio, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Num{Value: 0}}},
			}},
			"glow": {Name: "glow", Backend: ir.BackendVisual, Strands: []ir.Strand{
				{Index: 0, Expr: ir.Expression{Kind: ir.Index{Bundle: "src", FieldIndex: intp(0)}}},
				{Index: 1, Expr: ir.Expression{Kind: ir.Index{Bundle: "src", FieldIndex: intp(0)}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "src"}, {Bundle: "glow"}},
	}

	res, err := Build(prog)
	require.NoError(t, err)
	require.Len(t, res.CrossBuffers, 1)
}

func TestBuildIgnoresMeReference(t *testing.T) {
	prog := &ir.Program{
		Bundles: map[string]*ir.Bundle{
			"glow": {Name: "glow", Backend: ir.BackendVisual, Strands: []ir.Strand{
				{Expr: ir.Expression{Kind: ir.Index{Bundle: "me", FieldName: "x"}}},
			}},
		},
		Order: []ir.ExecEntry{{Bundle: "glow"}},
	}

	res, err := Build(prog)
	require.NoError(t, err)
	require.Empty(t, res.CrossBuffers)
}
