package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weft-lang/weft/internal/ast"
	"github.com/weft-lang/weft/internal/desugar"
	"github.com/weft-lang/weft/internal/diag"
	"github.com/weft-lang/weft/internal/ir"
	"github.com/weft-lang/weft/internal/lexer"
)

func lowerSource(t *testing.T, source string) (*ir.Program, error) {
	t.Helper()
	toks, err := lexer.New(source).Tokenize()
	require.NoError(t, err)
	prog, err := ast.NewParser(toks, "test.weft", source).Parse()
	require.NoError(t, err)
	prog = desugar.Desugar(prog)
	return Lower(prog, Options{})
}

func TestLowerInfersImplicitWidth(t *testing.T) {
	p, err := lowerSource(t, `glow = [me.x, me.y, 1]`)
	require.NoError(t, err)
	require.Equal(t, 3, p.Bundles["glow"].Width())
}

func TestLowerRejectsWidthMismatch(t *testing.T) {
	_, err := lowerSource(t, `glow[r, g] = [me.x, me.y, me.x]`)
	require.Error(t, err)
}

func TestLowerOrdersByDependency(t *testing.T) {
	p, err := lowerSource(t, `
b = a.0 + 1
a = me.x
`)
	require.NoError(t, err)
	require.Len(t, p.Order, 2)
	require.Equal(t, "a", p.Order[0].Bundle)
	require.Equal(t, "b", p.Order[1].Bundle)
}

func TestLowerDetectsCircularDependency(t *testing.T) {
	_, err := lowerSource(t, `
a = b.0
b = a.0
`)
	require.Error(t, err)
}

func TestLowerCircularDependencyCarriesSourceLocation(t *testing.T) {
	// A circular-dependency error must reach the host with a
	// (line,column) location like every other lowering failure,
	// not a bare fmt error diag.Format can't extract a position from.
	_, err := lowerSource(t, `
a = b.0
b = a.0
`)
	require.Error(t, err)
	list, ok := err.(diag.List)
	require.True(t, ok, "expected a diag.List, got %T", err)
	require.NotEmpty(t, list)
	_, line, col, msg := diag.Format(list[0])
	require.NotZero(t, line)
	require.NotZero(t, col)
	require.Contains(t, msg, "circular dependency")
}

func TestLowerTemporalRemapDoesNotCreateCycle(t *testing.T) {
	// b depends on a in the current tick, while a's only reference back
	// to b goes through a temporal (me.t) remap — a previous-tick read
	// that must not count as a's current-tick dependency on b, or this
	// would be rejected as a cycle.
	p, err := lowerSource(t, `
a = (b.0[me.t ~ 1]) + 1
b = a.0
`)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, []string{p.Order[0].Bundle, p.Order[1].Bundle})
}

func TestLowerSpindleCallProducesExtractOverSharedCall(t *testing.T) {
	p, err := lowerSource(t, `
spindle scale(v, k) {
	return.0 = v * k
}
x = scale(me.x, 2)
`)
	require.NoError(t, err)
	require.Contains(t, p.Spindles, "scale")
	ext, ok := p.Bundles["x"].Strands[0].Expr.Kind.(ir.Extract)
	require.True(t, ok)
	call, ok := ext.Call.Kind.(ir.Call)
	require.True(t, ok)
	require.Equal(t, "scale", call.Spindle)
}

func TestLowerSpindleMultiReturnSharesOneCallNode(t *testing.T) {
	p, err := lowerSource(t, `
spindle split(v) {
	return = [v + 1, v - 1]
}
x = split(me.x)
`)
	require.NoError(t, err)
	bundle := p.Bundles["x"]
	require.Equal(t, 2, bundle.Width())
	ext0 := bundle.Strands[0].Expr.Kind.(ir.Extract)
	ext1 := bundle.Strands[1].Expr.Kind.(ir.Extract)
	require.Same(t, ext0.Call, ext1.Call, "both extracts of one multi-return call must share the Call node")
}

func TestLowerChainInlinePattern(t *testing.T) {
	p, err := lowerSource(t, `
color = [1, 2, 3]
x = color | (.0 * 2, .1, .2)
`)
	require.NoError(t, err)
	require.Equal(t, 3, p.Bundles["x"].Width())
}

func TestLowerChainFullBodyPattern(t *testing.T) {
	p, err := lowerSource(t, `
color = [1, 2, 3]
x = color | {
	brightened = .0 * 2
	return = [brightened, .1]
}
`)
	require.NoError(t, err)
	require.Equal(t, 2, p.Bundles["x"].Width())
}

func TestLowerChainFullBodyPatternLocalForwardReference(t *testing.T) {
	// "a" references "b" before "b" is declared in the same pattern
	// body — full-body patterns must support this (§4.4 two-pass local
	// registration).
	p, err := lowerSource(t, `
color = [1, 2, 3]
x = color | {
	a = b + 1
	b = .0 * 2
	return = [a, b]
}
`)
	require.NoError(t, err)
	require.Equal(t, 2, p.Bundles["x"].Width())
}

func TestLowerChainFullBodyPatternLocalCircularReferenceError(t *testing.T) {
	_, err := lowerSource(t, `
color = [1, 2, 3]
x = color | {
	a = b + 1
	b = a + 1
	return = [a, b]
}
`)
	require.Error(t, err)
}

func TestLowerRangeExpansion(t *testing.T) {
	p, err := lowerSource(t, `
color = [1, 2, 3]
x = color | { return = [0..3] }
`)
	require.NoError(t, err)
	require.Equal(t, 3, p.Bundles["x"].Width())
}

func TestLowerBuiltinArityError(t *testing.T) {
	_, err := lowerSource(t, `x = sin(1, 2)`)
	require.Error(t, err)
}

func TestLowerUndefinedNameError(t *testing.T) {
	_, err := lowerSource(t, `x = nonexistent + 1`)
	require.Error(t, err)
}

func TestLowerResourceBuiltinInternsStringArg(t *testing.T) {
	p, err := lowerSource(t, `x = load("foo.png", me.u, me.v)`)
	require.NoError(t, err)
	require.Equal(t, []string{"foo.png"}, p.Resources)
}

func TestLowerCacheFeedbackDoesNotCycle(t *testing.T) {
	// b depends on a in the current tick; a's cache() value argument
	// referencing b must not count as a's current-tick dependency on b,
	// or this would be rejected as a circular dependency.
	p, err := lowerSource(t, `
a = cache(b.0, 4, 0, 1)
b = a.0 + 1
`)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, []string{p.Order[0].Bundle, p.Order[1].Bundle})
	builtin, ok := p.Bundles["a"].Strands[0].Expr.Kind.(ir.Builtin)
	require.True(t, ok)
	require.Equal(t, "cache", builtin.Name)
}
