// Package visual generates GPU kernel source for visual swatches
// (§4.7): one strand per thread, expressions lowered to straight-line
// code, resource accesses as texture samples, runtime select() as a
// chained conditional. The emission style — a strings.Builder-backed
// writer tracking which subexpressions must be pre-materialized to a
// named temporary — mirrors a typical GLSL backend writer.
package visual

import (
	"fmt"
	"strings"

	"github.com/weft-lang/weft/internal/ir"
	"github.com/weft-lang/weft/internal/swatch"
)

// DefaultMaterializeThreshold is the node-count above which an
// expression is pre-materialized into a temporary instead of inlined
// at every use (§4.7).
const DefaultMaterializeThreshold = 30

// Options configures kernel emission.
type Options struct {
	MaterializeThreshold int
}

// Unit is one compiled visual swatch: its kernel source plus the named
// buffers it reads and writes (§6 "a GPU kernel source string and its
// input/output buffer names").
type Unit struct {
	Backend ir.Backend
	Source  string
	Inputs  []string
	Outputs []string

	// CachePushes names the history-buffer variables this kernel
	// writes at the end of main(), one per owned ir.CacheDescriptor
	// (§4.6): the host copies each into its ring buffer after the tick
	// completes, so a later tick's CacheRead sees this tick's value.
	CachePushes []string
}

// Generate emits one Unit per visual swatch in sw.
func Generate(prog *ir.Program, sw *swatch.Result, opts Options) ([]*Unit, error) {
	if opts.MaterializeThreshold <= 0 {
		opts.MaterializeThreshold = DefaultMaterializeThreshold
	}

	var units []*Unit
	for _, s := range sw.Swatches {
		if s.Backend != ir.BackendVisual {
			continue
		}
		u, err := generateSwatch(prog, s, opts)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func generateSwatch(prog *ir.Program, s swatch.Swatch, opts Options) (*Unit, error) {
	w := &writer{prog: prog, opts: opts, temps: map[*ir.Expression]string{}}

	owned := map[string]bool{}
	for _, name := range s.Bundles {
		owned[name] = true
	}

	var body strings.Builder
	var outputs []string
	for _, name := range s.Bundles {
		b, ok := prog.Bundles[name]
		if !ok {
			continue
		}
		for i := range b.Strands {
			st := &b.Strands[i]
			varName := strandVar(b.Name, i)
			outputs = append(outputs, varName)
			expr, err := w.materialize(&body, &st.Expr)
			if err != nil {
				return nil, fmt.Errorf("visual codegen: bundle %q strand %d: %w", b.Name, i, err)
			}
			fmt.Fprintf(&body, "  float %s = %s;\n", varName, expr)
		}
	}

	var pushes []string
	for _, cd := range prog.CacheDescriptors {
		if !owned[cd.Owner] {
			continue
		}
		expr, err := w.materialize(&body, cd.Value)
		if err != nil {
			return nil, fmt.Errorf("visual codegen: cache %q push value: %w", cd.ID, err)
		}
		pushVar := fmt.Sprintf("cache_%s_push", sanitize(cd.ID))
		fmt.Fprintf(&body, "  float %s = %s;\n", pushVar, expr)
		pushes = append(pushes, pushVar)
	}

	var src strings.Builder
	fmt.Fprintf(&src, "// visual swatch: %s\n", strings.Join(s.Bundles, ", "))
	src.WriteString("void main() {\n")
	src.WriteString(body.String())
	src.WriteString("}\n")

	return &Unit{
		Backend:     ir.BackendVisual,
		Source:      src.String(),
		Inputs:      crossInputs(prog, s),
		Outputs:     outputs,
		CachePushes: pushes,
	}, nil
}

func crossInputs(prog *ir.Program, s swatch.Swatch) []string {
	seen := map[string]bool{}
	var names []string
	set := map[string]bool{}
	for _, n := range s.Bundles {
		set[n] = true
	}
	for _, n := range s.Bundles {
		b, ok := prog.Bundles[n]
		if !ok {
			continue
		}
		for _, st := range b.Strands {
			for _, ref := range ir.CurrentTickFreeVars(&st.Expr) {
				if ref.Bundle == "me" || set[ref.Bundle] || seen[ref.Bundle] {
					continue
				}
				seen[ref.Bundle] = true
				names = append(names, ref.Bundle)
			}
		}
	}
	return names
}

func strandVar(bundle string, i int) string {
	return fmt.Sprintf("%s_%d", sanitize(bundle), i)
}

func sanitize(name string) string {
	return strings.NewReplacer("$", "tag_", ".", "_").Replace(name)
}

// writer tracks which subexpressions have already been materialized
// into a named temporary. Only an expression exceeding the node-count
// threshold or containing a spindle call is materialized; once it is,
// every later use of the same node reads the temporary. Smaller
// expressions are emitted inline at each use.
type writer struct {
	prog    *ir.Program
	opts    Options
	temps   map[*ir.Expression]string
	counter int
}

func (w *writer) materialize(body *strings.Builder, e *ir.Expression) (string, error) {
	if name, ok := w.temps[e]; ok {
		return name, nil
	}
	if nodeCount(e) > w.opts.MaterializeThreshold || containsCall(e) {
		expr, err := w.emit(body, e)
		if err != nil {
			return "", err
		}
		w.counter++
		name := fmt.Sprintf("_tmp%d", w.counter)
		fmt.Fprintf(body, "  float %s = %s;\n", name, expr)
		w.temps[e] = name
		return name, nil
	}
	return w.emit(body, e)
}

func (w *writer) emit(body *strings.Builder, e *ir.Expression) (string, error) {
	switch k := e.Kind.(type) {
	case ir.Num:
		return fmt.Sprintf("%g", k.Value), nil
	case ir.Param:
		return sanitize(k.Name), nil
	case ir.Index:
		if k.Bundle == "me" {
			return "me." + k.FieldName, nil
		}
		if k.IndexExpr != nil {
			idx, err := w.materialize(body, k.IndexExpr)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s[int(%s)]", sanitize(k.Bundle), idx), nil
		}
		if k.FieldIndex != nil {
			return strandVar(k.Bundle, *k.FieldIndex), nil
		}
		return fmt.Sprintf("%s_%s", sanitize(k.Bundle), k.FieldName), nil
	case ir.BinaryOp:
		l, err := w.materialize(body, k.Left)
		if err != nil {
			return "", err
		}
		r, err := w.materialize(body, k.Right)
		if err != nil {
			return "", err
		}
		if k.Op == "^" {
			return fmt.Sprintf("pow(%s, %s)", l, r), nil
		}
		return fmt.Sprintf("(%s %s %s)", l, glslOp(k.Op), r), nil
	case ir.UnaryOp:
		o, err := w.materialize(body, k.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s%s)", glslOp(k.Op), o), nil
	case ir.Builtin:
		return w.emitBuiltin(body, k)
	case ir.Call:
		return "", fmt.Errorf("visual backend encountered a bare spindle call outside Extract")
	case ir.Extract:
		inlined, ok := ir.InlineExtract(e, w.prog.Spindles)
		if !ok {
			return "", fmt.Errorf("unresolved spindle extraction")
		}
		return w.materialize(body, inlined)
	case ir.Remap:
		return w.materialize(body, k.Base)
	case ir.CacheRead:
		return fmt.Sprintf("cache_%s[%d]", sanitize(k.CacheID), k.TapIndex), nil
	default:
		return "", fmt.Errorf("unsupported expression kind %T", k)
	}
}

func (w *writer) emitBuiltin(body *strings.Builder, b ir.Builtin) (string, error) {
	args := make([]string, len(b.Args))
	for i, a := range b.Args {
		v, err := w.materialize(body, a)
		if err != nil {
			return "", err
		}
		args[i] = v
	}
	switch b.Name {
	case "select":
		if len(args) < 2 {
			return "", fmt.Errorf("select() requires at least 2 arguments")
		}
		return chainedSelect(args), nil
	case "texture", "load":
		return fmt.Sprintf("textureSample(weft_tex[int(%s)], vec2(%s, %s))", args[0], args[1], args[2]), nil
	case "camera":
		return fmt.Sprintf("cameraSample(vec2(%s, %s))", args[0], args[1]), nil
	case "mouse":
		return "weft_mouse", nil
	case "text":
		return fmt.Sprintf("textSample(int(%s), %s, %s)", args[0], args[1], args[2]), nil
	case "key":
		return fmt.Sprintf("keyState(int(%s))", args[0]), nil
	default:
		return fmt.Sprintf("%s(%s)", glslFunc(b.Name), strings.Join(args, ", ")), nil
	}
}

// chainedSelect lowers select(idx, v0, v1, …) to a chained conditional
// (§4.7 "runtime select(i, …) lowers to a chained conditional").
func chainedSelect(args []string) string {
	idx := args[0]
	values := args[1:]
	expr := values[len(values)-1]
	for i := len(values) - 2; i >= 0; i-- {
		expr = fmt.Sprintf("(int(%s) == %d ? %s : %s)", idx, i, values[i], expr)
	}
	return expr
}

func glslOp(op string) string {
	switch op {
	case "^":
		return "^" // emit writes a binary "^" as pow(), so it never reaches here
	default:
		return op
	}
}

func glslFunc(name string) string {
	switch name {
	case "log2":
		return "log2"
	case "atan2":
		return "atan"
	default:
		return name
	}
}

func nodeCount(e *ir.Expression) int {
	if e == nil {
		return 0
	}
	n := 1
	for _, c := range ir.Children(e) {
		n += nodeCount(c)
	}
	return n
}

func containsCall(e *ir.Expression) bool {
	if e == nil {
		return false
	}
	if _, ok := e.Kind.(ir.Call); ok {
		return true
	}
	for _, c := range ir.Children(e) {
		if containsCall(c) {
			return true
		}
	}
	return false
}
