package ir

// InlineExtract resolves an Extract(Call(spindle, args), index) node to
// the spindle's index-th return expression with Param references
// substituted by the call's arguments — spindles are never inlined
// during lowering (Call keeps referencing a shared Spindle definition,
// §3), so both backends inline on demand at codegen time instead: the
// visual kernel emitter, and the audio generator, which inlines every
// Extract before its trees are interpreted.
func InlineExtract(e *Expression, spindles map[string]*Spindle) (*Expression, bool) {
	ext, ok := e.Kind.(Extract)
	if !ok {
		return nil, false
	}
	call, ok := ext.Call.Kind.(Call)
	if !ok {
		return nil, false
	}
	def, ok := spindles[call.Spindle]
	if !ok || ext.Index < 0 || ext.Index >= len(def.Returns) {
		return nil, false
	}
	subs := make(map[string]*Expression, len(def.Params))
	for i, p := range def.Params {
		if i < len(call.Args) {
			subs[p] = call.Args[i]
		}
	}
	ret := def.Returns[ext.Index]
	return substituteParams(&ret, subs), true
}

func substituteParams(e *Expression, subs map[string]*Expression) *Expression {
	if e == nil {
		return nil
	}
	if p, ok := e.Kind.(Param); ok {
		if v, ok := subs[p.Name]; ok {
			return v
		}
		return e
	}
	return MapChildren(e, func(c *Expression) *Expression { return substituteParams(c, subs) })
}
