// Package annotate computes per-strand signal annotations over a
// lowered Program (§4.5): the domain of `me.*` coordinates a strand
// depends on, whether it is stateful, which hardware primitives it
// consumes, and which backend it belongs to.
package annotate

import "github.com/weft-lang/weft/internal/ir"

// Annotate walks every bundle's strands in execution order, so a
// strand that reads another bundle's strand inherits that strand's
// already-computed domain (§4.5 "the set of me.* coordinates this
// strand's value ultimately depends on"), and writes the results back
// onto the Program's bundles and strands in place.
func Annotate(prog *ir.Program) error {
	for _, entry := range prog.Order {
		b, ok := prog.Bundles[entry.Bundle]
		if !ok {
			continue
		}
		bundleDomain := map[ir.Coordinate]bool{}
		bundleHardware := map[ir.Hardware]bool{}
		stateful := false

		for i := range b.Strands {
			s := &b.Strands[i]
			s.Domain = domainOf(&s.Expr, prog)
			s.Hardware = ir.CollectHardware(&s.Expr)
			s.Stateful = ir.ContainsCacheBuiltin(&s.Expr) || ir.ContainsCacheRead(&s.Expr)

			for d := range s.Domain {
				bundleDomain[d] = true
			}
			for h := range s.Hardware {
				bundleHardware[h] = true
			}
			if s.Stateful {
				stateful = true
			}
		}

		b.Domain = bundleDomain
		b.Hardware = bundleHardware
		b.Backend = assignBackend(b.Name, bundleDomain, bundleHardware)
		b.Purity = assignPurity(b, stateful)
	}

	propagateAmbiguousBackends(prog)
	return nil
}

// propagateAmbiguousBackends resolves bundles assignBackend left at
// BackendUnknown (shared constants with empty domain and no hardware,
// §5's "shared constants (strands with empty domain)" cross-domain
// surface) by following their downstream consumers' already-assigned
// backend (§4.5 "ambiguous bundles follow their downstream sinks").
// Consumers are visited before their producers by walking prog.Order
// in reverse, so a chain of ambiguous constants resolves transitively
// in one pass.
func propagateAmbiguousBackends(prog *ir.Program) {
	consumerBackend := map[string]ir.Backend{}
	for i := len(prog.Order) - 1; i >= 0; i-- {
		b, ok := prog.Bundles[prog.Order[i].Bundle]
		if !ok {
			continue
		}
		if b.Backend == ir.BackendUnknown {
			if resolved, ok := consumerBackend[b.Name]; ok {
				b.Backend = resolved
			}
		}
		if b.Backend == ir.BackendUnknown {
			continue
		}
		refs := map[string]bool{}
		for i := range b.Strands {
			referencedBundles(&b.Strands[i].Expr, refs)
		}
		for ref := range refs {
			if ref == b.Name {
				continue
			}
			if _, already := consumerBackend[ref]; !already {
				consumerBackend[ref] = b.Backend
			}
		}
	}
}

// referencedBundles collects the names of every bundle e's value
// reads through any Index (current-tick or remapped), mirroring
// domainOf's traversal so backend propagation follows the same
// reference graph domain inference does.
func referencedBundles(e *ir.Expression, out map[string]bool) {
	if e == nil {
		return
	}
	if idx, ok := e.Kind.(ir.Index); ok && idx.Bundle != "me" {
		out[idx.Bundle] = true
	}
	for _, c := range ir.Children(e) {
		referencedBundles(c, out)
	}
}

// domainOf computes the set of `me.*` coordinates e's value ultimately
// depends on, following Index references into already-annotated
// upstream bundles (safe because Annotate visits bundles in
// topological order).
func domainOf(e *ir.Expression, prog *ir.Program) map[ir.Coordinate]bool {
	out := map[ir.Coordinate]bool{}
	var visit func(e *ir.Expression)
	visit = func(e *ir.Expression) {
		if e == nil {
			return
		}
		switch k := e.Kind.(type) {
		case ir.Index:
			if k.Bundle == "me" {
				out[ir.Coordinate(k.FieldName)] = true
				return
			}
			if up, ok := prog.Bundles[k.Bundle]; ok {
				if k.IndexExpr != nil {
					for _, us := range up.Strands {
						for d := range us.Domain {
							out[d] = true
						}
					}
					visit(k.IndexExpr)
					return
				}
				if strand := findStrand(up, k); strand != nil {
					for d := range strand.Domain {
						out[d] = true
					}
				}
			}
		default:
			for _, c := range ir.Children(e) {
				visit(c)
			}
		}
	}
	visit(e)
	return out
}

func findStrand(b *ir.Bundle, idx ir.Index) *ir.Strand {
	if idx.FieldIndex != nil {
		if *idx.FieldIndex >= 0 && *idx.FieldIndex < len(b.Strands) {
			return &b.Strands[*idx.FieldIndex]
		}
		return nil
	}
	for i := range b.Strands {
		if b.Strands[i].Name == idx.FieldName {
			return &b.Strands[i]
		}
	}
	return nil
}

// assignBackend applies §4.5's rule: visual if the domain touches x/y
// or hardware needs camera/gpu; audio if domain is sample-space or
// hardware needs microphone/speaker; sink bundles are pinned by name
// since `display`/`play` fix their own backend regardless of
// what an (empty) constant expression's domain would otherwise imply.
func assignBackend(name string, domain map[ir.Coordinate]bool, hw map[ir.Hardware]bool) ir.Backend {
	switch name {
	case "display":
		return ir.BackendVisual
	case "play":
		return ir.BackendAudio
	}
	if domain[ir.CoordX] || domain[ir.CoordY] || hw[ir.HardwareCamera] || hw[ir.HardwareGPU] {
		return ir.BackendVisual
	}
	if domain[ir.CoordI] || hw[ir.HardwareMicrophone] || hw[ir.HardwareSpeaker] {
		return ir.BackendAudio
	}
	return ir.BackendUnknown
}

// assignPurity reports the host-facing purity classification (§6):
// stateful strands (cache) outrank hardware reads, which outrank pure
// arithmetic.
func assignPurity(b *ir.Bundle, stateful bool) ir.Purity {
	if stateful {
		return ir.PurityStateful
	}
	if len(b.Hardware) > 0 {
		return ir.PurityExternal
	}
	return ir.PurityPure
}
