// Package swatch groups a Program's bundles into per-backend
// compilation units ("swatches") and computes the buffers a unit needs
// to read from another unit, ahead of code generation (§2 Graph/Swatch
// builder, §4.7 "compilation unit").
package swatch

import (
	"fmt"

	"github.com/weft-lang/weft/internal/ir"
)

// Swatch is one compilation unit: every bundle in it targets the same
// backend. A visual swatch is emitted as a single kernel; the audio
// generator emits one interpreted unit per audio bundle.
type Swatch struct {
	Backend ir.Backend
	Bundles []string // in execution order
}

// CrossBuffer names a bundle produced in one swatch and consumed by a
// strand in another — the `scope` diagnostic tap and shared constants
// are the only sanctioned cross-domain surface (§5).
type CrossBuffer struct {
	Bundle string
	From   ir.Backend
	To     ir.Backend
}

// Result is the swatch builder's output: the program's bundles grouped
// into backend-homogeneous units, plus the buffers bridging them.
type Result struct {
	Swatches     []Swatch
	CrossBuffers []CrossBuffer
}

// Build groups prog's bundles by backend, preserving prog.Order within
// each group, and records any dependency that crosses a backend
// boundary as a CrossBuffer.
func Build(prog *ir.Program) (*Result, error) {
	res := &Result{}
	index := map[ir.Backend]int{}

	for _, entry := range prog.Order {
		b, ok := prog.Bundles[entry.Bundle]
		if !ok {
			continue
		}
		i, seen := index[b.Backend]
		if !seen {
			i = len(res.Swatches)
			res.Swatches = append(res.Swatches, Swatch{Backend: b.Backend})
			index[b.Backend] = i
		}
		res.Swatches[i].Bundles = append(res.Swatches[i].Bundles, b.Name)
	}

	seenCross := map[string]bool{}
	for _, entry := range prog.Order {
		b, ok := prog.Bundles[entry.Bundle]
		if !ok {
			continue
		}
		for _, s := range b.Strands {
			for _, ref := range ir.CurrentTickFreeVars(&s.Expr) {
				if ref.Bundle == "me" || ref.Bundle == b.Name {
					continue
				}
				up, ok := prog.Bundles[ref.Bundle]
				if !ok || up.Backend == b.Backend {
					continue
				}
				key := fmt.Sprintf("%s->%d", ref.Bundle, b.Backend)
				if seenCross[key] {
					continue
				}
				seenCross[key] = true
				res.CrossBuffers = append(res.CrossBuffers, CrossBuffer{
					Bundle: ref.Bundle,
					From:   up.Backend,
					To:     b.Backend,
				})
			}
		}
	}

	return res, nil
}
