package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weft-lang/weft/internal/ir"
)

func newCheckCmd(v *viper.Viper, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "compile a WEFT source file and dump its IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := compileFile(args[0], v, log)
			if err != nil {
				printCompileError(err)
				return err
			}
			dumpIR(result.Program)
			return nil
		},
	}
}

// dumpIR prints a textual rendering of bundles, spindles, execution
// order, and cache descriptors — the `weft check` debugging surface
// (SPEC_FULL §C).
func dumpIR(p *ir.Program) {
	fmt.Println("order:")
	for _, e := range p.Order {
		fmt.Printf("  %s\n", e.Bundle)
	}
	fmt.Println("bundles:")
	for _, e := range p.Order {
		b := p.Bundles[e.Bundle]
		fmt.Printf("  %s [%s, %s, width=%d, hardware=%v]\n", b.Name, b.Backend, b.Purity, b.Width(), hardwareNames(b.Hardware))
		for i, s := range b.Strands {
			name := s.Name
			if name == "" {
				name = fmt.Sprintf("%d", i)
			}
			fmt.Printf("    %s: domain=%v stateful=%v\n", name, coordNames(s.Domain), s.Stateful)
		}
	}
	if len(p.Spindles) > 0 {
		fmt.Println("spindles:")
		for name, s := range p.Spindles {
			fmt.Printf("  %s(%v) -> width %d\n", name, s.Params, s.Width())
		}
	}
	if len(p.CacheDescriptors) > 0 {
		fmt.Println("cache descriptors:")
		for _, d := range p.CacheDescriptors {
			fmt.Printf("  %s owner=%s strand=%d size=%d tap=%d domain=%s selfRef=%v\n",
				d.ID, d.Owner, d.StrandIndex, d.HistorySize, d.TapIndex, d.Domain, d.HasSelfRef)
		}
	}
	if len(p.Resources) > 0 {
		fmt.Println("resources:", p.Resources)
	}
	if len(p.Texts) > 0 {
		fmt.Println("texts:", p.Texts)
	}
}

func hardwareNames(hw map[ir.Hardware]bool) []string {
	out := make([]string, 0, len(hw))
	for h := range hw {
		out = append(out, string(h))
	}
	return out
}

func coordNames(d map[ir.Coordinate]bool) []string {
	out := make([]string, 0, len(d))
	for c := range d {
		out = append(out, string(c))
	}
	return out
}
