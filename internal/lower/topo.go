package lower

import (
	"fmt"
	"sort"

	"github.com/weft-lang/weft/internal/ir"
)

// topoSort orders bundles by their current-tick dependency graph
// (§4.4 Topological sort, §3 invariant 3): bundle A before bundle B
// whenever some strand of B reads a current-tick strand of A. Previous-
// tick reads (temporal Remap, CacheRead) are excluded by
// ir.CurrentTickFreeVars and never constrain the order — that's how a
// feedback loop is expressed without forming a cycle here (§4.6).
func topoSort(bundles map[string]*ir.Bundle) ([]ir.ExecEntry, error) {
	names := make([]string, 0, len(bundles))
	for name := range bundles {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic order among independents

	deps := make(map[string]map[string]bool, len(bundles))
	for name, b := range bundles {
		set := map[string]bool{}
		for _, strand := range b.Strands {
			for _, ref := range ir.CurrentTickFreeVars(&strand.Expr) {
				if ref.Bundle == "me" || ref.Bundle == name {
					continue
				}
				if _, ok := bundles[ref.Bundle]; ok {
					set[ref.Bundle] = true
				}
			}
		}
		deps[name] = set
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(names))
	var order []ir.ExecEntry
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return &circularDependencyError{path: append([]string(nil), path...), name: name}
		}
		state[name] = visiting
		path = append(path, name)

		depNames := make([]string, 0, len(deps[name]))
		for d := range deps[name] {
			depNames = append(depNames, d)
		}
		sort.Strings(depNames)
		for _, d := range depNames {
			if err := visit(d); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[name] = visited
		order = append(order, ir.ExecEntry{Bundle: name})
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// circularDependencyError reports a cycle in the current-tick
// dependency graph, with the path of bundle names that led back to
// name. Lower unwraps this (rather than a plain error) so it can
// attach a source span and produce a *diag.Error like every other
// lowering failure (§4.7, §7).
type circularDependencyError struct {
	path []string
	name string
}

func (e *circularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %v -> %s", e.path, e.name)
}
