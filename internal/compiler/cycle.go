package compiler

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/phaseforge/internal/ir"
)

// CycleWarning describes advancement rules that route competitors back into
// a phase they already passed through.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - Repechage rounds feeding back into a main bracket
//   - Ladder formats where finishers re-enter qualification
type CycleWarning struct {
	Path    []int64 `json:"path"`    // Sort orders: [1, 2, 1]
	Message string  `json:"message"` // Human-readable description
	Level   string  `json:"level"`   // "warning"
}

// AnalyzeCycles builds the phase graph from a document's advancement rules
// and reports every strongly connected component that forms a cycle.
//
// The algorithm:
//  1. Build sortOrder -> target sortOrders from the rules
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// Nodes are visited in ascending sort order so the output is deterministic.
// A document without cycles returns an empty list.
func AnalyzeCycles(doc ir.StructureDocument) []CycleWarning {
	if len(doc.AdvancementRules) == 0 {
		return []CycleWarning{}
	}

	graph := buildPhaseGraph(doc.AdvancementRules)
	names := make(map[int64]string, len(doc.Phases))
	for _, p := range doc.Phases {
		if _, ok := names[p.SortOrder]; !ok {
			names[p.SortOrder] = p.Name
		}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph, names))
		}
	}
	return warnings
}

// phaseGraph maps sortOrder -> sorted, deduplicated target sortOrders.
type phaseGraph map[int64][]int64

func buildPhaseGraph(rules []ir.AdvancementRule) phaseGraph {
	graph := make(phaseGraph)
	for _, r := range rules {
		// Ensure both endpoints exist as nodes.
		if _, ok := graph[r.TargetPhaseOrder]; !ok {
			graph[r.TargetPhaseOrder] = nil
		}
		graph[r.SourcePhaseOrder] = append(graph[r.SourcePhaseOrder], r.TargetPhaseOrder)
	}
	for k, targets := range graph {
		slices.Sort(targets)
		graph[k] = slices.Compact(targets)
	}
	return graph
}

func (g phaseGraph) nodes() []int64 {
	out := make([]int64, 0, len(g))
	for k := range g {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node int64, graph phaseGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph phaseGraph) [][]int64 {
	var (
		index   = 0
		stack   []int64
		indices = make(map[int64]int)
		lowlink = make(map[int64]int)
		onStack = make(map[int64]bool)
		sccs    [][]int64
	)

	var strongConnect func(int64)
	strongConnect = func(v int64) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC.
		if lowlink[v] == indices[v] {
			var scc []int64
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range graph.nodes() {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	slices.SortFunc(sccs, func(a, b []int64) int {
		return cmp.Compare(a[0], b[0])
	})
	return sccs
}

func cycleSCCToWarning(scc []int64, graph phaseGraph, names map[int64]string) CycleWarning {
	label := func(order int64) string {
		if name := names[order]; name != "" {
			return fmt.Sprintf("%d %q", order, name)
		}
		return fmt.Sprintf("%d", order)
	}

	if len(scc) == 1 {
		n := scc[0]
		return CycleWarning{
			Path:    []int64{n, n},
			Message: fmt.Sprintf("phase %s advances into itself", label(n)),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = label(n)
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("advancement cycle: %s", strings.Join(parts, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks SCC members from the lowest sort order until
// it returns to the start.
func reconstructCyclePath(scc []int64, graph phaseGraph) []int64 {
	if len(scc) == 0 {
		return []int64{}
	}

	inSCC := make(map[int64]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}

	start := scc[0]
	current := start
	path := []int64{current}
	visited := make(map[int64]bool)

	for {
		visited[current] = true

		var next int64
		found := false
		for _, w := range graph[current] {
			if inSCC[w] && w != current && (!visited[w] || w == start) {
				next, found = w, true
				break
			}
		}
		if !found {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
