package orchestra

import (
	"fmt"
	"slices"
	"strings"
)

// CycleReport describes one strongly connected group of stores.
type CycleReport struct {
	Path    []string `json:"path"`    // e.g. ["posts", "users", "posts"]
	Stores  []string `json:"stores"`  // sorted members
	Message string   `json:"message"` // human-readable description
}

// dependencyGraph maps a store identifier to the stores it depends on.
// Externals are leaves and never appear as nodes.
type dependencyGraph map[string][]string

// Analyze reports every cycle among store-to-store dependency edges using
// Tarjan's algorithm. Unlike Validate it does not stop at the first cycle.
// An acyclic graph returns an empty slice.
func (o *Orchestra) Analyze() []CycleReport {
	graph := make(dependencyGraph, len(o.stores))
	for _, s := range o.stores {
		id := s.Identifier()
		graph[id] = []string{}
		for _, dep := range s.DependencyIdentifiers() {
			if _, ok := o.byID[dep]; ok {
				graph[id] = append(graph[id], dep)
			}
		}
	}

	reports := []CycleReport{}
	for _, scc := range tarjanSCC(graph, o.declarationOrder()) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			reports = append(reports, cycleReport(scc, graph))
		}
	}
	return reports
}

func (o *Orchestra) declarationOrder() []string {
	ids := make([]string, len(o.stores))
	for i, s := range o.stores {
		ids[i] = s.Identifier()
	}
	return ids
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components, visiting roots in the
// given order so results are deterministic.
func tarjanSCC(graph dependencyGraph, roots []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
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

		// v is the root of an SCC: pop it
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range roots {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleReport(scc []string, graph dependencyGraph) CycleReport {
	members := slices.Clone(scc)
	slices.Sort(members)

	if len(scc) == 1 {
		id := scc[0]
		return CycleReport{
			Path:    []string{id, id},
			Stores:  members,
			Message: fmt.Sprintf("store depends on itself: %s → %s", id, id),
		}
	}

	path := cyclePath(members[0], members, graph)
	return CycleReport{
		Path:    path,
		Stores:  members,
		Message: fmt.Sprintf("circular dependency: %s", strings.Join(path, " → ")),
	}
}

// cyclePath follows edges inside the SCC from start until it returns to
// start.
func cyclePath(start string, members []string, graph dependencyGraph) []string {
	path := []string{start}
	visited := map[string]bool{}
	current := start
	for {
		visited[current] = true
		next := ""
		for _, w := range graph[current] {
			if slices.Contains(members, w) && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		current = next
	}
}
