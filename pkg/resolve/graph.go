package resolve

import (
	"sort"
	"strings"
)

// graph is the ephemeral per-resolution dependency graph. Edges point
// from a prerequisite to its dependent reader: an edge a->b means "a must
// load before b" - so hard dependency "b depends on a" and soft hint
// "b load-after a" both add a->b.
//
// The graph is built fresh for every resolution and discarded afterwards.
type graph struct {
	ids      []string            // sorted node ids, the deterministic base order
	outgoing map[string][]string // prerequisite -> dependents
}

func newGraph() *graph {
	return &graph{outgoing: make(map[string][]string)}
}

// addNode registers an id. Adding twice is a no-op.
func (g *graph) addNode(id string) {
	if _, ok := g.outgoing[id]; ok {
		return
	}
	g.outgoing[id] = nil
	g.ids = append(g.ids, id)
}

// addEdge records "from must load before to". Both ends must already be
// nodes; edges to absent nodes are the caller's bug, not a diagnostic.
func (g *graph) addEdge(from, to string) {
	for _, existing := range g.outgoing[from] {
		if existing == to {
			return
		}
	}
	g.outgoing[from] = append(g.outgoing[from], to)
}

// sortAll fixes the deterministic traversal order: node list and every
// adjacency list lexicographic by id.
func (g *graph) sortAll() {
	sort.Strings(g.ids)
	for id := range g.outgoing {
		sort.Strings(g.outgoing[id])
	}
}

// DFS node colors.
const (
	white = iota // not yet visited
	gray         // on the current DFS path
	black        // fully processed
)

// findCycles detects circular dependencies with an explicit-stack DFS
// using white/gray/black coloring. A back-edge into a gray node emits one
// Cycle covering the path from that node to the closing edge.
//
// Overlapping cycles are not exhaustively enumerated: each back-edge
// yields at most one cycle, and cycles with an identical id set are
// deduplicated. The traversal visits every node exactly once, so it
// terminates on any input. The stack is explicit rather than recursive to
// stay robust on pathological dependency chains.
func (g *graph) findCycles() []Cycle {
	color := make(map[string]int, len(g.ids))
	var cycles []Cycle
	seen := make(map[string]bool) // normalized id-set keys of emitted cycles

	type frame struct {
		id   string
		next int // index of the next child to visit
	}

	for _, start := range g.ids {
		if color[start] != white {
			continue
		}

		stack := []frame{{id: start}}
		path := []string{start} // gray nodes in path order
		color[start] = gray

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			children := g.outgoing[f.id]

			if f.next < len(children) {
				child := children[f.next]
				f.next++

				switch color[child] {
				case white:
					color[child] = gray
					stack = append(stack, frame{id: child})
					path = append(path, child)
				case gray:
					// Back-edge: the cycle is the path suffix starting at child.
					idx := 0
					for i, id := range path {
						if id == child {
							idx = i
							break
						}
					}
					cycle := append([]string(nil), path[idx:]...)
					key := cycleKey(cycle)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, Cycle{
							IDs:  cycle,
							Path: strings.Join(append(cycle, child), " -> "),
						})
					}
				}
				continue
			}

			color[f.id] = black
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
		}
	}

	return cycles
}

// cycleKey builds an order-independent key so rotations of the same cycle
// dedupe to one record.
func cycleKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// topoOrder returns the activation order: DFS postorder over the
// lexicographic base order, visiting each node's prerequisites first, so
// every id follows all its prerequisites and independent ids stay in
// ascending id order. Callers must only invoke it on an acyclic graph;
// findCycles gates that upstream.
func (g *graph) topoOrder() []string {
	// Reverse adjacency: dependent -> its prerequisites, sorted for
	// deterministic traversal.
	prereqs := make(map[string][]string, len(g.ids))
	for from, tos := range g.outgoing {
		for _, to := range tos {
			prereqs[to] = append(prereqs[to], from)
		}
	}
	for id := range prereqs {
		sort.Strings(prereqs[id])
	}

	color := make(map[string]int, len(g.ids))
	order := make([]string, 0, len(g.ids))

	type frame struct {
		id   string
		next int
	}

	for _, start := range g.ids {
		if color[start] != white {
			continue
		}
		stack := []frame{{id: start}}
		color[start] = gray

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			parents := prereqs[f.id]

			if f.next < len(parents) {
				parent := parents[f.next]
				f.next++
				if color[parent] == white {
					color[parent] = gray
					stack = append(stack, frame{id: parent})
				}
				continue
			}

			color[f.id] = black
			order = append(order, f.id)
			stack = stack[:len(stack)-1]
		}
	}

	return order
}
