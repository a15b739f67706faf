// SPDX-License-Identifier: MPL-2.0

// Package dag orders feature-packs and features so that every node follows the
// nodes it depends on. Among nodes that are ready at the same time, the one added
// first wins, so an acyclic graph without edges keeps its insertion order.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle lists the nodes left unordered, in insertion order.
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// An edge from A to B means A must be ordered before B.
	Graph struct {
		adjacency map[string][]string
		nodes     []string
		index     map[string]int
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		index:     make(map[string]int),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// Has reports whether name was added.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// AddEdge adds a directed edge from -> to, meaning "from" is ordered before "to".
// Both nodes are implicitly added if they don't exist. Repeated edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// TopologicalSort returns the stable order using Kahn's algorithm, always
// taking the ready node with the lowest insertion index.
// Returns CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make([]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[g.index[neighbor]]++
		}
	}

	// ready holds insertion indexes in ascending order.
	var ready []int
	for i := range g.nodes {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		node := g.nodes[i]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			j := g.index[neighbor]
			inDegree[j]--
			if inDegree[j] == 0 {
				pos, _ := slices.BinarySearch(ready, j)
				ready = slices.Insert(ready, pos, j)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for i, node := range g.nodes {
			if inDegree[i] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
