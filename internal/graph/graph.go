// Package graph holds the directed dependency graph a shader group
// builds from its connections, with the cycle detection and topological
// ordering that group resolution relies on.
package graph

import (
	"fmt"
	"sort"
)

// Graph is a directed graph keyed by node ID. It is built and consumed on
// a single goroutine during resolution, so it carries no locking.
type Graph struct {
	nodes map[string]*node
}

type node struct {
	id         string
	deps       map[string]*node
	dependents map[string]*node
}

// New creates an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node with the given ID. Adding an existing ID is a
// no-op.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge records that toID depends on fromID. An error is returned if
// either node does not exist or the edge is self-referential.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}
	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode
	return nil
}

// DetectCycles checks the graph for cycles using depth-first search with
// visiting/visited sets. It returns an error naming a node involved in
// the first cycle found.
func (g *Graph) DetectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		visiting[n.id] = true
		for _, dep := range n.deps {
			if visiting[dep.id] {
				return fmt.Errorf("cycle detected involving '%s'", dep.id)
			}
			if !visited[dep.id] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, n.id)
		visited[n.id] = true
		return nil
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopoSort returns the node IDs in dependency order: every node appears
// after everything it depends on. Ties break alphabetically so the order
// is deterministic. A cycle is an error.
func (g *Graph) TopoSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		inDegree[id] = len(n.deps)
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for depID := range g.nodes[id].dependents {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				unlocked = append(unlocked, depID)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}

	if len(order) != len(g.nodes) {
		for _, id := range g.sortedIDs() {
			if inDegree[id] > 0 {
				return nil, fmt.Errorf("cycle detected involving '%s'", id)
			}
		}
	}
	return order, nil
}

// Len reports the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
