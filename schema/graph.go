// Package schema provides dependency graph analysis for declared relations
package schema

import (
	"fmt"
	"strings"
)

// Graph represents the dependency graph between record types. Edges are
// added by the relation layer from each declared reference to its target
// type.
type Graph struct {
	nodes map[string]bool
	edges map[string][]string // type -> types it references
}

// NewGraph creates a new empty dependency graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]bool),
		edges: make(map[string][]string),
	}
}

// AddNode registers a record type in the graph
func (g *Graph) AddNode(name string) {
	g.nodes[name] = true
}

// AddEdge records that one record type references another
func (g *Graph) AddEdge(from, to string) {
	g.nodes[from] = true
	g.nodes[to] = true
	g.edges[from] = append(g.edges[from], to)
}

// DetectCycles detects circular references in the graph
func (g *Graph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	var dfs func(node string, path []string) bool
	dfs = func(node string, path []string) bool {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				if dfs(neighbor, path) {
					return true
				}
			} else if recursionStack[neighbor] {
				// Found cycle
				cycleStart := -1
				for i, n := range path {
					if n == neighbor {
						cycleStart = i
						break
					}
				}
				if cycleStart >= 0 {
					cycle := make([]string, len(path)-cycleStart)
					copy(cycle, path[cycleStart:])
					cycles = append(cycles, cycle)
				}
				return true
			}
		}

		recursionStack[node] = false
		return false
	}

	for node := range g.nodes {
		if !visited[node] {
			dfs(node, []string{})
		}
	}

	return cycles
}

// TopologicalSort returns record types in dependency order (referenced
// types first)
func (g *Graph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int)
	for node := range g.nodes {
		outDegree[node] = len(g.edges[node])
	}

	reverseEdges := make(map[string][]string)
	for source, targets := range g.edges {
		for _, target := range targets {
			reverseEdges[target] = append(reverseEdges[target], source)
		}
	}

	queue := []string{}
	for node, degree := range outDegree {
		if degree == 0 {
			queue = append(queue, node)
		}
	}

	result := []string{}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range reverseEdges[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		cycles := g.DetectCycles()
		if len(cycles) > 0 {
			return nil, fmt.Errorf("circular reference detected: %s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular reference detected")
	}

	return result, nil
}

// Dependencies returns all record types the given type references
func (g *Graph) Dependencies(name string) []string {
	deps, exists := g.edges[name]
	if !exists {
		return []string{}
	}
	return deps
}

// Dependents returns all record types that reference the given type
func (g *Graph) Dependents(name string) []string {
	dependents := []string{}
	for node, deps := range g.edges {
		for _, dep := range deps {
			if dep == name {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(strings.Join(cycle, " -> "))
		b.WriteString(" -> ")
		b.WriteString(cycle[0])
	}
	return b.String()
}
