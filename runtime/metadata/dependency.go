package metadata

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/conduit-lang/metamodel/internal/metamodel/node"
)

// DependencyOptions configures dependency graph queries
type DependencyOptions struct {
	Depth   int      // Maximum traversal depth (0 = unlimited)
	Reverse bool     // Reverse traversal (find what references this)
	Types   []string // Filter by relationship (e.g., ["property", "collection"])
}

// BuildDependencyGraph constructs the reference graph of the given nodes.
// Every member that mentions another known type contributes one edge.
func BuildDependencyGraph(nodes []*node.Node, lookup NodeLookup) *DependencyGraph {
	graph := &DependencyGraph{
		Nodes: make(map[string]*DependencyNode),
		Edges: make([]DependencyEdge, 0),
	}

	for _, n := range nodes {
		id := nodeID(n)
		graph.Nodes[id] = &DependencyNode{
			ID:   id,
			Type: n.Name(),
			Name: n.DisplayName(),
		}

		for _, m := range n.Members() {
			var mentioned []reflect.Type
			if m.Type != nil {
				mentioned = append(mentioned, elementTypes(m.Type)...)
			}
			for _, p := range m.Params {
				mentioned = append(mentioned, elementTypes(p)...)
			}

			seen := make(map[string]bool)
			for _, t := range mentioned {
				target, ok := lookup.Peek(t)
				if !ok {
					continue
				}
				to := nodeID(target)
				if seen[to] {
					continue
				}
				seen[to] = true
				graph.Edges = append(graph.Edges, DependencyEdge{
					From:         id,
					To:           to,
					Relationship: m.Kind.String(),
					Member:       m.Name,
					Weight:       1,
				})
			}
		}
	}

	return graph
}

// elementTypes unwraps containers down to the named types they hold
func elementTypes(t reflect.Type) []reflect.Type {
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Chan:
		return elementTypes(t.Elem())
	case reflect.Map:
		return append(elementTypes(t.Elem()), elementTypes(t.Key())...)
	default:
		return []reflect.Type{t}
	}
}

// QueryDependencies finds the types reachable from id with configurable
// options
func QueryDependencies(id string, opts DependencyOptions) (*DependencyGraph, error) {
	if err := globalRegistry.ready(); err != nil {
		return nil, err
	}

	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	if _, ok := globalRegistry.metadata.Dependencies.Nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
	}

	// Check cache first
	cacheKey := fmt.Sprintf("deps:%s:%d:%v:%v", id, opts.Depth, opts.Reverse, opts.Types)
	if cached := globalRegistry.getCached(cacheKey); cached != nil {
		return cached.(*DependencyGraph), nil
	}

	result := extractSubgraph(&globalRegistry.metadata.Dependencies, id, opts)

	globalRegistry.setCached(cacheKey, result)
	return result, nil
}

// extractSubgraph extracts a subgraph using BFS traversal
func extractSubgraph(fullGraph *DependencyGraph, startNode string, opts DependencyOptions) *DependencyGraph {
	result := &DependencyGraph{
		Nodes: make(map[string]*DependencyNode),
		Edges: make([]DependencyEdge, 0),
	}

	visited := make(map[string]bool)
	queue := []depthNode{{id: startNode, depth: 0}}

	// Always add the start node
	if n, exists := fullGraph.Nodes[startNode]; exists {
		result.Nodes[startNode] = n
	}
	visited[startNode] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var edges []DependencyEdge
		if opts.Reverse {
			edges = findIncomingEdges(fullGraph, current.id)
		} else {
			edges = findOutgoingEdges(fullGraph, current.id)
		}

		if len(opts.Types) > 0 {
			edges = filterEdgesByType(edges, opts.Types)
		}

		for _, edge := range edges {
			result.Edges = append(result.Edges, edge)

			next := edge.To
			if opts.Reverse {
				next = edge.From
			}
			if visited[next] {
				continue
			}
			visited[next] = true

			if n, exists := fullGraph.Nodes[next]; exists {
				result.Nodes[next] = n
			}

			// Check depth limit for next level before queuing
			if opts.Depth == 0 || current.depth+1 < opts.Depth {
				queue = append(queue, depthNode{id: next, depth: current.depth + 1})
			}
		}
	}

	return result
}

// depthNode tracks a node and its depth during traversal
type depthNode struct {
	id    string
	depth int
}

func findOutgoingEdges(graph *DependencyGraph, id string) []DependencyEdge {
	var result []DependencyEdge
	for _, edge := range graph.Edges {
		if edge.From == id {
			result = append(result, edge)
		}
	}
	return result
}

func findIncomingEdges(graph *DependencyGraph, id string) []DependencyEdge {
	var result []DependencyEdge
	for _, edge := range graph.Edges {
		if edge.To == id {
			result = append(result, edge)
		}
	}
	return result
}

func filterEdgesByType(edges []DependencyEdge, types []string) []DependencyEdge {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	var result []DependencyEdge
	for _, edge := range edges {
		if typeSet[edge.Relationship] {
			result = append(result, edge)
		}
	}
	return result
}

// DetectCycles returns the reference cycles in the graph. Cycles are legal
// in a metamodel; tools report them for information.
func DetectCycles(graph *DependencyGraph) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	for _, id := range sortedNodeIDs(graph) {
		if !visited[id] {
			findCycles(graph, id, visited, recStack, nil, &cycles)
		}
	}
	return cycles
}

func sortedNodeIDs(graph *DependencyGraph) []string {
	ids := make([]string, 0, len(graph.Nodes))
	for id := range graph.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// findCycles performs DFS to find cycles
func findCycles(graph *DependencyGraph, id string, visited, recStack map[string]bool, path []string, cycles *[][]string) {
	visited[id] = true
	recStack[id] = true
	path = append(path, id)

	for _, edge := range graph.Edges {
		if edge.From != id {
			continue
		}
		next := edge.To

		if recStack[next] {
			// Extract the cycle from path
			start := -1
			for i, n := range path {
				if n == next {
					start = i
					break
				}
			}
			if start >= 0 {
				cycle := make([]string, len(path)-start)
				copy(cycle, path[start:])
				cycle = append(cycle, next) // Close the cycle
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[next] {
			findCycles(graph, next, visited, recStack, path, cycles)
		}
	}

	recStack[id] = false
}

// GetDependencyDepth returns the number of reference hops from id to the
// farthest type it reaches
func GetDependencyDepth(id string) (int, error) {
	graph, err := QueryDependencies(id, DependencyOptions{})
	if err != nil {
		return 0, err
	}

	maxDepth := 0
	visited := make(map[string]int)
	queue := []depthNode{{id: id, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if depth, ok := visited[current.id]; ok && depth <= current.depth {
			continue
		}
		visited[current.id] = current.depth

		if current.depth > maxDepth {
			maxDepth = current.depth
		}

		for _, edge := range findOutgoingEdges(graph, current.id) {
			queue = append(queue, depthNode{id: edge.To, depth: current.depth + 1})
		}
	}

	return maxDepth, nil
}
