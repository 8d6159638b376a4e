package feeder

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	ErrDuplicateNode = errors.New("node already exists in graph")
	ErrMissingNode   = errors.New("node does not exist in graph")
)

// busGraph is an undirected bus adjacency graph whose node and neighbour
// iteration follow insertion order. The layout optimiser visits nodes in
// iteration order, so a fixed order keeps seeded layouts reproducible.
type busGraph struct {
	nodes          []graph.Node
	index          map[int64]int
	adjacentcyList [][]graph.Node
}

func newBusGraph() *busGraph {
	return &busGraph{index: make(map[int64]int)}
}

// AddNode appends n to the graph.
func (g *busGraph) AddNode(n graph.Node) error {
	if _, exists := g.index[n.ID()]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID())
	}
	g.index[n.ID()] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.adjacentcyList = append(g.adjacentcyList, nil)
	return nil
}

// AddEdge joins u and v. Repeated edges and self loops are ignored.
func (g *busGraph) AddEdge(u, v graph.Node) error {
	ui, exists := g.index[u.ID()]
	if !exists {
		return fmt.Errorf("%w: start node %d", ErrMissingNode, u.ID())
	}
	vi, exists := g.index[v.ID()]
	if !exists {
		return fmt.Errorf("%w: end node %d", ErrMissingNode, v.ID())
	}

	if ui == vi || g.HasEdgeBetween(u.ID(), v.ID()) {
		return nil
	}
	g.adjacentcyList[ui] = append(g.adjacentcyList[ui], g.nodes[vi])
	g.adjacentcyList[vi] = append(g.adjacentcyList[vi], g.nodes[ui])
	return nil
}

// Node returns the node with the given ID, or nil.
func (g *busGraph) Node(id int64) graph.Node {
	if i, ok := g.index[id]; ok {
		return g.nodes[i]
	}
	return nil
}

// Nodes returns all nodes in insertion order.
func (g *busGraph) Nodes() graph.Nodes {
	return iterator.NewOrderedNodes(g.nodes)
}

// From returns the neighbours of id in the order their edges were added.
func (g *busGraph) From(id int64) graph.Nodes {
	i, ok := g.index[id]
	if !ok {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(g.adjacentcyList[i])
}

// HasEdgeBetween reports whether an edge joins xid and yid.
func (g *busGraph) HasEdgeBetween(xid, yid int64) bool {
	i, ok := g.index[xid]
	if !ok {
		return false
	}
	for _, n := range g.adjacentcyList[i] {
		if n.ID() == yid {
			return true
		}
	}
	return false
}

// Edge returns the edge from uid to vid, or nil.
func (g *busGraph) Edge(uid, vid int64) graph.Edge {
	if !g.HasEdgeBetween(uid, vid) {
		return nil
	}
	return simple.Edge{F: g.Node(uid), T: g.Node(vid)}
}
