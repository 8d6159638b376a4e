/*
Package feeder builds the weighted bus graph of a distribution feeder from a
line list and a coordinate table.

Buses are indexed densely in the order they are first seen while scanning the
lines. Each line with a positive resistance becomes an edge weighted by its
inverse resistance; a zero resistance line is dropped rather than treated as
a short between its buses.
*/
package feeder

import (
	"fmt"
	"math"

	"github.com/ohowland/gridzone/internal/pkg/circuit"
	"gonum.org/v1/gonum/mat"
)

// Edge is a retained line between buses U and V.
type Edge struct {
	U      int     `json:"U"`
	V      int     `json:"V"`
	Weight float64 `json:"Weight"`
}

// Position is a bus drawing coordinate. Fallback is set when the bus was
// missing from the coordinate table and was placed by the layout.
type Position struct {
	X        float64 `json:"X"`
	Y        float64 `json:"Y"`
	Fallback bool    `json:"Fallback"`
}

// Graph is the bus graph of one feeder.
type Graph struct {
	labels    []string
	index     map[string]int
	edges     []Edge
	positions []Position
}

// Load scans src once and builds the bus graph. Buses absent from coords are
// positioned by a seeded layout over the whole graph.
func Load(src circuit.LineSource, coords circuit.CoordTable, opts LayoutOptions) (Graph, error) {
	g := Graph{index: make(map[string]int)}

	for src.Next() {
		line := src.Line()
		if math.IsNaN(line.R1) || math.IsInf(line.R1, 0) {
			return Graph{}, fmt.Errorf("%w: line %q has resistance %v", circuit.ErrConfig, line.Name, line.R1)
		}

		u := g.register(line.From)
		v := g.register(line.To)
		if line.R1 <= 0 || u == v {
			continue
		}
		g.edges = append(g.edges, Edge{U: u, V: v, Weight: 1.0 / line.R1})
	}
	if err := src.Err(); err != nil {
		return Graph{}, err
	}

	if err := g.place(coords, opts); err != nil {
		return Graph{}, err
	}
	return g, nil
}

func (g *Graph) register(label string) int {
	if i, ok := g.index[label]; ok {
		return i
	}
	i := len(g.labels)
	g.index[label] = i
	g.labels = append(g.labels, label)
	return i
}

func (g *Graph) place(coords circuit.CoordTable, opts LayoutOptions) error {
	g.positions = make([]Position, len(g.labels))

	var missing []int
	for i, label := range g.labels {
		if p, ok := coords[label]; ok {
			g.positions[i] = Position{X: p.X, Y: p.Y}
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return nil
	}

	fallback, err := springLayout(len(g.labels), g.edges, opts)
	if err != nil {
		return err
	}
	for _, i := range missing {
		g.positions[i] = Position{X: fallback[i].X, Y: fallback[i].Y, Fallback: true}
	}
	return nil
}

// Len returns the number of distinct buses.
func (g Graph) Len() int {
	return len(g.labels)
}

// Buses returns the bus labels ordered by index.
func (g Graph) Buses() []string {
	return append([]string(nil), g.labels...)
}

// Label returns the label of bus i.
func (g Graph) Label(i int) string {
	return g.labels[i]
}

// Index returns the index of a bus label.
func (g Graph) Index(label string) (int, bool) {
	i, ok := g.index[label]
	return i, ok
}

// Edges returns the retained lines in scan order.
func (g Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Positions returns a position for every bus, ordered by index.
func (g Graph) Positions() []Position {
	return append([]Position(nil), g.positions...)
}

// Affinity returns the symmetric weighted adjacency matrix. When several
// lines join the same buses the last one wins.
func (g Graph) Affinity() *mat.SymDense {
	n := len(g.labels)
	if n == 0 {
		return &mat.SymDense{}
	}

	w := mat.NewSymDense(n, nil)
	for _, e := range g.edges {
		w.SetSym(e.U, e.V, e.Weight)
	}
	return w
}
