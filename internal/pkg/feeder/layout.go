package feeder

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r2"
)

// LayoutOptions parameterises the force-directed layout used to place buses
// that have no coordinate.
type LayoutOptions struct {
	Seed      uint64  `json:"Seed"`
	Updates   int     `json:"Updates"`
	Repulsion float64 `json:"Repulsion"`
	Rate      float64 `json:"Rate"`
	Theta     float64 `json:"Theta"`
}

// DefaultLayout matches the spring layout seed used for the reference feeder.
func DefaultLayout() LayoutOptions {
	return LayoutOptions{
		Seed:      42,
		Updates:   50,
		Repulsion: 1,
		Rate:      0.05,
		Theta:     0.2,
	}
}

func (o LayoutOptions) withDefaults() LayoutOptions {
	d := DefaultLayout()
	if o.Updates <= 0 {
		o.Updates = d.Updates
	}
	if o.Repulsion <= 0 {
		o.Repulsion = d.Repulsion
	}
	if o.Rate <= 0 {
		o.Rate = d.Rate
	}
	if o.Theta <= 0 {
		o.Theta = d.Theta
	}
	return o
}

// springLayout lays out every bus over the full edge set and rescales the
// result into [-1, 1] about the origin.
func springLayout(n int, edges []Edge, opts LayoutOptions) ([]r2.Vec, error) {
	g := newBusGraph()
	for i := 0; i < n; i++ {
		if err := g.AddNode(simple.Node(i)); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(simple.Node(e.U), simple.Node(e.V)); err != nil {
			return nil, err
		}
	}

	opts = opts.withDefaults()
	eades := layout.EadesR2{
		Updates:   opts.Updates,
		Repulsion: opts.Repulsion,
		Rate:      opts.Rate,
		Theta:     opts.Theta,
		Src:       rand.NewPCG(opts.Seed, opts.Seed),
	}
	o := layout.NewOptimizerR2(g, eades.Update)
	for o.Update() {
	}

	pos := make([]r2.Vec, n)
	for i := range pos {
		pos[i] = o.Coord2(int64(i))
	}
	return rescale(pos), nil
}

func rescale(pos []r2.Vec) []r2.Vec {
	if len(pos) == 0 {
		return pos
	}

	var center r2.Vec
	for _, p := range pos {
		center = r2.Add(center, p)
	}
	center = r2.Scale(1/float64(len(pos)), center)

	lim := 0.0
	for i, p := range pos {
		pos[i] = r2.Sub(p, center)
		lim = math.Max(lim, math.Max(math.Abs(pos[i].X), math.Abs(pos[i].Y)))
	}
	if lim == 0 {
		return pos
	}
	for i, p := range pos {
		pos[i] = r2.Scale(1/lim, p)
	}
	return pos
}
