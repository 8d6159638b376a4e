/*
Package zone partitions a feeder's buses into k zones by spectral clustering
of the line affinity matrix.

The raw cluster ids carry no meaning of their own. A relabel table, supplied
as configuration for a specific feeder drawing, maps them onto the zone
numbering used for display. A table tuned for one feeder gives misleading
zones when reused with another feeder or another k.
*/
package zone

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrBadZoneCount    = errors.New("zone count must be at least 1")
	ErrTooFewBuses     = errors.New("fewer buses than zones")
	ErrBadAffinity     = errors.New("affinity matrix has a negative or non-finite entry")
	ErrDegenerateGraph = errors.New("graph cannot be split into the requested zones")
	ErrNotConverged    = errors.New("spectral decomposition did not converge")
	ErrBadRelabel      = errors.New("relabel table is not a permutation of the zone ids")
)

const (
	defaultRestarts = 10
	defaultMaxIter  = 300
)

// Config holds the partitioner parameters.
type Config struct {
	K        int    `json:"Count"`
	Seed     uint64 `json:"Seed"`
	Relabel  []int  `json:"Relabel"`
	Restarts int    `json:"Restarts"`
	MaxIter  int    `json:"MaxIter"`
}

// Assignment maps a bus index to its zone id.
type Assignment []int

// Members returns the bus indices assigned to zone z.
func (a Assignment) Members(z int) []int {
	var members []int
	for i, zone := range a {
		if zone == z {
			members = append(members, i)
		}
	}
	return members
}

// Partition assigns every bus of the affinity matrix w to one of cfg.K zones.
// Identical input and seed give an identical assignment.
func Partition(w mat.Symmetric, cfg Config) (Assignment, error) {
	if cfg.K < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadZoneCount, cfg.K)
	}
	relabel, err := RelabelTable(cfg.Relabel, cfg.K)
	if err != nil {
		return nil, err
	}

	n := w.SymmetricDim()
	if n < cfg.K {
		return nil, fmt.Errorf("%w: %d buses, %d zones", ErrTooFewBuses, n, cfg.K)
	}
	if err := checkAffinity(w); err != nil {
		return nil, err
	}
	if c := components(w); c > cfg.K {
		return nil, fmt.Errorf("%w: %d disconnected components, %d zones", ErrDegenerateGraph, c, cfg.K)
	}

	embedding, err := embed(w, cfg.K)
	if err != nil {
		return nil, err
	}
	if d := distinctRows(embedding); d < cfg.K {
		return nil, fmt.Errorf("%w: %d distinct embedded buses, %d zones", ErrDegenerateGraph, d, cfg.K)
	}

	restarts, maxIter := cfg.Restarts, cfg.MaxIter
	if restarts <= 0 {
		restarts = defaultRestarts
	}
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	labels := kmeans(embedding, cfg.K, cfg.Seed, restarts, maxIter)

	assignment := make(Assignment, n)
	for i, l := range labels {
		assignment[i] = relabel[l]
	}
	return assignment, nil
}

// RelabelTable validates a relabel table for k zones. An empty table is the
// identity.
func RelabelTable(table []int, k int) ([]int, error) {
	if len(table) == 0 {
		identity := make([]int, k)
		for i := range identity {
			identity[i] = i
		}
		return identity, nil
	}
	if len(table) != k {
		return nil, fmt.Errorf("%w: %d entries for %d zones", ErrBadRelabel, len(table), k)
	}

	seen := make([]bool, k)
	for raw, z := range table {
		if z < 0 || z >= k {
			return nil, fmt.Errorf("%w: cluster %d maps to %d", ErrBadRelabel, raw, z)
		}
		if seen[z] {
			return nil, fmt.Errorf("%w: zone %d used twice", ErrBadRelabel, z)
		}
		seen[z] = true
	}
	return append([]int(nil), table...), nil
}

func checkAffinity(w mat.Symmetric) error {
	n := w.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := w.At(i, j)
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: (%d, %d) = %v", ErrBadAffinity, i, j, v)
			}
		}
	}
	return nil
}

// components counts the connected components of the graph whose edges are
// the positive off-diagonal entries of w.
func components(w mat.Symmetric) int {
	n := w.SymmetricDim()
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if w.At(i, j) > 0 {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}
	return len(topo.ConnectedComponents(g))
}
