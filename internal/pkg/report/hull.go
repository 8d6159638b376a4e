package report

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultInflation is the factor a zone outline is scaled by about its centroid.
const DefaultInflation = 1.15

// Outline is the closed boundary drawn around a zone. The first vertex is
// repeated at the end.
type Outline struct {
	Zone   int      `json:"Zone"`
	Points []r2.Vec `json:"Points"`
}

// Outlines returns an outline for each zone whose buses span an area. Zones
// with fewer than three distinct positions, or whose positions are
// collinear, have none. A non-positive factor uses DefaultInflation.
func Outlines(assignment []int, k int, positions []r2.Vec, factor float64) []Outline {
	if factor <= 0 {
		factor = DefaultInflation
	}

	groups := make([][]r2.Vec, k)
	for bus, z := range assignment {
		if z < 0 || z >= k || bus >= len(positions) {
			continue
		}
		groups[z] = append(groups[z], positions[bus])
	}

	var out []Outline
	for z, pts := range groups {
		hull := convexHull(pts)
		if len(hull) < 3 {
			continue
		}
		out = append(out, Outline{Zone: z, Points: inflate(hull, factor)})
	}
	return out
}

// convexHull returns the hull vertices counter-clockwise using the monotone
// chain algorithm. Collinear points are dropped.
func convexHull(pts []r2.Vec) []r2.Vec {
	p := append([]r2.Vec(nil), pts...)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})

	uniq := p[:0]
	for i, v := range p {
		if i == 0 || v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	p = uniq
	if len(p) < 3 {
		return p
	}

	turn := func(o, a, b r2.Vec) float64 {
		return r2.Cross(r2.Sub(a, o), r2.Sub(b, o))
	}

	hull := make([]r2.Vec, 0, 2*len(p))
	for _, v := range p {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], v) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, v)
	}
	lower := len(hull) + 1
	for i := len(p) - 2; i >= 0; i-- {
		v := p[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], v) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, v)
	}
	return hull[:len(hull)-1]
}

// inflate scales the hull about the mean of its vertices and closes it.
func inflate(hull []r2.Vec, factor float64) []r2.Vec {
	var center r2.Vec
	for _, v := range hull {
		center = r2.Add(center, v)
	}
	center = r2.Scale(1/float64(len(hull)), center)

	out := make([]r2.Vec, 0, len(hull)+1)
	for _, v := range hull {
		out = append(out, r2.Add(center, r2.Scale(factor, r2.Sub(v, center))))
	}
	return append(out, out[0])
}
