/*
Package report aggregates a zone assignment into per-zone summaries.

Fault counts are a presentation convention: a zone listed in the fault set is
reported with every one of its buses faulted, any other zone with none.
*/
package report

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

var (
	ErrBadAssignment = errors.New("bus assigned outside the zone range")
	ErrBadFaultZone  = errors.New("fault zone outside the zone range")
	ErrIncomplete    = errors.New("zone totals do not cover every bus")
)

// FaultSet is the set of zone ids flagged as faulted.
type FaultSet map[int]bool

// NewFaultSet returns a FaultSet holding ids.
func NewFaultSet(ids ...int) FaultSet {
	set := make(FaultSet, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Summary is the report row for one zone.
type Summary struct {
	Zone         int     `json:"Zone"`
	Name         string  `json:"Name"`
	TotalNodes   int     `json:"TotalNodes"`
	FaultNodes   int     `json:"FaultNodes"`
	FaultPercent float64 `json:"FaultPercent"`
}

// Report holds one Summary per zone, ordered by zone id.
type Report struct {
	Zones []Summary `json:"Zones"`
}

// ZoneName is the display name of zone z.
func ZoneName(z int) string {
	return fmt.Sprintf("Zone %d", z+1)
}

// Build counts the buses of each of the k zones and flags the zones in faults.
func Build(assignment []int, k int, faults FaultSet) (Report, error) {
	for z := range faults {
		if z < 0 || z >= k {
			return Report{}, fmt.Errorf("%w: zone %d, %d zones", ErrBadFaultZone, z, k)
		}
	}

	totals := make([]int, k)
	for bus, z := range assignment {
		if z < 0 || z >= k {
			return Report{}, fmt.Errorf("%w: bus %d in zone %d, %d zones", ErrBadAssignment, bus, z, k)
		}
		totals[z]++
	}

	r := Report{Zones: make([]Summary, k)}
	sum := 0
	for z, total := range totals {
		s := Summary{Zone: z, Name: ZoneName(z), TotalNodes: total}
		if faults[z] {
			s.FaultNodes = total
		}
		if total > 0 {
			s.FaultPercent = scalar.Round(float64(s.FaultNodes)/float64(total)*100, 2)
		}
		r.Zones[z] = s
		sum += total
	}

	if sum != len(assignment) {
		return Report{}, fmt.Errorf("%w: %d of %d", ErrIncomplete, sum, len(assignment))
	}
	return r, nil
}

// Total returns the number of buses across all zones.
func (r Report) Total() int {
	n := 0
	for _, s := range r.Zones {
		n += s.TotalNodes
	}
	return n
}

// FaultZones lists the names of zones with at least one faulted bus.
func (r Report) FaultZones() []string {
	var names []string
	for _, s := range r.Zones {
		if s.FaultNodes > 0 {
			names = append(names, s.Name)
		}
	}
	return names
}

// Zone returns the summary for zone z.
func (r Report) Zone(z int) (Summary, bool) {
	if z < 0 || z >= len(r.Zones) {
		return Summary{}, false
	}
	return r.Zones[z], true
}
