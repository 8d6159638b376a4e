/*
Package pipeline runs the zone partitioning pipeline once: load the feeder
graph, partition it into zones and build the zone report.

Run holds no state between calls. Callers that want to serve a result more
than once keep the returned Result and pass it along.
*/
package pipeline

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/ohowland/gridzone/internal/pkg/circuit"
	"github.com/ohowland/gridzone/internal/pkg/feeder"
	"github.com/ohowland/gridzone/internal/pkg/report"
	"github.com/ohowland/gridzone/internal/pkg/zone"
	"gonum.org/v1/gonum/spatial/r2"
)

// Config holds every parameter of a run.
type Config struct {
	Zones      zone.Config           `json:"Zones"`
	FaultZones []int                 `json:"FaultZones"`
	Timings    map[int]report.Timing `json:"Timings"`
	Inflation  float64               `json:"HullInflation"`
	Layout     feeder.LayoutOptions  `json:"Layout"`
}

// Result is the output of one run.
type Result struct {
	PID        uuid.UUID
	Graph      feeder.Graph
	Assignment zone.Assignment
	Report     report.Report
	Resilience report.Resilience
	Outlines   []report.Outline
}

// Run loads the lines from src, places buses with coords and partitions them.
func Run(cfg Config, src circuit.LineSource, coords circuit.CoordTable) (Result, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return Result{}, err
	}

	g, err := feeder.Load(src, coords, cfg.Layout)
	if err != nil {
		return Result{}, fmt.Errorf("load feeder: %w", err)
	}
	log.Printf("[Pipeline] %v: loaded %d buses, %d lines\n", pid, g.Len(), len(g.Edges()))

	assignment, err := zone.Partition(g.Affinity(), cfg.Zones)
	if err != nil {
		return Result{}, fmt.Errorf("partition feeder: %w", err)
	}
	log.Printf("[Pipeline] %v: partitioned into %d zones (seed %d)\n", pid, cfg.Zones.K, cfg.Zones.Seed)

	rep, err := report.Build(assignment, cfg.Zones.K, report.NewFaultSet(cfg.FaultZones...))
	if err != nil {
		return Result{}, fmt.Errorf("build report: %w", err)
	}
	log.Printf("[Pipeline] %v: fault zones %v\n", pid, rep.FaultZones())

	positions := make([]r2.Vec, g.Len())
	for i, p := range g.Positions() {
		positions[i] = r2.Vec{X: p.X, Y: p.Y}
	}

	return Result{
		PID:        pid,
		Graph:      g,
		Assignment: assignment,
		Report:     rep,
		Resilience: rep.Resilience(cfg.Timings),
		Outlines:   report.Outlines(assignment, cfg.Zones.K, positions, cfg.Inflation),
	}, nil
}

// BusRecord is one bus of a partitioned feeder.
type BusRecord struct {
	Index    int     `json:"Index"`
	Label    string  `json:"Label"`
	Zone     int     `json:"Zone"`
	X        float64 `json:"X"`
	Y        float64 `json:"Y"`
	Fallback bool    `json:"Fallback"`
}

// EdgeRecord is one retained line, named by its bus labels.
type EdgeRecord struct {
	From   string  `json:"From"`
	To     string  `json:"To"`
	Weight float64 `json:"Weight"`
}

// Topology is the partitioned feeder as published to sinks.
type Topology struct {
	PID   uuid.UUID    `json:"PID"`
	Buses []BusRecord  `json:"Buses"`
	Edges []EdgeRecord `json:"Edges"`
}

// Topology flattens the result's graph and assignment.
func (r Result) Topology() Topology {
	positions := r.Graph.Positions()
	t := Topology{PID: r.PID, Buses: make([]BusRecord, r.Graph.Len())}
	for i := range t.Buses {
		t.Buses[i] = BusRecord{
			Index:    i,
			Label:    r.Graph.Label(i),
			Zone:     r.Assignment[i],
			X:        positions[i].X,
			Y:        positions[i].Y,
			Fallback: positions[i].Fallback,
		}
	}
	for _, e := range r.Graph.Edges() {
		t.Edges = append(t.Edges, EdgeRecord{From: r.Graph.Label(e.U), To: r.Graph.Label(e.V), Weight: e.Weight})
	}
	return t
}

// ZoneReport is the report as published to sinks.
type ZoneReport struct {
	PID        uuid.UUID         `json:"PID"`
	Zones      []report.Summary  `json:"Zones"`
	FaultZones []string          `json:"FaultZones"`
	Resilience report.Resilience `json:"Resilience"`
}

// ZoneReport pairs the report with the run's PID.
func (r Result) ZoneReport() ZoneReport {
	return ZoneReport{
		PID:        r.PID,
		Zones:      r.Report.Zones,
		FaultZones: r.Report.FaultZones(),
		Resilience: r.Resilience,
	}
}
