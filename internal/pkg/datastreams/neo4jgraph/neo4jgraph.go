/*
Package neo4jgraph mirrors a partitioned feeder into a neo4j graph: one Bus
node per bus carrying its zone and position, a LINE relationship per
retained line carrying its weight, and an IN_ZONE relationship from each bus
to its Zone node.
*/
package neo4jgraph

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/msg"
	"github.com/ohowland/gridzone/internal/pkg/pipeline"
)

const (
	mergeBuses = `
		UNWIND $buses AS bus
		MERGE (b:Bus {run: $run, label: bus.label})
		SET b.index = bus.index, b.zone = bus.zone, b.x = bus.x, b.y = bus.y, b.fallback = bus.fallback
		MERGE (z:Zone {run: $run, zone: bus.zone})
		MERGE (b)-[:IN_ZONE]->(z)`

	mergeLines = `
		UNWIND $lines AS line
		MATCH (f:Bus {run: $run, label: line.from}), (t:Bus {run: $run, label: line.to})
		MERGE (f)-[l:LINE]->(t)
		SET l.weight = line.weight`

	mergeZones = `
		UNWIND $zones AS zone
		MERGE (z:Zone {run: $run, zone: zone.zone})
		SET z.name = zone.name, z.totalNodes = zone.totalNodes, z.faultNodes = zone.faultNodes, z.faultPercent = zone.faultPercent`
)

type Handler struct {
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config.Neo4j
}

func New(cfg config.Neo4j, system msg.Publisher) (Handler, error) {
	pid, _ := uuid.NewUUID()

	chReport, err := system.Subscribe(pid, msg.Report)
	if err != nil {
		return Handler{}, err
	}
	chTopology, err := system.Subscribe(pid, msg.Topology)
	if err != nil {
		return Handler{}, err
	}

	return Handler{
		inbox:  msg.Merge(chReport, chTopology),
		pid:    pid,
		config: cfg,
	}, nil
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

type statement struct {
	query  string
	params map[string]any
}

func topologyStatements(t pipeline.Topology) []statement {
	buses := make([]any, len(t.Buses))
	for i, b := range t.Buses {
		buses[i] = map[string]any{
			"label":    b.Label,
			"index":    b.Index,
			"zone":     b.Zone,
			"x":        b.X,
			"y":        b.Y,
			"fallback": b.Fallback,
		}
	}
	lines := make([]any, len(t.Edges))
	for i, e := range t.Edges {
		lines[i] = map[string]any{"from": e.From, "to": e.To, "weight": e.Weight}
	}

	run := t.PID.String()
	return []statement{
		{mergeBuses, map[string]any{"run": run, "buses": buses}},
		{mergeLines, map[string]any{"run": run, "lines": lines}},
	}
}

func reportStatements(r pipeline.ZoneReport) []statement {
	zones := make([]any, len(r.Zones))
	for i, s := range r.Zones {
		zones[i] = map[string]any{
			"zone":         s.Zone,
			"name":         s.Name,
			"totalNodes":   s.TotalNodes,
			"faultNodes":   s.FaultNodes,
			"faultPercent": s.FaultPercent,
		}
	}
	return []statement{{mergeZones, map[string]any{"run": r.PID.String(), "zones": zones}}}
}

func (h Handler) write(ctx context.Context, driver neo4j.DriverWithContext, m msg.Msg) error {
	var stmts []statement
	switch p := m.Payload().(type) {
	case pipeline.Topology:
		stmts = topologyStatements(p)
	case pipeline.ZoneReport:
		stmts = reportStatements(p)
	default:
		return fmt.Errorf("unexpected %v payload %T", m.Topic(), p)
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: h.config.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, s := range stmts {
			if _, err := tx.Run(ctx, s.query, s.params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Process writes every message from the inbox until it is closed or ctx is
// done.
func (h Handler) Process(ctx context.Context) error {
	log.Println("[Neo4j] Process Started")
	driver, err := neo4j.NewDriverWithContext(h.config.URI, neo4j.BasicAuth(h.config.Username, h.config.Password, ""))
	if err != nil {
		return fmt.Errorf("could not create neo4j driver: %w", err)
	}
	defer driver.Close(context.Background())

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify connection: %w", err)
	}

loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			if err := h.write(ctx, driver, m); err != nil {
				log.Printf("[Neo4j] %v: %v\n", m.Topic(), err)
			}
		case <-ctx.Done():
			break loop
		}
	}
	log.Println("[Neo4j] Process Shutdown")
	return ctx.Err()
}
