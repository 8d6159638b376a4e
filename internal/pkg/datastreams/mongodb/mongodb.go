package mongodb

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/msg"
	"github.com/ohowland/gridzone/internal/pkg/pipeline"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportCollection   = "zoneReport"
	topologyCollection = "busTopology"
)

type Handler struct {
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config.Mongo
}

func New(cfg config.Mongo, system msg.Publisher) (Handler, error) {
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

// reportModels upserts one document per zone, keyed by run pid and zone.
func reportModels(r pipeline.ZoneReport) []mongo.WriteModel {
	scores := make(map[int]float64)
	for _, zs := range r.Resilience.Zones {
		scores[zs.Zone] = zs.Score
	}

	models := make([]mongo.WriteModel, 0, len(r.Zones))
	for _, s := range r.Zones {
		set := bson.M{
			"pid":          r.PID.String(),
			"zone":         s.Zone,
			"name":         s.Name,
			"totalNodes":   s.TotalNodes,
			"faultNodes":   s.FaultNodes,
			"faultPercent": s.FaultPercent,
		}
		if score, ok := scores[s.Zone]; ok {
			set["resilienceScore"] = score
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"pid": r.PID.String(), "zone": s.Zone}).
			SetUpdate(bson.D{{Key: "$set", Value: set}}).
			SetUpsert(true))
	}
	return models
}

// topologyModels upserts one document per bus, keyed by run pid and label.
func topologyModels(t pipeline.Topology) []mongo.WriteModel {
	neighbors := make(map[string][]string)
	for _, e := range t.Edges {
		neighbors[e.From] = append(neighbors[e.From], e.To)
		neighbors[e.To] = append(neighbors[e.To], e.From)
	}

	models := make([]mongo.WriteModel, 0, len(t.Buses))
	for _, b := range t.Buses {
		set := bson.M{
			"pid":       t.PID.String(),
			"label":     b.Label,
			"index":     b.Index,
			"zone":      b.Zone,
			"x":         b.X,
			"y":         b.Y,
			"fallback":  b.Fallback,
			"neighbors": neighbors[b.Label],
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"pid": t.PID.String(), "label": b.Label}).
			SetUpdate(bson.D{{Key: "$set", Value: set}}).
			SetUpsert(true))
	}
	return models
}

func (h Handler) write(ctx context.Context, db *mongo.Database, m msg.Msg) error {
	var collection string
	var models []mongo.WriteModel
	switch p := m.Payload().(type) {
	case pipeline.ZoneReport:
		collection, models = reportCollection, reportModels(p)
	case pipeline.Topology:
		collection, models = topologyCollection, topologyModels(p)
	default:
		return fmt.Errorf("unexpected %v payload %T", m.Topic(), p)
	}
	if len(models) == 0 {
		return nil
	}
	_, err := db.Collection(collection).BulkWrite(ctx, models)
	return err
}

// Process writes every message from the inbox until it is closed or ctx is
// done.
func (h Handler) Process(ctx context.Context) error {
	log.Println("[Mongo] Process Started")
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(h.config.URI))
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	db := client.Database(h.config.Database)
loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			if err := h.write(ctx, db, m); err != nil {
				log.Printf("[Mongo] %v: %v\n", m.Topic(), err)
			}
		case <-ctx.Done():
			break loop
		}
	}
	log.Println("[Mongo] Process Shutdown")
	return ctx.Err()
}
