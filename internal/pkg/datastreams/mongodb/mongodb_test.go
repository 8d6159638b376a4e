package mongodb

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/msg"
	"github.com/ohowland/gridzone/internal/pkg/pipeline"
	"github.com/ohowland/gridzone/internal/pkg/report"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gotest.tools/v3/assert"
)

func TestNewSubscribes(t *testing.T) {
	pub := msg.NewPublisher(uuid.New())
	h, err := New(config.Mongo{URI: "mongodb://localhost:27017", Database: "gridzone"}, pub)
	assert.NilError(t, err)

	assert.NilError(t, pub.Publish(msg.Report, "zones"))
	assert.NilError(t, pub.Publish(msg.Topology, "graph"))
	pub.Close()

	var topics []msg.Topic
	for m := range h.inbox {
		topics = append(topics, m.Topic())
	}
	assert.Equal(t, len(topics), 2)
}

func TestReportModels(t *testing.T) {
	pid := uuid.New()
	r := pipeline.ZoneReport{
		PID: pid,
		Zones: []report.Summary{
			{Zone: 0, Name: "Zone 1", TotalNodes: 3},
			{Zone: 1, Name: "Zone 2", TotalNodes: 2, FaultNodes: 2, FaultPercent: 100},
		},
		Resilience: report.Resilience{Zones: []report.ZoneScore{{Zone: 1, Score: 4}}},
	}

	models := reportModels(r)
	assert.Equal(t, len(models), 2)

	m := models[1].(*mongo.UpdateOneModel)
	assert.DeepEqual(t, m.Filter, bson.M{"pid": pid.String(), "zone": 1})
	assert.Equal(t, *m.Upsert, true)

	set := m.Update.(bson.D)[0].Value.(bson.M)
	assert.Equal(t, set["faultPercent"], 100.0)
	assert.Equal(t, set["resilienceScore"], 4.0)

	_, scored := models[0].(*mongo.UpdateOneModel).Update.(bson.D)[0].Value.(bson.M)["resilienceScore"]
	assert.Assert(t, !scored)
}

func TestTopologyModels(t *testing.T) {
	top := pipeline.Topology{
		PID: uuid.New(),
		Buses: []pipeline.BusRecord{
			{Index: 0, Label: "a", Zone: 1},
			{Index: 1, Label: "b", Zone: 0, Fallback: true},
			{Index: 2, Label: "c", Zone: 0},
		},
		Edges: []pipeline.EdgeRecord{{From: "a", To: "b", Weight: 2}, {From: "b", To: "c", Weight: 4}},
	}

	models := topologyModels(top)
	assert.Equal(t, len(models), 3)

	set := models[1].(*mongo.UpdateOneModel).Update.(bson.D)[0].Value.(bson.M)
	assert.Equal(t, set["label"], "b")
	assert.Equal(t, set["fallback"], true)
	assert.DeepEqual(t, set["neighbors"], []string{"a", "c"})
}
