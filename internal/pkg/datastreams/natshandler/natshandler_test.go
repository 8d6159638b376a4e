package natshandler

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/msg"
	"gotest.tools/v3/assert"

	nats "github.com/nats-io/nats.go"
)

func TestSubjects(t *testing.T) {
	h, err := New(config.NATS{Prefix: "ieee123"}, msg.NewPublisher(uuid.New()))
	assert.NilError(t, err)

	assert.Equal(t, h.Subject(msg.Report), "ieee123.report")
	assert.Equal(t, h.Subject(msg.Topology), "ieee123.topology")
}

func TestDefaults(t *testing.T) {
	h, err := New(config.NATS{}, msg.NewPublisher(uuid.New()))
	assert.NilError(t, err)

	assert.Equal(t, h.config.Server, nats.DefaultURL)
	assert.Equal(t, h.Subject(msg.Report), "gridzone.report")
}

func TestNewOnClosedPublisher(t *testing.T) {
	pub := msg.NewPublisher(uuid.New())
	pub.Close()

	_, err := New(config.NATS{}, pub)
	assert.Assert(t, errors.Is(err, msg.ErrClosed))
}
