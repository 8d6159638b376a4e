package natshandler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/gridzone/internal/pkg/config"
	"github.com/ohowland/gridzone/internal/pkg/msg"

	nats "github.com/nats-io/nats.go"
)

const (
	defaultPrefix = "gridzone"
	flushTimeout  = 5 * time.Second
)

type Handler struct {
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config.NATS
}

func New(cfg config.NATS, system msg.Publisher) (Handler, error) {
	pid, _ := uuid.NewUUID()

	chReport, err := system.Subscribe(pid, msg.Report)
	if err != nil {
		return Handler{}, err
	}
	chTopology, err := system.Subscribe(pid, msg.Topology)
	if err != nil {
		return Handler{}, err
	}

	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Server == "" {
		cfg.Server = nats.DefaultURL
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

// Subject returns the subject a topic is published on.
func (h Handler) Subject(t msg.Topic) string {
	return h.config.Prefix + "." + t.String()
}

// Process publishes every message from the inbox as JSON until it is closed
// or ctx is done.
func (h Handler) Process(ctx context.Context) error {
	log.Println("[NATS client] Process Started")
	nc, err := nats.Connect(h.config.Server, nats.Name("gridzone "+h.pid.String()))
	if err != nil {
		return err
	}
	defer nc.Close()

loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			data, err := json.Marshal(m.Payload())
			if err != nil {
				log.Printf("[NATS client] %v: %v\n", m.Topic(), err)
				continue
			}
			if err = nc.Publish(h.Subject(m.Topic()), data); err != nil {
				log.Printf("[NATS client] unable to publish to nats server: %v\n", err)
			}

		case <-ctx.Done():
			break loop
		}
	}

	if err := nc.FlushTimeout(flushTimeout); err != nil {
		log.Printf("[NATS client] flush: %v\n", err)
	}
	log.Println("[NATS client] Process Shutdown")
	return ctx.Err()
}
