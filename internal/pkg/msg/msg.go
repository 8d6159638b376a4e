package msg

import "github.com/google/uuid"

// Topic names the kind of payload a Msg carries.
type Topic int

const (
	// Report carries a pipeline.ZoneReport.
	Report Topic = iota
	// Topology carries a pipeline.Topology.
	Topology
)

func (t Topic) String() string {
	switch t {
	case Report:
		return "report"
	case Topology:
		return "topology"
	default:
		return "unknown"
	}
}

// Publisher is an interface for objects that allow subscription to their events
type Publisher interface {
	Subscribe(uuid.UUID, Topic) (<-chan Msg, error)
	Unsubscribe(uuid.UUID)
}

// Msg is a payload published on a topic.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

// Topic returns the topic the message was published on.
func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}
