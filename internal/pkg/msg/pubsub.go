package msg

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("publisher is closed")

const inboxSize = 50

// PubSub fans each published Msg out to the subscribers of its topic.
type PubSub struct {
	mux         *sync.Mutex
	pid         uuid.UUID
	subscribers map[Topic]map[uuid.UUID]chan Msg
	closed      bool
}

// NewPublisher returns a PubSub that stamps messages with pid.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		mux:         &sync.Mutex{},
		pid:         pid,
		subscribers: make(map[Topic]map[uuid.UUID]chan Msg),
	}
}

// PID returns the publisher's PID.
func (p *PubSub) PID() uuid.UUID {
	return p.pid
}

// Subscribe returns a buffered channel receiving every Msg published on
// topic. Subscribing twice to one topic returns a new channel and closes the
// old one.
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	subs, ok := p.subscribers[topic]
	if !ok {
		subs = make(map[uuid.UUID]chan Msg)
		p.subscribers[topic] = subs
	}
	if old, ok := subs[pid]; ok {
		close(old)
	}
	ch := make(chan Msg, inboxSize)
	subs[pid] = ch
	return ch, nil
}

// Unsubscribe removes pid from every topic and closes its channels.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, subs := range p.subscribers {
		if ch, ok := subs[pid]; ok {
			close(ch)
			delete(subs, pid)
		}
	}
}

// Publish sends payload to every subscriber of topic. It blocks while a
// subscriber's channel is full.
func (p *PubSub) Publish(topic Topic, payload interface{}) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return ErrClosed
	}

	m := New(p.pid, topic, payload)
	for _, ch := range p.subscribers[topic] {
		ch <- m
	}
	return nil
}

// Close closes every subscriber channel. Later calls to Subscribe and
// Publish fail with ErrClosed.
func (p *PubSub) Close() {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, subs := range p.subscribers {
		for pid, ch := range subs {
			close(ch)
			delete(subs, pid)
		}
	}
}

// Merge redirects every channel in chs into one inbox, which is closed once
// all of chs are closed.
func Merge(chs ...<-chan Msg) <-chan Msg {
	inbox := make(chan Msg, inboxSize)
	wg := &sync.WaitGroup{}
	for _, ch := range chs {
		wg.Add(1)
		go func(ch <-chan Msg) {
			defer wg.Done()
			for m := range ch {
				inbox <- m
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(inbox)
	}()
	return inbox
}
