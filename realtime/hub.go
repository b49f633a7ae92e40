package realtime

import (
	"context"
	"sync"

	"food-marketplace-api/metrics"

	"github.com/google/uuid"
)

const DefaultBuffer = 32

// Hub is the in-process Bus. Each subscriber owns a bounded queue; an event
// that does not fit is dropped for that subscriber only.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[string]*Subscription
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[string]*Subscription),
		buffer: buffer,
	}
}

type Subscription struct {
	ID      string
	Channel string

	ch   chan Event
	hub  *Hub
	once sync.Once
}

func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

func (h *Hub) Subscribe(channel string) *Subscription {
	sub := &Subscription{
		ID:      uuid.NewString(),
		Channel: channel,
		ch:      make(chan Event, h.buffer),
		hub:     h,
	}

	h.mu.Lock()
	set, ok := h.subs[channel]
	if !ok {
		set = make(map[string]*Subscription)
		h.subs[channel] = set
	}
	set[sub.ID] = sub
	h.mu.Unlock()

	metrics.ActiveSubscribers.Inc()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[sub.Channel]; ok {
		delete(set, sub.ID)
		if len(set) == 0 {
			delete(h.subs, sub.Channel)
		}
	}
	close(sub.ch)
	h.mu.Unlock()

	metrics.ActiveSubscribers.Dec()
}

// Publish enqueues ev for every current subscriber of channel. Publishes are
// serialized, so each subscriber sees one channel's events in publish order.
func (h *Hub) Publish(_ context.Context, channel string, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs[channel] {
		select {
		case sub.ch <- ev:
		default:
			metrics.EventsDropped.WithLabelValues(string(ev.Kind)).Inc()
		}
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Kind)).Inc()
	return nil
}

// Subscribers reports how many subscribers a channel has.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[channel])
}
