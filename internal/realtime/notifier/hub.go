// Package notifier fans realtime events out to every connected observer.
package notifier

import (
	"sync"

	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/common/metrics"
)

const Component = "realtime-notifier"

// Event is the envelope observers receive.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// Publisher is the publish-only side of the notifier.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Hub is the in-process observer set. Publish never blocks: an observer whose
// buffer is full misses the event, other observers are unaffected.
type Hub struct {
	mu        sync.RWMutex
	observers map[*Subscription]struct{}
	closed    bool
	buffer    int
	logger    logger.Logger
}

func NewHub(buffer int, log logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		observers: make(map[*Subscription]struct{}),
		buffer:    buffer,
		logger:    logger.ForComponent(log, Component),
	}
}

// Subscribe registers a new observer. Only events published after this call
// are delivered. After Close the returned subscription is already closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{hub: h, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub
	}
	h.observers[sub] = struct{}{}
	count := len(h.observers)
	h.mu.Unlock()

	metrics.RealtimeObservers.Inc()
	h.logger.Debug("observer connected", map[string]interface{}{"observers": count})
	return sub
}

func (h *Hub) Publish(event string, payload interface{}) {
	ev := Event{Name: event, Data: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	metrics.RealtimeEventsPublished.WithLabelValues(event).Inc()
	for sub := range h.observers {
		select {
		case sub.ch <- ev:
		default:
			sub.markDropped()
			metrics.RealtimeEventsDropped.WithLabelValues(event).Inc()
		}
	}
}

// ObserverCount reports the number of connected observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Close disconnects every observer: each Events channel is closed once its
// buffered events are drained. Later publishes reach nobody.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.observers
	h.observers = make(map[*Subscription]struct{})
	for sub := range subs {
		close(sub.ch)
	}
	h.mu.Unlock()

	metrics.RealtimeObservers.Sub(float64(len(subs)))
	h.logger.Info("notifier closed", map[string]interface{}{"observers": len(subs)})
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.observers[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.observers, sub)
	close(sub.ch)
	count := len(h.observers)
	h.mu.Unlock()

	metrics.RealtimeObservers.Dec()
	h.logger.Debug("observer disconnected", map[string]interface{}{
		"observers": count,
		"dropped":   sub.Dropped(),
	})
}

// Subscription is one observer's view of the hub.
type Subscription struct {
	hub     *Hub
	ch      chan Event
	mu      sync.Mutex
	dropped int
}

// Events returns the receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close unregisters the observer. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Dropped returns how many events this observer missed because its buffer was full.
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Subscription) markDropped() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(string, interface{}) {}
