package notifier

import (
	"context"
	"fmt"

	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/models"
)

// EventProducer publishes one keyed message to a broker.
type EventProducer interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Relay forwards hub events to an external broker as one more observer.
// Delivery failures are logged and never reach the publisher.
type Relay struct {
	hub      *Hub
	producer EventProducer
	logger   logger.Logger
}

func NewRelay(hub *Hub, producer EventProducer, log logger.Logger) *Relay {
	return &Relay{hub: hub, producer: producer, logger: logger.ForComponent(log, "event-relay")}
}

// Start subscribes immediately and forwards events until ctx is done.
// The returned channel is closed once the relay has stopped.
func (r *Relay) Start(ctx context.Context) <-chan struct{} {
	sub := r.hub.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				r.forward(ctx, ev)
			}
		}
	}()
	return done
}

func (r *Relay) forward(ctx context.Context, ev Event) {
	key := ev.Name
	if lead, ok := ev.Data.(models.Lead); ok {
		key = lead.ID.String()
	}
	if err := r.producer.Publish(ctx, key, ev); err != nil {
		r.logger.Warn("event relay failed", map[string]interface{}{
			"event": ev.Name,
			"key":   key,
			"error": fmt.Errorf("relay %s: %w", ev.Name, err),
		})
	}
}
