package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingProducer struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingProducer) Publish(_ context.Context, key string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingProducer) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func TestRelay_ForwardsLeadsKeyedByID(t *testing.T) {
	hub := NewHub(8, logger.NewNoOpLogger())
	producer := &recordingProducer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := NewRelay(hub, producer, logger.NewNoOpLogger()).Start(ctx)
	require.Equal(t, 1, hub.ObserverCount())

	hub.Publish(models.EventNewLead, models.Lead{ID: "a"})
	hub.Publish(models.EventNewLead, models.Lead{ID: "b"})
	hub.Publish("other", nil)

	assert.Eventually(t, func() bool { return len(producer.Keys()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "other"}, producer.Keys())

	cancel()
	<-done
	assert.Equal(t, 0, hub.ObserverCount())
}

func TestRelay_ProducerFailureIsContained(t *testing.T) {
	hub := NewHub(8, logger.NewNoOpLogger())
	producer := &recordingProducer{err: errors.New("broker down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zap.WarnLevel)
	NewRelay(hub, producer, logger.NewZapAdapter(zap.New(core))).Start(ctx)

	hub.Publish(models.EventNewLead, models.Lead{ID: "a"})
	hub.Publish(models.EventNewLead, models.Lead{ID: "b"})

	assert.Eventually(t, func() bool { return len(producer.Keys()) == 2 }, time.Second, 5*time.Millisecond)
	// one warning per failed delivery
	assert.Eventually(t, func() bool { return logs.FilterMessage("event relay failed").Len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, logs.Len())
}
