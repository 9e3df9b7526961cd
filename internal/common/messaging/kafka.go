// Package messaging publishes service events to external brokers.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"taskflow-leads/internal/common/config"
	"taskflow-leads/internal/common/logger"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer writes keyed JSON messages to a single topic.
type KafkaProducer struct {
	writer MessageWriter
	logger logger.Logger
	topic  string
}

// NewKafkaProducer builds a producer for cfg. Writes are synchronous so callers see delivery errors.
func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka producer configuration incomplete: both brokers and topic are required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: config.GetDuration(cfg.BatchTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		RequiredAcks: kafka.RequireOne,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("kafka writer error", map[string]interface{}{"detail": fmt.Sprintf(msg, args...)})
		}),
	}

	log.Info("kafka producer created", map[string]interface{}{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	})
	return NewKafkaProducerWithWriter(w, cfg.Topic, log), nil
}

func NewKafkaProducerWithWriter(w MessageWriter, topic string, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{writer: w, logger: log, topic: topic}
}

// Publish serializes value as JSON and writes it under key.
func (p *KafkaProducer) Publish(ctx context.Context, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	// The caller logs delivery failures.
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		return fmt.Errorf("failed to write to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaProducer) Topic() string {
	return p.topic
}

// Close flushes pending messages.
func (p *KafkaProducer) Close() error {
	p.logger.Info("closing kafka producer", nil)
	return p.writer.Close()
}
