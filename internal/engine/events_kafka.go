package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"chunkscope/internal/model"
)

// KafkaEventPublisher mirrors ExecutionState snapshots onto a Kafka
// topic, for consumers outside the process that called Submit (a
// dashboard, an audit log, a downstream pipeline stage). It is an
// additional sink, not a replacement for Manager.Events: the
// in-process channel stays the authoritative, ordered stream; Kafka
// delivery is best-effort, matching the Events surface's documented
// "best-effort, coalescable" contract.
//
// Grounded on internal/workspaces/kafka_events.go's
// KafkaCommitPublisher: a nil-safe *kafka.Writer wrapper constructed
// only when enabled, keyed by topic, publishing JSON-encoded payloads.
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher builds a publisher against brokers/topic, or
// returns nil when brokers or topic is empty so callers can wire it
// unconditionally and treat a nil *KafkaEventPublisher as a no-op.
func NewKafkaEventPublisher(brokers, topic string) *KafkaEventPublisher {
	if brokers == "" || topic == "" {
		return nil
	}
	return &KafkaEventPublisher{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// Publish writes state as a single Kafka message keyed by RunID, so a
// partitioned consumer group sees one run's events in order.
func (p *KafkaEventPublisher) Publish(ctx context.Context, state model.ExecutionState) error {
	if p == nil || p.writer == nil {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(state.RunID),
		Value: payload,
		Time:  time.Now(),
	})
}

// Close releases the underlying writer's connections.
func (p *KafkaEventPublisher) Close() {
	if p == nil || p.writer == nil {
		return
	}
	if err := p.writer.Close(); err != nil {
		log.Warn().Err(err).Msg("kafka_event_writer_close_failed")
	}
}
