// Package sink publishes resource records to external systems.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jpalmerr/peerboard/internal/store"
)

// defaultBatchTimeout keeps single-record writes from waiting on kafka-go's
// one second default.
const defaultBatchTimeout = 50 * time.Millisecond

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes every record it receives to a Kafka topic, keyed by
// resource name so a compacted topic keeps the latest state per resource.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink creates a sink for the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: defaultBatchTimeout,
	}
	return &KafkaSink{writer: writer, topic: topic}, nil
}

// Publish writes one record.
func (s *KafkaSink) Publish(ctx context.Context, rec store.Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.Name, err)
	}
	msg := kafka.Message{
		Key:   []byte(rec.Name),
		Value: value,
		Time:  rec.UpdatedAt,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write record %s to %s: %w", rec.Name, s.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the connection.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
