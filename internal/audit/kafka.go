// Package audit mirrors execution log entries to Kafka so other systems can
// follow what agents do.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clawdesk/clawdesk/internal/timeline"
	"github.com/segmentio/kafka-go"
)

// EventHeader names the kind of record carried by a message.
const EventHeader = "clawdesk-event"

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes log entries to one topic, keyed by agent id.
type KafkaPublisher struct {
	w       MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates an asynchronous publisher for a comma-separated
// broker list. Delivery failures are logged.
func NewKafkaPublisher(brokers, topic string) (*KafkaPublisher, error) {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 || strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka audit requires brokers and topic")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 100 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				slog.Warn("Audit delivery failed", "topic", topic, "messages", len(msgs), "error", err)
			}
		},
	}
	return NewPublisherWithWriter(w), nil
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w, timeout: 5 * time.Second}
}

// PublishLog sends one entry.
func (p *KafkaPublisher) PublishLog(ctx context.Context, entry *timeline.ExecutionLog) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(entry.AgentID),
		Value:   payload,
		Headers: []kafka.Header{{Key: EventHeader, Value: []byte("execution_log")}},
		Time:    entry.CreatedAt,
	})
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
