// Package kafka publishes frame-production events for downstream
// consumers such as the movie encoder trigger.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/halcyon-wx/frameline/internal/pipeline"
)

// Notifier implements pipeline.Notifier over a Kafka topic. One message
// is produced per persisted frame, keyed by region so a consumer sees
// each region's frames in order.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a producer for the given brokers and topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
	}
	return &Notifier{writer: w, logger: logger}
}

// FramePersisted publishes one frame event.
func (n *Notifier) FramePersisted(ctx context.Context, event pipeline.FrameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize frame event: %w", err)
	}
	return n.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.Region),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "provider", Value: []byte(event.Provider)},
		},
	})
}

// Close flushes and closes the underlying writer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}
