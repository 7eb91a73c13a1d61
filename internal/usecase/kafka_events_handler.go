package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"MacroPulse/internal/domain/models"
)

// EventSink queues raw events for ingestion.
type EventSink interface {
	Add(ctx context.Context, events ...models.RawEvent)
}

// KafkaEventsHandler bridges the raw indicator-event topic into the
// ingestion buffer. It implements kafka.MessageHandler. Payloads may be
// a single event object or a JSON array of events.
type KafkaEventsHandler struct {
	topic string
	sink  EventSink
}

// NewKafkaEventsHandler creates a handler for the given topic.
func NewKafkaEventsHandler(topic string, sink EventSink) *KafkaEventsHandler {
	return &KafkaEventsHandler{topic: topic, sink: sink}
}

// Topic returns the consumed topic name.
func (h *KafkaEventsHandler) Topic() string {
	return h.topic
}

// Handle parses the payload and queues its events.
func (h *KafkaEventsHandler) Handle(ctx context.Context, data []byte) error {
	var batch []models.RawEvent
	if err := json.Unmarshal(data, &batch); err != nil {
		var single models.RawEvent
		if err := json.Unmarshal(data, &single); err != nil {
			return fmt.Errorf("decode event payload: %w", err)
		}
		batch = []models.RawEvent{single}
	}
	if len(batch) == 0 {
		return nil
	}
	h.sink.Add(ctx, batch...)
	return nil
}
