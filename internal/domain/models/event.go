package models

import "time"

// RawEvent is the wire form of an indicator observation, as received over
// HTTP or Kafka before validation and mapping resolution.
type RawEvent struct {
	IndicatorKey string  `json:"indicator_key"`
	RawScore     float64 `json:"raw_score"`
	ObservedAt   string  `json:"observed_at"`
	SourceID     string  `json:"source_id,omitempty"`
}

// IndicatorEvent is an accepted, immutable indicator observation.
type IndicatorEvent struct {
	IndicatorKey string    `json:"indicator_key"`
	Asset        string    `json:"asset"`
	RawScore     float64   `json:"raw_score"`
	ObservedAt   time.Time `json:"observed_at"`
	IngestedAt   time.Time `json:"ingested_at"`
	SourceID     string    `json:"source_id,omitempty"`
}

// EventKey is the natural identity of an event. Two events with the same
// key are the same observation regardless of payload.
type EventKey struct {
	IndicatorKey   string
	ObservedAtUnix int64
}

// KeyOf derives the natural key for an event.
func KeyOf(e IndicatorEvent) EventKey {
	return EventKey{
		IndicatorKey:   e.IndicatorKey,
		ObservedAtUnix: e.ObservedAt.Unix(),
	}
}
