package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
)

// MemoryEventStore is the authoritative in-memory event store. Events are
// deduplicated on the natural key and never mutated after commit.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events map[models.EventKey]models.IndicatorEvent
}

// NewMemoryEventStore creates an empty event store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		events: make(map[models.EventKey]models.IndicatorEvent),
	}
}

// Upsert stores the event if its key is unseen. A duplicate key is a
// no-op and reports created=false; the stored event is never replaced.
func (s *MemoryEventStore) Upsert(_ context.Context, event models.IndicatorEvent) (bool, error) {
	key := models.KeyOf(event)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[key]; exists {
		return false, nil
	}
	s.events[key] = event
	return true, nil
}

// Exists reports whether an event with the given key is stored.
func (s *MemoryEventStore) Exists(_ context.Context, key models.EventKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[key]
	return ok, nil
}

// Snapshot returns a copy of all events observed at or before cutoff,
// sorted by indicator key then observed time. Writes after the call
// returns never appear in the returned slice.
func (s *MemoryEventStore) Snapshot(_ context.Context, cutoff time.Time) ([]models.IndicatorEvent, error) {
	s.mu.RLock()
	out := make([]models.IndicatorEvent, 0, len(s.events))
	for _, ev := range s.events {
		if !ev.ObservedAt.After(cutoff) {
			out = append(out, ev)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].IndicatorKey != out[j].IndicatorKey {
			return out[i].IndicatorKey < out[j].IndicatorKey
		}
		return out[i].ObservedAt.Before(out[j].ObservedAt)
	})
	return out, nil
}

// Len returns the number of stored events.
func (s *MemoryEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
