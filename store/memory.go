package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewMemoryBundle creates a Bundle backed entirely by in-memory stores
func NewMemoryBundle() *Bundle {
	return &Bundle{
		Events: &MemoryEventStore{},
	}
}

type MemoryEventStore struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemoryEventStore) RecordEvent(event Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	s.events = append(s.events, event)
	return event.ID, nil
}

func (s *MemoryEventStore) EventsFor(target string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	for _, e := range s.events {
		if e.Target == target {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *MemoryEventStore) LastEvent(target, environment string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Target == target && s.events[i].Environment == environment {
			event := s.events[i]
			return &event, nil
		}
	}
	return nil, nil
}
