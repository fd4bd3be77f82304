// Package store persists the deployment audit log: one event per state
// transition, queryable by target.
package store

import "time"

// Bundle holds the stores backing the audit log.
type Bundle struct {
	Events EventStore
	closer func() error
}

// Close cleans up the bundle resources
func (b *Bundle) Close() error {
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

// Event records one deployment state transition.
type Event struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	Kind        string    `json:"kind"` // "assistant" or "squad"
	Environment string    `json:"environment"`
	Action      string    `json:"action"` // "deploy" or "release"
	VendorID    string    `json:"vendorId,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	Version     int       `json:"version"`
	At          time.Time `json:"at"`
}

// EventStore appends and queries deployment events.
type EventStore interface {
	// RecordEvent stores the event, assigning an ID when none is set,
	// and returns the stored ID.
	RecordEvent(event Event) (id string, err error)
	// EventsFor returns every event for a target, oldest first.
	EventsFor(target string) ([]Event, error)
	// LastEvent returns the most recent event for a target in one
	// environment, or nil when there is none.
	LastEvent(target, environment string) (*Event, error)
}

// StorageConfig selects the audit log backend.
type StorageConfig struct {
	Backend string // "memory" or "sqlite"
	Path    string // database file path, sqlite only
}
