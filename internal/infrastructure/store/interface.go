package store

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by Append when the aggregate was modified
// between the caller's read and write. Callers reload and retry.
var ErrVersionConflict = errors.New("aggregate version conflict")

// EventStoreInterface defines the interface for event stores.
//
// Append is conditional: it succeeds only when the aggregate's current
// version equals expectedVersion, and stores the event at expectedVersion+1.
// This gives every mutation atomic read-validate-append semantics per
// aggregate id.
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, expectedVersion int, data any) (*Event, error)
	GetEvents(aggregateID string) []Event
	GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) []Event
	GetAllEvents() []Event
	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
}
