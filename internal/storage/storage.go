// Package storage defines the persistence interface for conversation
// history and the label-mutation audit trail.
//
// Queue state is deliberately not persisted: the known set is rebuilt
// from the first poll after process start.
package storage

import (
	"context"
	"time"

	"github.com/triagekit/triage/internal/types"
)

// LabelEvent is one audit record of a label mutation
type LabelEvent struct {
	ID        int64      `json:"id"`
	Kind      types.Kind `json:"kind"`
	Number    int        `json:"number"`
	Label     string     `json:"label"`
	Action    string     `json:"action"` // "added" or "removed"
	Actor     string     `json:"actor"`
	CreatedAt time.Time  `json:"created_at"`
}

// Label event actions
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// Storage persists conversation turns and label audit events
type Storage interface {
	// SaveMessage appends one finalized conversation entry
	SaveMessage(ctx context.Context, msg types.Message) error
	// ListMessages returns the stored history in insertion order
	ListMessages(ctx context.Context, limit int) ([]types.Message, error)
	// RecordLabelEvent appends one label audit record
	RecordLabelEvent(ctx context.Context, event LabelEvent) error
	// ListLabelEvents returns recent audit records, newest first
	ListLabelEvents(ctx context.Context, limit int) ([]LabelEvent, error)
	// Close releases the underlying database
	Close() error
}
