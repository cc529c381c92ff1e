// Package tracker adapts the external issue tracker: snapshot reads of
// open items for the queue pipeline, plus label CRUD for the triage UI.
package tracker

import (
	"context"

	"github.com/triagekit/triage/internal/config"
	"github.com/triagekit/triage/internal/types"
)

// Label is one label definition in the tracker
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Tracker is the full adapter surface. The queue pipeline only needs
// FetchSnapshot; label mutations are fire-and-forget from its
// perspective and exist for the CLI/UI boundary.
type Tracker interface {
	FetchSnapshot(ctx context.Context, filters config.Filters) (*types.Snapshot, error)
	ListLabels(ctx context.Context) ([]Label, error)
	AddLabel(ctx context.Context, number int, label string) error
	RemoveLabel(ctx context.Context, number int, label string) error
}
