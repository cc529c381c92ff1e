// Package notify turns a non-empty queue diff into a best-effort
// desktop notification and a structured in-process broadcast event.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/triagekit/triage/internal/types"
)

// EventTypeNewItems is the type field of the broadcast event
const EventTypeNewItems = "new_items"

// Event is the structured payload broadcast to connected clients when
// new items arrive.
type Event struct {
	Type        string       `json:"type"`
	Issues      []types.Item `json:"issues"`
	Discussions []types.Item `json:"discussions"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Notifier delivers an out-of-band notification to the human.
// Delivery is best-effort: callers swallow all errors.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Broadcaster fans an event out to in-process subscribers
type Broadcaster interface {
	Broadcast(event Event)
}

// Dispatcher implements queue.Dispatcher. The desktop notification
// attempt always completes (or fails) before the structured event is
// broadcast, so subscribers observe a deterministic ordering.
type Dispatcher struct {
	notifier    Notifier
	broadcaster Broadcaster
	logger      *slog.Logger
	clock       func() time.Time
}

// NewDispatcher creates a dispatcher. notifier may be nil to disable
// desktop notifications entirely.
func NewDispatcher(notifier Notifier, broadcaster Broadcaster, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger,
		clock:       time.Now,
	}
}

// Dispatch delivers the added items. Notification-channel failures are
// logged and swallowed; they never prevent the broadcast.
func (d *Dispatcher) Dispatch(ctx context.Context, added []types.Item) {
	if len(added) == 0 {
		return
	}

	var issues, discussions []types.Item
	for _, item := range added {
		switch item.Kind {
		case types.KindDiscussion:
			discussions = append(discussions, item)
		default:
			issues = append(issues, item)
		}
	}

	if d.notifier != nil {
		title, body := summarize(added)
		if err := d.notifier.Notify(ctx, title, body); err != nil {
			d.logger.Debug("desktop notification failed", "error", err)
		}
	}

	if d.broadcaster != nil {
		d.broadcaster.Broadcast(Event{
			Type:        EventTypeNewItems,
			Issues:      issues,
			Discussions: discussions,
			Timestamp:   d.clock().UTC(),
		})
	}
}

// summarize builds the notification title and body from the diff
func summarize(added []types.Item) (title, body string) {
	if len(added) == 1 {
		item := added[0]
		return fmt.Sprintf("New %s #%d", item.Kind, item.Number), item.Title
	}
	title = fmt.Sprintf("%d new items", len(added))
	body = added[0].Title
	if len(added) > 1 {
		body = fmt.Sprintf("%s (and %d more)", body, len(added)-1)
	}
	return title, body
}
