package types

import (
	"fmt"
	"time"
)

// Kind identifies which tracker surface an item came from
type Kind string

const (
	// KindIssue is a repository issue
	KindIssue Kind = "issue"
	// KindDiscussion is a repository discussion
	KindDiscussion Kind = "discussion"
)

// IsValid checks if the kind is a known value
func (k Kind) IsValid() bool {
	switch k {
	case KindIssue, KindDiscussion:
		return true
	}
	return false
}

// Identity uniquely names a tracked item across snapshots.
// The tracker never reuses numbers within a kind, so (kind, number)
// is stable for the lifetime of the item.
type Identity struct {
	Kind   Kind `json:"kind"`
	Number int  `json:"number"`
}

// String returns a short human-readable form like "issue#42"
func (id Identity) String() string {
	return fmt.Sprintf("%s#%d", id.Kind, id.Number)
}

// Item is one open issue or discussion as observed in a snapshot
type Item struct {
	Kind      Kind      `json:"kind"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Labels    []string  `json:"labels"`
	URL       string    `json:"url"`
}

// Identity returns the item's stable identity key
func (i Item) Identity() Identity {
	return Identity{Kind: i.Kind, Number: i.Number}
}

// HasLabel reports whether the item currently carries the given label
func (i Item) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Snapshot is one full read of the tracker's open items.
// It is produced fresh on every poll and never mutated afterward.
type Snapshot struct {
	Issues      []Item `json:"issues"`
	Discussions []Item `json:"discussions"`
}

// Items returns all snapshot items in stable order: issues first,
// then discussions, each in the order the tracker returned them.
func (s *Snapshot) Items() []Item {
	items := make([]Item, 0, len(s.Issues)+len(s.Discussions))
	items = append(items, s.Issues...)
	items = append(items, s.Discussions...)
	return items
}

// Role identifies who authored a conversation entry
type Role string

const (
	// RoleUser is a human-authored entry
	RoleUser Role = "user"
	// RoleAssistant is an analysis-service-authored entry
	RoleAssistant Role = "assistant"
)

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one entry in a conversation history. The assistant entry
// for an in-flight turn is mutated in place (matched by ID) while the
// turn streams, then frozen at finalization.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks if the message has valid field values
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !m.Role.IsValid() {
		return fmt.Errorf("invalid role: %s", m.Role)
	}
	return nil
}
