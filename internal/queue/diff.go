// Package queue implements the live-queue synchronization pipeline:
// a known-set differ that detects newly arrived tracker items, and a
// poll scheduler that drives it on a configurable cadence.
//
// The differ is deliberately asymmetric: it reports additions only.
// Items that vanish from a snapshot silently drop out of tracking, and
// if they later reappear they count as new again. Triage only needs to
// answer "what's new", not "what changed".
package queue

import (
	"github.com/triagekit/triage/internal/types"
)

// IdentitySet builds the set of identities present in items
func IdentitySet(items []types.Item) map[types.Identity]struct{} {
	set := make(map[types.Identity]struct{}, len(items))
	for _, item := range items {
		set[item.Identity()] = struct{}{}
	}
	return set
}

// Diff returns the items whose identity is absent from known, in
// snapshot order. It never reports removals.
func Diff(known map[types.Identity]struct{}, items []types.Item) []types.Item {
	var added []types.Item
	for _, item := range items {
		if _, ok := known[item.Identity()]; !ok {
			added = append(added, item)
		}
	}
	return added
}
