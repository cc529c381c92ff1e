package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/triagekit/triage/internal/types"
)

func item(kind types.Kind, number int) types.Item {
	return types.Item{
		Kind:      kind,
		Number:    number,
		Title:     "item",
		Author:    "someone",
		CreatedAt: time.Now(),
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		known    []types.Item
		snapshot []types.Item
		want     []int // expected numbers, in order
	}{
		{
			name:     "empty known set reports everything",
			known:    nil,
			snapshot: []types.Item{item(types.KindIssue, 1), item(types.KindIssue, 2)},
			want:     []int{1, 2},
		},
		{
			name:     "no changes",
			known:    []types.Item{item(types.KindIssue, 1)},
			snapshot: []types.Item{item(types.KindIssue, 1)},
			want:     nil,
		},
		{
			name:     "one addition",
			known:    []types.Item{item(types.KindIssue, 1), item(types.KindIssue, 2)},
			snapshot: []types.Item{item(types.KindIssue, 1), item(types.KindIssue, 2), item(types.KindIssue, 3)},
			want:     []int{3},
		},
		{
			name:     "removal is never reported",
			known:    []types.Item{item(types.KindIssue, 1), item(types.KindIssue, 2)},
			snapshot: []types.Item{item(types.KindIssue, 2)},
			want:     nil,
		},
		{
			name:     "result follows snapshot order",
			known:    []types.Item{item(types.KindIssue, 5)},
			snapshot: []types.Item{item(types.KindIssue, 9), item(types.KindIssue, 5), item(types.KindIssue, 3)},
			want:     []int{9, 3},
		},
		{
			name:     "same number different kind is a different identity",
			known:    []types.Item{item(types.KindIssue, 7)},
			snapshot: []types.Item{item(types.KindIssue, 7), item(types.KindDiscussion, 7)},
			want:     []int{7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added := Diff(IdentitySet(tt.known), tt.snapshot)

			var got []int
			for _, a := range added {
				got = append(got, a.Number)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentitySet(t *testing.T) {
	items := []types.Item{
		item(types.KindIssue, 1),
		item(types.KindDiscussion, 1),
		item(types.KindIssue, 1), // duplicate collapses
	}

	set := IdentitySet(items)
	assert.Len(t, set, 2)
	assert.Contains(t, set, types.Identity{Kind: types.KindIssue, Number: 1})
	assert.Contains(t, set, types.Identity{Kind: types.KindDiscussion, Number: 1})
}
