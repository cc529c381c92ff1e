package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagekit/triage/internal/storage"
	"github.com/triagekit/triage/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func msg(id, content string, role types.Role) types.Message {
	return types.Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func TestSaveAndListMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, msg("u1", "what's new?", types.RoleUser)))
	require.NoError(t, store.SaveMessage(ctx, msg("a1", "three new issues", types.RoleAssistant)))
	require.NoError(t, store.SaveMessage(ctx, msg("u2", "label them", types.RoleUser)))

	messages, err := store.ListMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "u1", messages[0].ID)
	assert.Equal(t, "a1", messages[1].ID)
	assert.Equal(t, "u2", messages[2].ID)
	assert.Equal(t, types.RoleAssistant, messages[1].Role)
	assert.Equal(t, "three new issues", messages[1].Content)
}

func TestListMessagesLimitKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, msg("m1", "one", types.RoleUser)))
	require.NoError(t, store.SaveMessage(ctx, msg("m2", "two", types.RoleAssistant)))
	require.NoError(t, store.SaveMessage(ctx, msg("m3", "three", types.RoleUser)))

	messages, err := store.ListMessages(ctx, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Most recent two, still in chronological order.
	assert.Equal(t, "m2", messages[0].ID)
	assert.Equal(t, "m3", messages[1].ID)
}

func TestSaveMessageRejectsInvalid(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveMessage(context.Background(), types.Message{Role: types.RoleUser})
	assert.ErrorContains(t, err, "id is required")

	err = store.SaveMessage(context.Background(), types.Message{ID: "x", Role: "robot"})
	assert.ErrorContains(t, err, "invalid role")
}

func TestLabelEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordLabelEvent(ctx, storage.LabelEvent{
		Kind: types.KindIssue, Number: 42, Label: "bug",
		Action: storage.ActionAdded, Actor: "alice",
	}))
	require.NoError(t, store.RecordLabelEvent(ctx, storage.LabelEvent{
		Kind: types.KindIssue, Number: 42, Label: "bug",
		Action: storage.ActionRemoved, Actor: "bob",
	}))

	events, err := store.ListLabelEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, storage.ActionRemoved, events[0].Action)
	assert.Equal(t, "bob", events[0].Actor)
	assert.Equal(t, storage.ActionAdded, events[1].Action)
	assert.Equal(t, 42, events[1].Number)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestRecordLabelEventRejectsUnknownAction(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordLabelEvent(context.Background(), storage.LabelEvent{
		Kind: types.KindIssue, Number: 1, Label: "x", Action: "renamed", Actor: "a",
	})
	assert.ErrorContains(t, err, "invalid label event action")
}
