package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagekit/triage/internal/types"
)

func startTurn(t *testing.T, a *Assembler) string {
	t.Helper()
	id, err := a.StartTurn()
	require.NoError(t, err)
	return id
}

func assistantByID(t *testing.T, a *Assembler, id string) types.Message {
	t.Helper()
	for _, msg := range a.History() {
		if msg.ID == id {
			return msg
		}
	}
	t.Fatalf("message %s not in history", id)
	return types.Message{}
}

func TestStreamReconstruction(t *testing.T) {
	a := NewAssembler(nil)
	id := startTurn(t, a)

	a.HandleEvent(DeltaEvent{Text: "Hello "})
	a.HandleEvent(DeltaEvent{Text: "world"})
	a.HandleEvent(ResultEvent{})

	history := a.History()
	require.Len(t, history, 1)
	assert.Equal(t, "Hello world", history[0].Content)
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, types.RoleAssistant, history[0].Role)
	assert.Equal(t, PhaseFinalized, a.Phase())
}

func TestToolMarkerInterleaving(t *testing.T) {
	a := NewAssembler(nil)
	id := startTurn(t, a)

	a.HandleEvent(DeltaEvent{Text: "A"})
	a.HandleEvent(AssistantEvent{Blocks: []Block{{Type: BlockToolUse, ToolName: "search"}}})
	a.HandleEvent(DeltaEvent{Text: "B"})
	a.HandleEvent(ResultEvent{})

	content := assistantByID(t, a, id).Content
	posA := strings.Index(content, "A")
	posTool := strings.Index(content, "search")
	posB := strings.LastIndex(content, "B")
	require.NotEqual(t, -1, posTool, "marker must reference the tool name")
	assert.Less(t, posA, posTool)
	assert.Less(t, posTool, posB)
	require.Len(t, a.History(), 1)
}

func TestErrorPreservesPartialOutput(t *testing.T) {
	a := NewAssembler(nil)
	id := startTurn(t, a)

	a.HandleEvent(DeltaEvent{Text: "partial "})
	a.HandleEvent(ErrorEvent{Message: "boom"})

	history := a.History()
	require.Len(t, history, 2, "error appends a separate entry")
	assert.Equal(t, "partial ", assistantByID(t, a, id).Content)
	assert.Contains(t, history[1].Content, "boom")
	assert.NotEqual(t, id, history[1].ID)
	assert.Equal(t, PhaseFinalized, a.Phase())
}

func TestSystemAndUnknownEventsAreNoOps(t *testing.T) {
	a := NewAssembler(nil)
	id := startTurn(t, a)

	a.HandleEvent(SystemEvent{Subtype: "init"})
	a.HandleEvent(UnknownEvent{Type: "telemetry"})
	a.HandleEvent(DeltaEvent{Text: "x"})

	assert.Equal(t, "x", assistantByID(t, a, id).Content)
	assert.Equal(t, PhaseOpen, a.Phase())
}

func TestSecondTurnRejectedWhileOpen(t *testing.T) {
	a := NewAssembler(nil)
	startTurn(t, a)

	_, err := a.StartTurn()
	assert.ErrorIs(t, err, ErrTurnInProgress)
}

func TestNewTurnAllowedAfterFinalize(t *testing.T) {
	a := NewAssembler(nil)
	first := startTurn(t, a)
	a.HandleEvent(ResultEvent{})

	second := startTurn(t, a)
	assert.NotEqual(t, first, second, "each turn gets a fresh buffer")

	a.HandleEvent(DeltaEvent{Text: "round two"})
	assert.Equal(t, "", assistantByID(t, a, first).Content)
	assert.Equal(t, "round two", assistantByID(t, a, second).Content)
}

func TestEventsAfterFinalizeAreDropped(t *testing.T) {
	a := NewAssembler(nil)
	id := startTurn(t, a)

	a.HandleEvent(DeltaEvent{Text: "done"})
	a.HandleEvent(ResultEvent{})
	a.HandleEvent(DeltaEvent{Text: " straggler"})

	assert.Equal(t, "done", assistantByID(t, a, id).Content)
}

func TestAppendUserKeepsOrder(t *testing.T) {
	a := NewAssembler(nil)

	user := a.AppendUser("what's new?")
	id := startTurn(t, a)
	a.HandleEvent(DeltaEvent{Text: "nothing"})
	a.HandleEvent(ResultEvent{})

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, user.ID, history[0].ID)
	assert.Equal(t, types.RoleUser, history[0].Role)
	assert.Equal(t, id, history[1].ID)
}

func TestOnUpdateReceivesGrowingBuffer(t *testing.T) {
	var updates []string
	a := NewAssembler(func(msg types.Message) {
		updates = append(updates, msg.Content)
	})
	startTurn(t, a)

	a.HandleEvent(DeltaEvent{Text: "a"})
	a.HandleEvent(DeltaEvent{Text: "b"})
	a.HandleEvent(ResultEvent{})

	assert.Equal(t, []string{"a", "ab"}, updates, "each update carries the whole buffer")
}
