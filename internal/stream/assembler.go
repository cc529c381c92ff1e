package stream

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/triagekit/triage/internal/types"
)

// Phase is the assembler's position in a turn's lifecycle
type Phase int

const (
	// PhaseIdle means no turn is in progress
	PhaseIdle Phase = iota
	// PhaseOpen means a turn is streaming into the buffer
	PhaseOpen
	// PhaseFinalized means the last turn completed; starting a new
	// turn returns the assembler to Open
	PhaseFinalized
)

// ErrTurnInProgress is returned when a new turn is started while a
// buffer is still open. At most one buffer may be open at a time.
var ErrTurnInProgress = fmt.Errorf("a turn is already in progress")

// buffer accumulates one in-flight assistant message
type buffer struct {
	messageID string
	text      strings.Builder
	open      bool
}

// UpdateFunc observes every history mutation while a turn streams.
// The full message is passed each time (last-write-wins), not a patch.
type UpdateFunc func(msg types.Message)

// Assembler consumes the stream event union and maintains the ordered
// conversation history. One growing assistant entry is mutated in
// place per turn, bounded by explicit start/finalize transitions.
//
// All mutation is internally serialized; callers may feed events from
// a transport goroutine while reading history elsewhere.
type Assembler struct {
	mu       sync.Mutex
	phase    Phase
	buf      *buffer
	history  []types.Message
	onUpdate UpdateFunc
	clock    func() time.Time
}

// NewAssembler creates an idle assembler. onUpdate may be nil.
func NewAssembler(onUpdate UpdateFunc) *Assembler {
	return &Assembler{
		phase:    PhaseIdle,
		onUpdate: onUpdate,
		clock:    time.Now,
	}
}

// Phase returns the current lifecycle phase
func (a *Assembler) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Open reports whether a turn is currently streaming
func (a *Assembler) Open() bool {
	return a.Phase() == PhaseOpen
}

// AppendUser appends a user entry to the history and returns it
func (a *Assembler) AppendUser(content string) types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	msg := types.Message{
		ID:        uuid.New().String(),
		Role:      types.RoleUser,
		Content:   content,
		Timestamp: a.clock(),
	}
	a.history = append(a.history, msg)
	return msg
}

// StartTurn opens a fresh buffer and appends its placeholder assistant
// entry. Returns ErrTurnInProgress if a buffer is already open.
func (a *Assembler) StartTurn() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase == PhaseOpen {
		return "", ErrTurnInProgress
	}

	id := uuid.New().String()
	a.buf = &buffer{messageID: id, open: true}
	a.phase = PhaseOpen
	a.history = append(a.history, types.Message{
		ID:        id,
		Role:      types.RoleAssistant,
		Timestamp: a.clock(),
	})
	return id, nil
}

// HandleEvent applies one stream event to the open buffer. Events
// arriving while no turn is open are dropped: the turn already
// finalized and stragglers must not resurrect it.
func (a *Assembler) HandleEvent(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseOpen {
		return
	}

	switch ev := event.(type) {
	case DeltaEvent:
		a.appendLocked(ev.Text)

	case AssistantEvent:
		for _, block := range ev.Blocks {
			switch block.Type {
			case BlockText:
				a.appendLocked(block.Text)
			case BlockToolUse:
				a.appendLocked(toolMarker(block.ToolName))
			}
		}

	case ResultEvent:
		a.finalizeLocked()

	case ErrorEvent:
		// Finalize first so the partial output stays frozen, then
		// surface the failure as its own assistant entry.
		a.finalizeLocked()
		a.history = append(a.history, types.Message{
			ID:        uuid.New().String(),
			Role:      types.RoleAssistant,
			Content:   errorLine(ev.Message),
			Timestamp: a.clock(),
		})

	case SystemEvent, UnknownEvent:
		// No buffer mutation.
	}
}

// History returns a copy of the conversation history in order
func (a *Assembler) History() []types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.Message, len(a.history))
	copy(out, a.history)
	return out
}

// appendLocked grows the buffer and pushes the whole buffer content
// into the matching history entry. Caller holds a.mu.
func (a *Assembler) appendLocked(text string) {
	if text == "" {
		return
	}
	a.buf.text.WriteString(text)
	content := a.buf.text.String()

	for i := range a.history {
		if a.history[i].ID == a.buf.messageID {
			a.history[i].Content = content
			if a.onUpdate != nil {
				a.onUpdate(a.history[i])
			}
			return
		}
	}
}

// finalizeLocked closes the buffer and freezes the assistant entry.
// Caller holds a.mu.
func (a *Assembler) finalizeLocked() {
	a.buf.open = false
	a.buf = nil
	a.phase = PhaseFinalized
}

// toolMarker renders a tool invocation as a visible line in the buffer
func toolMarker(name string) string {
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("\n[using tool: %s]\n", name)
}

// errorLine renders a terminal failure as its own assistant entry
func errorLine(message string) string {
	if message == "" {
		message = "unknown error"
	}
	return fmt.Sprintf("Analysis failed: %s", message)
}
