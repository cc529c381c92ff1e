// Package session composes the stream assembler with send/receive
// semantics over a duplex channel to the analysis service.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/triagekit/triage/internal/stream"
	"github.com/triagekit/triage/internal/types"
)

// ErrBusy is returned when a prompt is submitted while a turn is open
var ErrBusy = fmt.Errorf("analysis turn already in progress")

// ErrAuthRequired marks the distinguished analysis-service condition
// that should prompt re-authentication rather than a generic failure.
var ErrAuthRequired = fmt.Errorf("analysis service requires authentication")

// ErrDisconnected is returned when submitting over a closed channel
var ErrDisconnected = fmt.Errorf("analysis channel is not connected")

// Frame type values for outbound requests
const (
	FrameTypeCatchUp     = "catch_up"
	FrameTypeFollowUp    = "follow_up"
	FrameTypeQuickAction = "quick_action"
)

// CatchUpFrame asks the analysis service for an initial briefing
type CatchUpFrame struct {
	Type string `json:"type"`
}

// FollowUpFrame carries a free-text user prompt
type FollowUpFrame struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

// QuickActionFrame requests a canned action against one item
type QuickActionFrame struct {
	Type        string `json:"type"`
	Action      string `json:"action"`
	IssueNumber int    `json:"issueNumber"`
	Value       string `json:"value,omitempty"`
}

// Transport is the duplex channel to the analysis service. Events
// yields inbound stream events and is closed when the channel closes.
type Transport interface {
	Send(ctx context.Context, frame any) error
	Events() <-chan stream.Event
	Close() error
}

// Session wraps a stream.Assembler with connection lifecycle and typed
// request frames. It enforces the single-open-turn invariant by
// refusing submissions while a turn is streaming.
type Session struct {
	transport Transport
	asm       *stream.Assembler
	logger    *slog.Logger

	mu           sync.Mutex
	connected    bool
	authRequired bool
}

// New creates a session over the given transport. onUpdate observes
// streaming history mutations (may be nil).
func New(transport Transport, onUpdate stream.UpdateFunc, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		transport: transport,
		asm:       stream.NewAssembler(onUpdate),
		logger:    logger,
		connected: true,
	}
}

// Run consumes inbound events until the transport channel closes,
// dispatching each to the assembler. On close the session is marked
// disconnected; reconnection is the transport owner's concern.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.setConnected(false)
			return
		case event, ok := <-s.transport.Events():
			if !ok {
				s.setConnected(false)
				return
			}
			if ev, isErr := event.(stream.ErrorEvent); isErr && ev.AuthRequired {
				s.mu.Lock()
				s.authRequired = true
				s.mu.Unlock()
			}
			s.asm.HandleEvent(event)
		}
	}
}

// CatchUp submits the initial briefing request
func (s *Session) CatchUp(ctx context.Context) error {
	return s.submit(ctx, "Catch me up on the open queue.", CatchUpFrame{Type: FrameTypeCatchUp})
}

// SendMessage submits a free-text follow-up prompt
func (s *Session) SendMessage(ctx context.Context, text string) error {
	return s.submit(ctx, text, FollowUpFrame{Type: FrameTypeFollowUp, Prompt: text})
}

// QuickAction submits a canned action against one item. value is
// optional and action-specific (a label name, for instance).
func (s *Session) QuickAction(ctx context.Context, action string, issueNumber int, value string) error {
	display := fmt.Sprintf("%s #%d", action, issueNumber)
	if value != "" {
		display = fmt.Sprintf("%s #%d (%s)", action, issueNumber, value)
	}
	return s.submit(ctx, display, QuickActionFrame{
		Type:        FrameTypeQuickAction,
		Action:      action,
		IssueNumber: issueNumber,
		Value:       value,
	})
}

// submit appends the user entry, opens a turn, and transmits the
// frame. The three steps are serialized under s.mu so two callers
// cannot interleave a double-open.
func (s *Session) submit(ctx context.Context, userText string, frame any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrDisconnected
	}
	if s.asm.Open() {
		return ErrBusy
	}

	s.asm.AppendUser(userText)
	if _, err := s.asm.StartTurn(); err != nil {
		return err
	}

	if err := s.transport.Send(ctx, frame); err != nil {
		// The turn opened but nothing will stream; close it out with
		// a visible failure so the session does not wedge.
		s.asm.HandleEvent(stream.ErrorEvent{Message: err.Error()})
		return fmt.Errorf("send request frame: %w", err)
	}
	return nil
}

// History returns the ordered conversation history
func (s *Session) History() []types.Message {
	return s.asm.History()
}

// Loading reports whether a turn is currently streaming
func (s *Session) Loading() bool {
	return s.asm.Open()
}

// Connected reports whether the duplex channel is open
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// AuthRequired reports whether the analysis service demanded
// re-authentication during this session
func (s *Session) AuthRequired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authRequired
}

// Close closes the underlying transport
func (s *Session) Close() error {
	s.setConnected(false)
	return s.transport.Close()
}

func (s *Session) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}
