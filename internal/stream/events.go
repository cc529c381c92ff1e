// Package stream reassembles an externally-streamed, multi-chunk
// analysis response into one coherent, incrementally-rendered
// assistant message.
//
// The analysis service emits newline-delimited JSON envelopes
// discriminated by a "type" field. ParseEvent converts each envelope
// into a member of a closed event union; the Assembler consumes that
// union and maintains the single growing text buffer for the turn.
package stream

import (
	"encoding/json"
	"fmt"
)

// Event is one decoded envelope from the analysis service. The union
// is sealed: only types in this package implement it, so switches over
// the concrete types are exhaustive.
type Event interface {
	isEvent()
}

// SystemEvent is a lifecycle/init envelope. Carries no renderable content.
type SystemEvent struct {
	Subtype string
}

// AssistantEvent is a message-level envelope carrying whole content blocks
type AssistantEvent struct {
	Blocks []Block
}

// BlockType discriminates assistant content blocks
type BlockType string

const (
	// BlockText is a plain text block
	BlockText BlockType = "text"
	// BlockToolUse marks a tool invocation by the analysis service
	BlockToolUse BlockType = "tool_use"
)

// Block is one content block within an assistant envelope
type Block struct {
	Type BlockType
	// Text is set for text blocks
	Text string
	// ToolName is set for tool_use blocks
	ToolName string
}

// DeltaEvent is an incremental text chunk for the in-progress message
type DeltaEvent struct {
	Text string
}

// ResultEvent terminates a turn successfully
type ResultEvent struct {
	Result string
}

// ErrorEvent terminates a turn with a failure. AuthRequired marks the
// distinguished subtype that should prompt re-authentication rather
// than a generic failure.
type ErrorEvent struct {
	Message      string
	AuthRequired bool
}

// UnknownEvent is any envelope with an unrecognized type. Handled as a
// forward-compatible no-op, never an error.
type UnknownEvent struct {
	Type string
}

func (SystemEvent) isEvent()    {}
func (AssistantEvent) isEvent() {}
func (DeltaEvent) isEvent()     {}
func (ResultEvent) isEvent()    {}
func (ErrorEvent) isEvent()     {}
func (UnknownEvent) isEvent()   {}

// envelope mirrors the wire shape far enough to dispatch on type.
// Message is raw because assistant envelopes carry an object there
// while error envelopes carry a plain string.
type envelope struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype"`
	Message json.RawMessage `json:"message"`

	// stream_event
	Event *struct {
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	} `json:"event"`

	// result / error
	IsError      bool   `json:"is_error"`
	Result       string `json:"result"`
	ErrorMessage string `json:"error"`
}

type assistantMessage struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
		Name string `json:"name"`
	} `json:"content"`
}

// ParseEvent decodes one JSON envelope into the event union. Only a
// malformed JSON document is an error; an unrecognized type field
// decodes to UnknownEvent.
func ParseEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode stream event: %w", err)
	}

	switch env.Type {
	case "system":
		return SystemEvent{Subtype: env.Subtype}, nil

	case "assistant":
		ev := AssistantEvent{}
		if len(env.Message) > 0 {
			var msg assistantMessage
			if err := json.Unmarshal(env.Message, &msg); err != nil {
				return nil, fmt.Errorf("decode assistant message: %w", err)
			}
			for _, block := range msg.Content {
				switch block.Type {
				case "text":
					ev.Blocks = append(ev.Blocks, Block{Type: BlockText, Text: block.Text})
				case "tool_use":
					ev.Blocks = append(ev.Blocks, Block{Type: BlockToolUse, ToolName: block.Name})
				}
			}
		}
		return ev, nil

	case "stream_event":
		if env.Event != nil && env.Event.Delta.Type == "text_delta" {
			return DeltaEvent{Text: env.Event.Delta.Text}, nil
		}
		// Other delta kinds carry nothing renderable.
		return UnknownEvent{Type: env.Type}, nil

	case "result":
		if env.IsError {
			return ErrorEvent{Message: env.Result}, nil
		}
		return ResultEvent{Result: env.Result}, nil

	case "error":
		msg := env.ErrorMessage
		if msg == "" && len(env.Message) > 0 {
			// message may be a bare string
			_ = json.Unmarshal(env.Message, &msg)
		}
		return ErrorEvent{
			Message:      msg,
			AuthRequired: env.Subtype == "auth_required",
		}, nil

	default:
		return UnknownEvent{Type: env.Type}, nil
	}
}
