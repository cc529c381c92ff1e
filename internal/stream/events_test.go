package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Event
	}{
		{
			name: "system init",
			json: `{"type":"system","subtype":"init"}`,
			want: SystemEvent{Subtype: "init"},
		},
		{
			name: "text delta",
			json: `{"type":"stream_event","event":{"delta":{"type":"text_delta","text":"Hello "}}}`,
			want: DeltaEvent{Text: "Hello "},
		},
		{
			name: "non-text delta is a no-op event",
			json: `{"type":"stream_event","event":{"delta":{"type":"input_json_delta","partial_json":"{"}}}`,
			want: UnknownEvent{Type: "stream_event"},
		},
		{
			name: "assistant message with text and tool use",
			json: `{"type":"assistant","message":{"content":[{"type":"text","text":"Looking..."},{"type":"tool_use","name":"search","input":{}}]}}`,
			want: AssistantEvent{Blocks: []Block{
				{Type: BlockText, Text: "Looking..."},
				{Type: BlockToolUse, ToolName: "search"},
			}},
		},
		{
			name: "result success",
			json: `{"type":"result","result":"done"}`,
			want: ResultEvent{Result: "done"},
		},
		{
			name: "result carrying an error",
			json: `{"type":"result","is_error":true,"result":"rate limited"}`,
			want: ErrorEvent{Message: "rate limited"},
		},
		{
			name: "error with message string",
			json: `{"type":"error","message":"boom"}`,
			want: ErrorEvent{Message: "boom"},
		},
		{
			name: "error with error field",
			json: `{"type":"error","error":"boom"}`,
			want: ErrorEvent{Message: "boom"},
		},
		{
			name: "auth required error",
			json: `{"type":"error","subtype":"auth_required","message":"please log in"}`,
			want: ErrorEvent{Message: "please log in", AuthRequired: true},
		},
		{
			name: "unknown type is forward-compatible",
			json: `{"type":"telemetry","data":{"x":1}}`,
			want: UnknownEvent{Type: "telemetry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{not json`))
	assert.Error(t, err)
}
