package models

import (
	"encoding/json"
)

// StreamEventType identifies a delta frame sent over the chat websocket
type StreamEventType string

const (
	StreamEventTextDelta  StreamEventType = "text-delta"
	StreamEventToolCall   StreamEventType = "tool-call"
	StreamEventToolResult StreamEventType = "tool-result"
	StreamEventVenues     StreamEventType = "venues"
	StreamEventDone       StreamEventType = "done"
	StreamEventError      StreamEventType = "error"
)

// StreamEvent is one incremental update pushed to the client while a turn
// is in flight. MessageID scopes the event to a transcript message so the
// client can rebuild message and part boundaries.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	MessageID string          `json:"message_id,omitempty"`

	// Text delta payload
	Text string `json:"text,omitempty"`

	// Tool call / result payload
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     *ToolOutput     `json:"output,omitempty"`

	// Venue set payload, the full displayed set after a venue-bearing
	// tool result
	Venues []VenueSummary `json:"venues,omitempty"`

	// Error payload
	Error string `json:"error,omitempty"`
}
