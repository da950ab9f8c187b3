package models

import (
	"encoding/json"
	"time"
)

// MessageRole identifies the author of a transcript message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// PartType identifies the kind of a message part
type PartType string

const (
	PartTypeText     PartType = "text"
	PartTypeToolCall PartType = "tool_call"
)

// ToolCallState tracks the lifecycle of a tool invocation part.
// States only move forward: pending -> input-available -> output-available.
type ToolCallState string

const (
	ToolStatePending         ToolCallState = "pending"
	ToolStateInputAvailable  ToolCallState = "input-available"
	ToolStateOutputAvailable ToolCallState = "output-available"
)

// MessagePart is one ordered element of a chat message: either assistant
// text or a tool invocation with its state and (eventually) its result.
type MessagePart struct {
	Type PartType `json:"type"`

	// Text content, set when Type is text
	Text string `json:"text,omitempty"`

	// Tool invocation fields, set when Type is tool_call
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	State      ToolCallState   `json:"state,omitempty"`
	Output     *ToolOutput     `json:"output,omitempty"` // Immutable once set
}

// ToolOutput is the recorded result of a tool invocation. Content is the
// text rendering sent back to the model; Venues carries the structured
// payload the client-facing venue set is derived from.
type ToolOutput struct {
	Content string         `json:"content"`
	Venues  []VenueSummary `json:"venues,omitempty"`
	IsError bool           `json:"is_error,omitempty"`
}

// ChatMessage is one entry in a session transcript
type ChatMessage struct {
	ID        string        `json:"id"`
	Role      MessageRole   `json:"role"`
	Parts     []MessagePart `json:"parts"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewUserMessage builds a single-part user text message
func NewUserMessage(id, text string) ChatMessage {
	return ChatMessage{
		ID:        id,
		Role:      RoleUser,
		Parts:     []MessagePart{{Type: PartTypeText, Text: text}},
		CreatedAt: time.Now(),
	}
}

// TextContent concatenates the text parts of a message
func (m *ChatMessage) TextContent() string {
	out := ""
	for _, part := range m.Parts {
		if part.Type == PartTypeText {
			out += part.Text
		}
	}
	return out
}

// ToolResultCount returns the number of tool parts carrying a result
func (m *ChatMessage) ToolResultCount() int {
	count := 0
	for _, part := range m.Parts {
		if part.Type == PartTypeToolCall && part.State == ToolStateOutputAvailable {
			count++
		}
	}
	return count
}
