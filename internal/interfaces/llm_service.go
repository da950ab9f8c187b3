package interfaces

import (
	"context"
	"encoding/json"
)

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeOffline indicates the service uses local/offline LLM models
	LLMModeOffline LLMMode = "offline"
)

// Message represents a single message in a model conversation. Messages
// carrying tool activity reference the structured fields; plain exchanges
// use Content only.
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string

	// ToolCalls carries the tool invocations an assistant message requested
	ToolCalls []ToolCall

	// ToolResults carries results being returned for earlier tool calls
	ToolResults []ToolResult
}

// ToolDefinition describes a tool offered to the model
type ToolDefinition struct {
	// Name is the identifier the model uses to invoke the tool
	Name string

	// Description tells the model what the tool does and when to use it
	Description string

	// InputSchema is the JSON schema for the tool's input object
	InputSchema map[string]interface{}
}

// ToolCall is a tool invocation requested by the model
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult is the outcome of executing a requested tool call. ToolName
// carries the tool's name for providers that key results by function name
// rather than call ID.
type ToolResult struct {
	ToolCallID string
	ToolName   string
	Content    string
	IsError    bool
}

// Completion is one model response, possibly containing tool calls
type Completion struct {
	// Text is the assistant text emitted before or instead of tool calls
	Text string

	// ToolCalls lists the tool invocations the model requested this step.
	// Empty means the model produced a final answer.
	ToolCalls []ToolCall

	// StopReason is the provider's termination reason ("end_turn",
	// "tool_use", "max_tokens", ...)
	StopReason string
}

// LLMService defines the interface for tool-capable language model
// operations. Implementations wrap a specific provider API.
type LLMService interface {
	// ChatWithTools generates one completion for the conversation,
	// offering the given tools. The returned completion may contain tool
	// calls the caller must execute and feed back as tool results.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - messages: Conversation history in chronological order
	//   - tools: Tools the model may invoke (may be empty)
	//
	// Returns:
	//   - *Completion: Model response with text and/or tool calls
	//   - error: Error if the provider call fails
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error)

	// StreamChatWithTools behaves like ChatWithTools but delivers text
	// deltas through onText as they arrive. The completion returned at
	// the end carries the accumulated text and any tool calls.
	// Implementations without true streaming may emit the final text as
	// a single delta.
	StreamChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, onText func(delta string)) (*Completion, error)

	// HealthCheck verifies the LLM service is operational and can handle
	// requests. For cloud services this checks API connectivity and
	// authentication.
	HealthCheck(ctx context.Context) error

	// GetMode returns the current operational mode of the LLM service
	GetMode() LLMMode

	// Close releases resources and performs cleanup operations
	Close() error
}
