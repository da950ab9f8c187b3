package chat

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/iter"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"github.com/ternarybob/locus/internal/services/tools"
	"github.com/ternarybob/locus/internal/services/venues"
)

// agentLoop drives one user turn: repeated model calls with tool
// execution in between, bounded by maxToolRounds. One turn produces one
// assistant message whose parts record the text and tool activity in
// arrival order.
type agentLoop struct {
	llm           interfaces.LLMService
	registry      *tools.Registry
	logger        arbor.ILogger
	maxToolRounds int
}

// run executes the loop. conversation is the model-facing message list
// including the system prompt and the new user text. transcript is the
// session history before this turn; it is only read, to derive venue set
// updates for streaming.
//
// Failures mid-turn return the partial assistant message alongside the
// error so already-streamed output is preserved.
func (l *agentLoop) run(ctx context.Context, conversation []interfaces.Message, transcript []models.ChatMessage, messageID string, sink interfaces.StreamSink) (*models.ChatMessage, error) {
	assistant := &models.ChatMessage{
		ID:        messageID,
		Role:      models.RoleAssistant,
		CreatedAt: time.Now(),
	}

	emit := func(event models.StreamEvent) {
		if sink != nil {
			event.MessageID = messageID
			sink(event)
		}
	}

	toolRounds := 0
	for {
		if toolRounds >= l.maxToolRounds {
			l.logger.Warn().
				Int("max_tool_rounds", l.maxToolRounds).
				Str("message_id", messageID).
				Msg("Tool round limit reached, terminating turn with partial output")
			break
		}

		completion, err := l.llm.StreamChatWithTools(ctx, conversation, l.registry.Definitions(), func(delta string) {
			emit(models.StreamEvent{Type: models.StreamEventTextDelta, Text: delta})
		})
		if err != nil {
			return assistant, err
		}

		if completion.Text != "" {
			assistant.Parts = append(assistant.Parts, models.MessagePart{
				Type: models.PartTypeText,
				Text: completion.Text,
			})
		}

		if len(completion.ToolCalls) == 0 {
			break
		}

		// Record the calls before dispatch so part ordering matches the
		// model's output
		partIndex := len(assistant.Parts)
		for _, call := range completion.ToolCalls {
			assistant.Parts = append(assistant.Parts, models.MessagePart{
				Type:       models.PartTypeToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      call.Input,
				State:      models.ToolStateInputAvailable,
			})
			emit(models.StreamEvent{
				Type:       models.StreamEventToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      call.Input,
			})
		}

		// Calls within one round run concurrently; results come back in
		// call order
		outputs := iter.Map(completion.ToolCalls, func(call *interfaces.ToolCall) *models.ToolOutput {
			return l.registry.Execute(ctx, *call)
		})

		results := make([]interfaces.ToolResult, 0, len(completion.ToolCalls))
		venuesChanged := false
		for i, call := range completion.ToolCalls {
			output := outputs[i]
			part := &assistant.Parts[partIndex+i]
			part.Output = output
			part.State = models.ToolStateOutputAvailable

			results = append(results, interfaces.ToolResult{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Content:    output.Content,
				IsError:    output.IsError,
			})
			emit(models.StreamEvent{
				Type:       models.StreamEventToolResult,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Output:     output,
			})
			if output.Venues != nil {
				venuesChanged = true
			}
		}

		if venuesChanged {
			emit(models.StreamEvent{
				Type:   models.StreamEventVenues,
				Venues: currentVenueSet(transcript, assistant),
			})
		}

		conversation = append(conversation, interfaces.Message{
			Role:      "assistant",
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		})
		conversation = append(conversation, interfaces.Message{
			Role:        "user",
			ToolResults: results,
		})
		toolRounds++
	}

	return assistant, nil
}

// currentVenueSet derives the displayed venue set from the committed
// transcript plus the in-flight assistant message
func currentVenueSet(transcript []models.ChatMessage, inFlight *models.ChatMessage) []models.VenueSummary {
	combined := make([]models.ChatMessage, 0, len(transcript)+1)
	combined = append(combined, transcript...)
	combined = append(combined, *inFlight)
	return venues.Reduce(combined)
}

// convertTranscript flattens transcript messages into the model-facing
// message format. An assistant message whose parts interleave text and
// tool activity expands into alternating assistant tool-call messages and
// user tool-result messages, preserving part order.
func convertTranscript(transcript []models.ChatMessage) []interfaces.Message {
	var out []interfaces.Message

	for _, msg := range transcript {
		if msg.Role == models.RoleUser {
			out = append(out, interfaces.Message{Role: "user", Content: msg.TextContent()})
			continue
		}

		var pendingText string
		var pendingCalls []interfaces.ToolCall
		var pendingResults []interfaces.ToolResult

		flush := func() {
			if pendingText == "" && len(pendingCalls) == 0 {
				return
			}
			out = append(out, interfaces.Message{
				Role:      "assistant",
				Content:   pendingText,
				ToolCalls: pendingCalls,
			})
			if len(pendingResults) > 0 {
				out = append(out, interfaces.Message{
					Role:        "user",
					ToolResults: pendingResults,
				})
			}
			pendingText = ""
			pendingCalls = nil
			pendingResults = nil
		}

		for _, part := range msg.Parts {
			switch part.Type {
			case models.PartTypeText:
				// Text after tool activity starts a new model round
				if len(pendingCalls) > 0 {
					flush()
				}
				pendingText += part.Text
			case models.PartTypeToolCall:
				pendingCalls = append(pendingCalls, interfaces.ToolCall{
					ID:    part.ToolCallID,
					Name:  part.ToolName,
					Input: part.Input,
				})
				if part.Output != nil {
					pendingResults = append(pendingResults, interfaces.ToolResult{
						ToolCallID: part.ToolCallID,
						ToolName:   part.ToolName,
						Content:    part.Output.Content,
						IsError:    part.Output.IsError,
					})
				}
			}
		}
		flush()
	}

	return out
}
