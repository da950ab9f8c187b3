// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
)

// ClaudeService implements the LLMService interface using the Anthropic
// Claude API with native tool use
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    *anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// NewClaudeService creates a new Claude LLM service instance.
//
// Initialization resolves the Anthropic API key (environment -> KV store
// -> config), applies model and token defaults, and builds the client.
func NewClaudeService(claudeConfig *common.ClaudeConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*ClaudeService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "anthropic_api_key", claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required for Claude service (set via ANTHROPIC_API_KEY, LOCUS_CLAUDE_API_KEY, or claude.api_key in config): %w", err)
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-haiku-3-5-20241022"
	}

	timeout := common.ParseDuration(claudeConfig.Timeout, 2*time.Minute)

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    &client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude LLM service initialized successfully")

	return service, nil
}

// buildParams assembles the request parameters shared by the streaming
// and non-streaming paths
func (s *ClaudeService) buildParams(messages []interfaces.Message, tools []interfaces.ToolDefinition) (anthropic.MessageNewParams, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(s.config.Model),
		MaxTokens:   int64(s.maxTokens),
		Messages:    claudeMessages,
		Temperature: anthropic.Float(float64(s.config.Temperature)),
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	if len(tools) > 0 {
		params.Tools = make([]anthropic.ToolUnionParam, len(tools))
		for i, tool := range tools {
			toolParam := anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: convertSchemaToClaude(tool.InputSchema),
			}
			params.Tools[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
		}
	}

	return params, nil
}

// ChatWithTools generates one completion offering the given tools
func (s *ClaudeService) ChatWithTools(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition) (*interfaces.Completion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params, err := s.buildParams(messages, tools)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, fmt.Errorf("claude completion failed: %w", err)
	}

	completion := convertClaudeResponse(resp)

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("tool_calls", len(completion.ToolCalls)).
		Str("stop_reason", completion.StopReason).
		Dur("duration", time.Since(startTime)).
		Msg("Claude chat completion completed")

	return completion, nil
}

// StreamChatWithTools generates a completion while delivering text deltas
// through onText as they arrive
func (s *ClaudeService) StreamChatWithTools(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition, onText func(delta string)) (*interfaces.Completion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty for chat completion")
	}
	if onText == nil {
		return s.ChatWithTools(ctx, messages, tools)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params, err := s.buildParams(messages, tools)
	if err != nil {
		return nil, err
	}

	stream := s.client.Messages.NewStreaming(timeoutCtx, params)
	message := anthropic.Message{}

	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("failed to accumulate stream event: %w", err)
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text != "" {
					onText(deltaVariant.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("claude streaming failed: %w", err)
	}

	return convertClaudeResponse(&message), nil
}

// HealthCheck verifies the Claude API is reachable with a minimal probe
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Claude LLM service health check")

	if s.client == nil {
		return fmt.Errorf("Claude client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	completion, err := s.ChatWithTools(healthCheckCtx, []interfaces.Message{
		{Role: "user", Content: "ping"},
	}, nil)
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}
	if strings.TrimSpace(completion.Text) == "" {
		return fmt.Errorf("Claude probe returned empty response")
	}

	s.logger.Debug().
		Str("model", s.config.Model).
		Msg("Claude LLM service health check passed")

	return nil
}

// GetMode returns the operational mode of the service
func (s *ClaudeService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// Close releases resources held by the service
func (s *ClaudeService) Close() error {
	s.client = nil
	return nil
}

// convertMessagesToClaude converts []interfaces.Message to Claude
// MessageParam format. System messages are extracted for the System
// parameter; assistant tool calls become tool_use blocks and tool
// results become user-role tool_result blocks.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}

		case "assistant":
			var contentItems []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				contentItems = append(contentItems, anthropic.ContentBlockParamUnion{
					OfText: &anthropic.TextBlockParam{Text: msg.Content},
				})
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Input
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				contentItems = append(contentItems, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						Type:  "tool_use",
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			if len(contentItems) == 0 {
				continue
			}
			claudeMessages = append(claudeMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: contentItems,
			})

		case "user":
			if len(msg.ToolResults) > 0 {
				var contentItems []anthropic.ContentBlockParamUnion
				for _, tr := range msg.ToolResults {
					contentItems = append(contentItems, anthropic.ContentBlockParamUnion{
						OfToolResult: &anthropic.ToolResultBlockParam{
							ToolUseID: tr.ToolCallID,
							IsError:   anthropic.Bool(tr.IsError),
							Content: []anthropic.ToolResultBlockParamContentUnion{{
								OfText: &anthropic.TextBlockParam{Text: tr.Content},
							}},
						},
					})
				}
				claudeMessages = append(claudeMessages, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleUser,
					Content: contentItems,
				})
				continue
			}
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))

		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	if len(claudeMessages) == 0 {
		return nil, "", fmt.Errorf("no user or assistant messages to send")
	}

	return claudeMessages, systemText, nil
}

// convertSchemaToClaude maps a JSON schema object into the SDK's input
// schema parameter
func convertSchemaToClaude(schema map[string]interface{}) anthropic.ToolInputSchemaParam {
	param := anthropic.ToolInputSchemaParam{
		Properties: map[string]interface{}{},
	}
	if schema == nil {
		return param
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		param.Properties = props
	}
	if required, ok := schema["required"].([]string); ok {
		param.Required = required
	} else if requiredAny, ok := schema["required"].([]interface{}); ok {
		for _, r := range requiredAny {
			if name, ok := r.(string); ok {
				param.Required = append(param.Required, name)
			}
		}
	}
	return param
}

// convertClaudeResponse maps a provider message into a Completion
func convertClaudeResponse(resp *anthropic.Message) *interfaces.Completion {
	completion := &interfaces.Completion{
		StopReason: string(resp.StopReason),
	}

	for _, content := range resp.Content {
		switch block := content.AsAny().(type) {
		case anthropic.TextBlock:
			completion.Text += block.Text
		case anthropic.ToolUseBlock:
			completion.ToolCalls = append(completion.ToolCalls, interfaces.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: json.RawMessage(block.Input),
			})
		}
	}

	return completion
}
