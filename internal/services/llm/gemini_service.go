package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiService implements the LLMService interface using the Google
// Gemini API with function calling.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiService creates a new Gemini LLM service instance.
//
// The service initialization includes:
//  1. Resolving the Google API key from KV storage with config fallback
//  2. Setting the default model name if not specified
//  3. Parsing timeout duration from configuration
//  4. Initializing the genai client against the Gemini API backend
func NewGeminiService(geminiConfig *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Google API key is required for Gemini service (set via LOCUS_GEMINI_API_KEY or gemini.api_key in config): %w", err)
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-3-flash-preview"
	}

	timeout := common.ParseDuration(geminiConfig.Timeout, 2*time.Minute)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized successfully")

	return service, nil
}

// ChatWithTools generates one completion offering the given tools
func (s *GeminiService) ChatWithTools(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition) (*interfaces.Completion, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	if len(tools) > 0 {
		geminiTools, err := convertToolsToGemini(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tool definitions: %w", err)
		}
		config.Tools = geminiTools
	}

	startTime := time.Now()
	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("chat generation failed: %w", err)
	}

	completion, err := convertGeminiResponse(resp)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("tool_calls", len(completion.ToolCalls)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini chat completion completed")

	return completion, nil
}

// StreamChatWithTools generates a completion and emits the final text as a
// single delta. The Gemini path does not stream token-by-token; callers
// still receive the full text through onText before the completion returns.
func (s *GeminiService) StreamChatWithTools(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition, onText func(delta string)) (*interfaces.Completion, error) {
	completion, err := s.ChatWithTools(ctx, messages, tools)
	if err != nil {
		return nil, err
	}
	if onText != nil && completion.Text != "" {
		onText(completion.Text)
	}
	return completion, nil
}

// HealthCheck verifies the Gemini API is reachable with a minimal probe
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Gemini LLM service health check")

	if s.client == nil {
		return fmt.Errorf("Gemini client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	completion, err := s.ChatWithTools(healthCheckCtx, []interfaces.Message{
		{Role: "user", Content: "ping"},
	}, nil)
	if err != nil {
		return fmt.Errorf("Gemini health check failed: %w", err)
	}
	if strings.TrimSpace(completion.Text) == "" {
		return fmt.Errorf("Gemini probe returned empty response")
	}

	s.logger.Debug().
		Str("model", s.config.Model).
		Msg("Gemini LLM service health check passed")

	return nil
}

// GetMode returns the operational mode of the service
func (s *GeminiService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// Close releases resources held by the service. The genai.Client doesn't
// require explicit cleanup.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. System messages are extracted separately for SystemInstruction;
// assistant tool calls become FunctionCall parts and tool results become
// user-role FunctionResponse parts.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string

	// Function responses carry the tool name, which Gemini keys results by
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		default:
			geminiRole = genai.RoleUser
		}

		var parts []*genai.Part
		if len(msg.ToolResults) > 0 {
			for _, tr := range msg.ToolResults {
				response := map[string]any{"result": tr.Content}
				if tr.IsError {
					response = map[string]any{"error": tr.Content}
				}
				parts = append(parts, genai.NewPartFromFunctionResponse(tr.ToolName, response))
			}
		} else {
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				if len(tc.Input) > 0 {
					if err := json.Unmarshal(tc.Input, &args); err != nil {
						return nil, "", fmt.Errorf("failed to decode tool call input for '%s': %w", tc.Name, err)
					}
				}
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, args))
			}
		}
		if len(parts) == 0 {
			continue
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: parts,
		})
	}

	if len(contents) == 0 {
		return nil, "", fmt.Errorf("no user or assistant messages to send")
	}

	return contents, systemText, nil
}

// convertToolsToGemini converts tool definitions into Gemini function
// declarations
func convertToolsToGemini(tools []interfaces.ToolDefinition) ([]*genai.Tool, error) {
	funcDecls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		schema, err := convertToGenaiSchema(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to convert schema for tool '%s': %w", tool.Name, err)
		}
		funcDecls = append(funcDecls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}, nil
}

// convertGeminiResponse maps a provider response into a Completion
func convertGeminiResponse(resp *genai.GenerateContentResponse) (*interfaces.Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response generated from chat model")
	}

	completion := &interfaces.Completion{
		StopReason: "end_turn",
	}

	candidate := resp.Candidates[0]
	for i, part := range candidate.Content.Parts {
		if part.Text != "" {
			completion.Text += part.Text
		}
		if part.FunctionCall != nil {
			input, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to encode function call args for '%s': %w", part.FunctionCall.Name, err)
			}
			callID := part.FunctionCall.ID
			if callID == "" {
				callID = fmt.Sprintf("call_%s_%d", part.FunctionCall.Name, i)
			}
			completion.ToolCalls = append(completion.ToolCalls, interfaces.ToolCall{
				ID:    callID,
				Name:  part.FunctionCall.Name,
				Input: input,
			})
		}
	}

	if len(completion.ToolCalls) > 0 {
		completion.StopReason = "tool_use"
	}

	return completion, nil
}

// convertToGenaiSchema converts a map[string]interface{} representation of
// a JSON schema to a genai.Schema structure
func convertToGenaiSchema(schemaMap map[string]interface{}) (*genai.Schema, error) {
	if len(schemaMap) == 0 {
		return nil, nil
	}

	schema := &genai.Schema{}

	if typeStr, ok := schemaMap["type"].(string); ok {
		switch strings.ToLower(typeStr) {
		case "object":
			schema.Type = genai.TypeObject
		case "array":
			schema.Type = genai.TypeArray
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		}
	}

	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}

	if enumVals, ok := schemaMap["enum"].([]interface{}); ok {
		for _, v := range enumVals {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	} else if enumVals, ok := schemaMap["enum"].([]string); ok {
		schema.Enum = enumVals
	}

	if reqVals, ok := schemaMap["required"].([]interface{}); ok {
		for _, v := range reqVals {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	} else if reqVals, ok := schemaMap["required"].([]string); ok {
		schema.Required = reqVals
	}

	if minVal, ok := schemaMap["minimum"].(int64); ok {
		f := float64(minVal)
		schema.Minimum = &f
	} else if minVal, ok := schemaMap["minimum"].(float64); ok {
		schema.Minimum = &minVal
	}
	if maxVal, ok := schemaMap["maximum"].(int64); ok {
		f := float64(maxVal)
		schema.Maximum = &f
	} else if maxVal, ok := schemaMap["maximum"].(float64); ok {
		schema.Maximum = &maxVal
	}

	if itemsMap, ok := schemaMap["items"].(map[string]interface{}); ok {
		itemSchema, err := convertToGenaiSchema(itemsMap)
		if err != nil {
			return nil, fmt.Errorf("failed to convert items schema: %w", err)
		}
		schema.Items = itemSchema
	}

	if propsMap, ok := schemaMap["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for propName, propVal := range propsMap {
			if propMap, ok := propVal.(map[string]interface{}); ok {
				propSchema, err := convertToGenaiSchema(propMap)
				if err != nil {
					return nil, fmt.Errorf("failed to convert property '%s': %w", propName, err)
				}
				schema.Properties[propName] = propSchema
			}
		}
	}

	return schema, nil
}
