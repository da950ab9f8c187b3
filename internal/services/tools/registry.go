// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
)

// Tool bundles a tool's wire description with its executor. Execute is
// only called with input that passed the tool's own validation.
type Tool struct {
	Definition interfaces.ToolDefinition
	Execute    func(ctx context.Context, input []byte) (*models.ToolOutput, error)
}

// Registry holds the tool set offered to the agent and dispatches calls
// by name. Adding a tool is a table entry, not a switch arm.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger arbor.ILogger
}

// NewRegistry creates an empty tool registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry. Later registrations with the
// same name replace earlier ones.
func (r *Registry) Register(tool Tool) {
	if _, exists := r.tools[tool.Definition.Name]; !exists {
		r.order = append(r.order, tool.Definition.Name)
	}
	r.tools[tool.Definition.Name] = tool
}

// Definitions returns the tool descriptions in registration order,
// ready to offer to the model
func (r *Registry) Definitions() []interfaces.ToolDefinition {
	defs := make([]interfaces.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Execute runs one tool call. Unknown tools and validation failures come
// back as error-flagged outputs rather than Go errors, so the agent loop
// can hand them to the model as tool results.
func (r *Registry) Execute(ctx context.Context, call interfaces.ToolCall) *models.ToolOutput {
	startTime := time.Now()

	r.logger.Info().
		Str("tool", call.Name).
		Str("tool_call_id", call.ID).
		Msg("Executing tool")

	tool, ok := r.tools[call.Name]
	if !ok {
		r.logger.Warn().Str("tool", call.Name).Msg("Unknown tool requested")
		return &models.ToolOutput{
			Content: fmt.Sprintf("Error: unknown tool %q", call.Name),
			IsError: true,
		}
	}

	output, err := tool.Execute(ctx, call.Input)
	duration := time.Since(startTime)

	if err != nil {
		r.logger.Error().
			Err(err).
			Str("tool", call.Name).
			Str("tool_call_id", call.ID).
			Dur("duration", duration).
			Msg("Tool execution failed")

		return &models.ToolOutput{
			Content: fmt.Sprintf("Error executing tool: %v", err),
			IsError: true,
		}
	}

	r.logger.Debug().
		Str("tool", call.Name).
		Str("tool_call_id", call.ID).
		Dur("duration", duration).
		Int("venues", len(output.Venues)).
		Msg("Tool execution completed")

	return output
}
