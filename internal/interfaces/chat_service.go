package interfaces

import (
	"context"

	"github.com/ternarybob/locus/internal/models"
)

// StreamSink receives incremental updates while a chat turn is in flight.
// Implementations must tolerate being called from the turn's goroutine.
type StreamSink func(event models.StreamEvent)

// ChatService manages conversational venue search sessions
type ChatService interface {
	// StartSession creates a session bound to a search context and
	// returns its ID
	StartSession(ctx context.Context, searchCtx models.SearchContext) (string, error)

	// Turn runs one user turn through the agent loop, streaming deltas
	// to the sink. Blocks until the turn completes or the context is
	// cancelled. The completed assistant message is returned.
	//
	// Parameters:
	//   - ctx: Context bounding the whole turn
	//   - sessionID: Session the turn belongs to
	//   - text: The user's message
	//   - sink: Receiver for streaming events (may be nil)
	//
	// Returns:
	//   - *models.ChatMessage: The finished assistant message
	//   - error: Error if the session is unknown or the turn fails outright
	Turn(ctx context.Context, sessionID string, text string, sink StreamSink) (*models.ChatMessage, error)

	// Transcript returns the session's messages in order
	Transcript(ctx context.Context, sessionID string) ([]models.ChatMessage, error)

	// DisplayedVenues derives the current venue set from the session
	// transcript
	DisplayedVenues(ctx context.Context, sessionID string) ([]models.VenueSummary, error)

	// EndSession discards a session and its transcript
	EndSession(ctx context.Context, sessionID string) error

	// HealthCheck verifies the underlying model provider is reachable
	HealthCheck(ctx context.Context) error
}
