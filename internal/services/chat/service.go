// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"github.com/ternarybob/locus/internal/services/tools"
	"github.com/ternarybob/locus/internal/services/venues"
)

// session is one conversation: an immutable search context, a per-session
// tool registry bound to that context, and the growing transcript.
type session struct {
	id           string
	searchCtx    models.SearchContext
	systemPrompt string
	registry     *tools.Registry
	transcript   []models.ChatMessage

	// Serializes turns; a session is a single logical flow
	mu sync.Mutex
}

// Service implements the ChatService interface. Sessions are held in
// memory; venue data they produce is persisted through the venue service.
type Service struct {
	config       *common.Config
	logger       arbor.ILogger
	llm          interfaces.LLMService
	places       interfaces.PlacesService
	venueService *venues.Service

	sessions map[string]*session
	mu       sync.RWMutex
}

// NewService creates the chat service
func NewService(
	config *common.Config,
	llmService interfaces.LLMService,
	placesService interfaces.PlacesService,
	venueService *venues.Service,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:       config,
		logger:       logger,
		llm:          llmService,
		places:       placesService,
		venueService: venueService,
		sessions:     make(map[string]*session),
	}
}

// StartSession creates a session bound to a search context and returns
// its ID. The context's radius defaults from configuration when omitted.
func (s *Service) StartSession(ctx context.Context, searchCtx models.SearchContext) (string, error) {
	if searchCtx.Latitude < -90 || searchCtx.Latitude > 90 {
		return "", fmt.Errorf("invalid latitude %.6f: must be between -90 and 90", searchCtx.Latitude)
	}
	if searchCtx.Longitude < -180 || searchCtx.Longitude > 180 {
		return "", fmt.Errorf("invalid longitude %.6f: must be between -180 and 180", searchCtx.Longitude)
	}
	if searchCtx.RadiusKm <= 0 {
		searchCtx.RadiusKm = s.config.Chat.DefaultRadiusKm
	}

	registry := tools.NewRegistry(s.logger)
	toolSet := tools.NewVenueToolSet(s.places, s.venueService, searchCtx, s.logger)
	toolSet.RegisterAll(registry)

	sess := &session{
		id:           common.NewSessionID(),
		searchCtx:    searchCtx,
		systemPrompt: buildSystemPrompt(searchCtx, s.config.Chat.DefaultRadiusKm),
		registry:     registry,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info().
		Str("session_id", sess.id).
		Str("location", searchCtx.Location).
		Msg("Chat session started")

	return sess.id, nil
}

// Turn runs one user turn through the agent loop, streaming deltas to the
// sink. The completed assistant message is returned; when the model call
// fails mid-turn the partial message is committed to the transcript and
// the error is surfaced alongside it.
func (s *Service) Turn(ctx context.Context, sessionID string, text string, sink interfaces.StreamSink) (*models.ChatMessage, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	turnTimeout := common.ParseDuration(s.config.Chat.TurnTimeout, 3*time.Minute)
	turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	userMessage := models.NewUserMessage(common.NewMessageID(), text)
	sess.transcript = append(sess.transcript, userMessage)

	conversation := make([]interfaces.Message, 0, len(sess.transcript)+2)
	conversation = append(conversation, interfaces.Message{Role: "system", Content: sess.systemPrompt})
	conversation = append(conversation, convertTranscript(s.historyTail(sess.transcript))...)

	loop := &agentLoop{
		llm:           s.llm,
		registry:      sess.registry,
		logger:        s.logger,
		maxToolRounds: s.maxToolRounds(),
	}

	messageID := common.NewMessageID()
	assistant, loopErr := loop.run(turnCtx, conversation, sess.transcript, messageID, sink)

	// Partial output is preserved even on failure
	if len(assistant.Parts) > 0 {
		sess.transcript = append(sess.transcript, *assistant)
	}

	if loopErr != nil {
		s.logger.Warn().
			Err(loopErr).
			Str("session_id", sessionID).
			Msg("Chat turn failed")
		if sink != nil {
			sink(models.StreamEvent{
				Type:      models.StreamEventError,
				MessageID: messageID,
				Error:     loopErr.Error(),
			})
		}
		return assistant, fmt.Errorf("chat turn failed: %w", loopErr)
	}

	if sink != nil {
		sink(models.StreamEvent{
			Type:      models.StreamEventDone,
			MessageID: messageID,
		})
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Int("parts", len(assistant.Parts)).
		Int("tool_results", assistant.ToolResultCount()).
		Msg("Chat turn completed")

	return assistant, nil
}

// Transcript returns a copy of the session's messages in order
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	out := make([]models.ChatMessage, len(sess.transcript))
	copy(out, sess.transcript)
	return out, nil
}

// DisplayedVenues derives the current venue set from the full session
// transcript
func (s *Service) DisplayedVenues(ctx context.Context, sessionID string) ([]models.VenueSummary, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return venues.Reduce(sess.transcript), nil
}

// EndSession discards a session and its transcript
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	delete(s.sessions, sessionID)

	s.logger.Info().Str("session_id", sessionID).Msg("Chat session ended")
	return nil
}

// HealthCheck verifies the underlying model provider is reachable
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.llm.HealthCheck(ctx)
}

func (s *Service) getSession(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return sess, nil
}

func (s *Service) maxToolRounds() int {
	if s.config.Chat.MaxSteps > 0 {
		return s.config.Chat.MaxSteps
	}
	return 5
}

// historyTail bounds the transcript sent to the model. The full
// transcript stays in the session for venue derivation. The model-facing
// conversation must open with a user message, so the tail advances past
// any leading assistant messages left by the cut.
func (s *Service) historyTail(transcript []models.ChatMessage) []models.ChatMessage {
	limit := s.config.Chat.HistoryMessages
	if limit <= 0 || len(transcript) <= limit {
		return transcript
	}
	tail := transcript[len(transcript)-limit:]
	for len(tail) > 0 && tail[0].Role != models.RoleUser {
		tail = tail[1:]
	}
	return tail
}
