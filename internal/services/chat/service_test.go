package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"github.com/ternarybob/locus/internal/services/venues"
)

func newTestChatService(llm interfaces.LLMService) *Service {
	logger := arbor.NewLogger()
	return NewService(common.NewDefaultConfig(), llm, nil, venues.NewService(nil, logger), logger)
}

func brooklynContext() models.SearchContext {
	return models.SearchContext{
		Latitude:  40.6782,
		Longitude: -73.9442,
		Location:  "Brooklyn, NY",
	}
}

func TestStartSessionValidatesCoordinates(t *testing.T) {
	service := newTestChatService(&scriptedLLM{})

	_, err := service.StartSession(context.Background(), models.SearchContext{Latitude: 91, Longitude: 0})
	assert.Error(t, err)

	_, err = service.StartSession(context.Background(), models.SearchContext{Latitude: 0, Longitude: -200})
	assert.Error(t, err)

	id, err := service.StartSession(context.Background(), brooklynContext())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestStartSessionDefaultsRadius(t *testing.T) {
	service := newTestChatService(&scriptedLLM{})

	id, err := service.StartSession(context.Background(), brooklynContext())
	require.NoError(t, err)

	sess, err := service.getSession(id)
	require.NoError(t, err)
	assert.Equal(t, float64(25), sess.searchCtx.RadiusKm)
	assert.Contains(t, sess.systemPrompt, "Brooklyn, NY")
}

func TestTurnCommitsTranscript(t *testing.T) {
	llm := &scriptedLLM{script: []*interfaces.Completion{
		{Text: "What season are you planning for?", StopReason: "end_turn"},
	}}
	service := newTestChatService(llm)

	id, err := service.StartSession(context.Background(), brooklynContext())
	require.NoError(t, err)

	var doneEvents int
	assistant, err := service.Turn(context.Background(), id, "find wedding venues", func(e models.StreamEvent) {
		if e.Type == models.StreamEventDone {
			doneEvents++
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "What season are you planning for?", assistant.TextContent())
	assert.Equal(t, 1, doneEvents)

	transcript, err := service.Transcript(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, models.RoleUser, transcript[0].Role)
	assert.Equal(t, "find wedding venues", transcript[0].TextContent())
	assert.Equal(t, models.RoleAssistant, transcript[1].Role)

	// The model sees the system prompt ahead of the transcript
	require.NotEmpty(t, llm.conversations)
	first := llm.conversations[0]
	require.GreaterOrEqual(t, len(first), 2)
	assert.Equal(t, "system", first[0].Role)
	assert.Equal(t, "user", first[1].Role)
}

func TestTurnHistoryWindowOpensWithUser(t *testing.T) {
	llm := &scriptedLLM{script: []*interfaces.Completion{
		{Text: "noted", StopReason: "end_turn"},
	}}
	logger := arbor.NewLogger()
	cfg := common.NewDefaultConfig()
	cfg.Chat.HistoryMessages = 4
	service := NewService(cfg, llm, nil, venues.NewService(nil, logger), logger)

	id, err := service.StartSession(context.Background(), brooklynContext())
	require.NoError(t, err)

	// By the third turn the transcript exceeds the window and the cut
	// lands mid-exchange
	for i := 0; i < 4; i++ {
		_, err := service.Turn(context.Background(), id, fmt.Sprintf("question %d", i), func(models.StreamEvent) {})
		require.NoError(t, err)
	}

	for _, conversation := range llm.conversations {
		require.Greater(t, len(conversation), 1)
		assert.Equal(t, "system", conversation[0].Role)
		assert.Equal(t, "user", conversation[1].Role, "model-facing conversation must open with a user message")
	}
}

func TestHistoryTailSkipsLeadingAssistant(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Chat.HistoryMessages = 4
	logger := arbor.NewLogger()
	service := NewService(cfg, &scriptedLLM{}, nil, venues.NewService(nil, logger), logger)

	transcript := make([]models.ChatMessage, 0, 5)
	for i := 0; i < 5; i++ {
		if i%2 == 0 {
			transcript = append(transcript, models.NewUserMessage(fmt.Sprintf("u-%d", i), "question"))
		} else {
			transcript = append(transcript, models.ChatMessage{
				ID:    fmt.Sprintf("a-%d", i),
				Role:  models.RoleAssistant,
				Parts: []models.MessagePart{{Type: models.PartTypeText, Text: "reply"}},
			})
		}
	}

	tail := service.historyTail(transcript)
	require.Len(t, tail, 3)
	assert.Equal(t, models.RoleUser, tail[0].Role)
	assert.Equal(t, "u-2", tail[0].ID)
}

func TestTurnUnknownSession(t *testing.T) {
	service := newTestChatService(&scriptedLLM{})

	_, err := service.Turn(context.Background(), "missing", "hello", nil)
	assert.Error(t, err)
}

func TestTurnErrorEmitsErrorEvent(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("provider down")}
	service := newTestChatService(llm)

	id, err := service.StartSession(context.Background(), brooklynContext())
	require.NoError(t, err)

	var errorEvents []models.StreamEvent
	_, err = service.Turn(context.Background(), id, "find venues", func(e models.StreamEvent) {
		if e.Type == models.StreamEventError {
			errorEvents = append(errorEvents, e)
		}
	})
	require.Error(t, err)
	require.Len(t, errorEvents, 1)
	assert.Contains(t, errorEvents[0].Error, "provider down")

	// The user message stays committed; no empty assistant message is added
	transcript, err := service.Transcript(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, models.RoleUser, transcript[0].Role)
}

func TestDisplayedVenuesEmptySession(t *testing.T) {
	service := newTestChatService(&scriptedLLM{})

	id, err := service.StartSession(context.Background(), brooklynContext())
	require.NoError(t, err)

	set, err := service.DisplayedVenues(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestEndSession(t *testing.T) {
	service := newTestChatService(&scriptedLLM{})

	id, err := service.StartSession(context.Background(), brooklynContext())
	require.NoError(t, err)

	require.NoError(t, service.EndSession(context.Background(), id))
	assert.Error(t, service.EndSession(context.Background(), id))

	_, err = service.Transcript(context.Background(), id)
	assert.Error(t, err)
}
