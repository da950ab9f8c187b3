package venues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/locus/internal/models"
)

func venueRef(placeID, name string, rating *float64) models.VenueSummary {
	return models.VenueSummary{
		ID:      "id-" + placeID,
		PlaceID: placeID,
		Name:    name,
		Rating:  rating,
	}
}

func ratingPtr(v float64) *float64 { return &v }

func assistantMessage(id string, parts ...models.MessagePart) models.ChatMessage {
	return models.ChatMessage{ID: id, Role: models.RoleAssistant, Parts: parts}
}

func toolPart(venues ...models.VenueSummary) models.MessagePart {
	return models.MessagePart{
		Type:     models.PartTypeToolCall,
		ToolName: "search_venues",
		State:    models.ToolStateOutputAvailable,
		Output:   &models.ToolOutput{Content: "Found venues", Venues: venues},
	}
}

func textPart(text string) models.MessagePart {
	return models.MessagePart{Type: models.PartTypeText, Text: text}
}

func TestReduceEmptyTranscript(t *testing.T) {
	assert.Empty(t, Reduce(nil))
	assert.Empty(t, Reduce([]models.ChatMessage{
		models.NewUserMessage("u1", "find venues"),
		assistantMessage("a1", textPart("Sure, where?")),
	}))
}

func TestReduceAccumulatesWithinMessage(t *testing.T) {
	transcript := []models.ChatMessage{
		assistantMessage("a1",
			toolPart(
				venueRef("p1", "Venue A", ratingPtr(4.7)),
				venueRef("p2", "Venue B", ratingPtr(4.8)),
			),
			toolPart(
				venueRef("p3", "Venue C", ratingPtr(4.5)),
			),
		),
	}

	result := Reduce(transcript)

	assert.Len(t, result, 3)
	assert.Equal(t, "Venue B", result[0].Name)
	assert.Equal(t, "Venue A", result[1].Name)
	assert.Equal(t, "Venue C", result[2].Name)
}

func TestReduceLastWriteWinsByPlaceID(t *testing.T) {
	transcript := []models.ChatMessage{
		assistantMessage("a1",
			toolPart(venueRef("p1", "Old Name", ratingPtr(4.0))),
			toolPart(venueRef("p1", "New Name", ratingPtr(4.6))),
		),
	}

	result := Reduce(transcript)

	assert.Len(t, result, 1)
	assert.Equal(t, "New Name", result[0].Name)
	assert.Equal(t, 4.6, *result[0].Rating)
}

func TestReduceNewerMessageReplacesSet(t *testing.T) {
	transcript := []models.ChatMessage{
		assistantMessage("a1",
			toolPart(
				venueRef("p1", "First Round A", ratingPtr(4.7)),
				venueRef("p2", "First Round B", ratingPtr(4.8)),
			),
		),
		models.NewUserMessage("u2", "now near the waterfront"),
		assistantMessage("a2",
			toolPart(venueRef("p3", "Waterfront Hall", ratingPtr(4.2))),
		),
	}

	result := Reduce(transcript)

	assert.Len(t, result, 1)
	assert.Equal(t, "Waterfront Hall", result[0].Name)
}

func TestReduceSearchThenFilterTurns(t *testing.T) {
	// First turn surfaces three venues; a later filter turn narrows the
	// displayed set to the two that passed.
	transcript := []models.ChatMessage{
		models.NewUserMessage("u1", "find wedding venues in Brooklyn"),
		assistantMessage("a1",
			toolPart(
				venueRef("pa", "Venue A", ratingPtr(4.7)),
				venueRef("pb", "Venue B", ratingPtr(4.8)),
				venueRef("pc", "Venue C", ratingPtr(4.5)),
			),
		),
		models.NewUserMessage("u2", "only show venues rated 4.6 or higher"),
		assistantMessage("a2",
			toolPart(
				venueRef("pb", "Venue B", ratingPtr(4.8)),
				venueRef("pa", "Venue A", ratingPtr(4.7)),
			),
		),
	}

	result := Reduce(transcript)

	require.Len(t, result, 2)
	assert.Equal(t, "Venue B", result[0].Name)
	assert.Equal(t, "Venue A", result[1].Name)
}

func TestReduceVenueFreeMessagesKeepPriorSet(t *testing.T) {
	transcript := []models.ChatMessage{
		assistantMessage("a1",
			toolPart(venueRef("p1", "Venue A", ratingPtr(4.7))),
		),
		// A later turn that answers from context without producing venues
		assistantMessage("a2", textPart("Venue A allows outdoor ceremonies.")),
		// A tool call that returned no venue payload
		assistantMessage("a3", models.MessagePart{
			Type:     models.PartTypeToolCall,
			ToolName: "get_venue_details",
			State:    models.ToolStateOutputAvailable,
			Output:   &models.ToolOutput{Content: "No venue found with ID \"x\"."},
		}),
	}

	result := Reduce(transcript)

	assert.Len(t, result, 1)
	assert.Equal(t, "Venue A", result[0].Name)
}

func TestReduceOrdersByRatingDescNilLast(t *testing.T) {
	transcript := []models.ChatMessage{
		assistantMessage("a1",
			toolPart(
				venueRef("pa", "A", ratingPtr(4.7)),
				venueRef("pc", "C", ratingPtr(4.5)),
				venueRef("pn", "Unrated", nil),
				venueRef("pb", "B", ratingPtr(4.8)),
			),
		),
	}

	result := Reduce(transcript)

	names := make([]string, len(result))
	for i, v := range result {
		names[i] = v.Name
	}
	assert.Equal(t, []string{"B", "A", "C", "Unrated"}, names)
}

func TestReduceDeterministic(t *testing.T) {
	transcript := []models.ChatMessage{
		assistantMessage("a1",
			toolPart(
				venueRef("p1", "A", ratingPtr(4.5)),
				venueRef("p2", "B", ratingPtr(4.5)),
				venueRef("p3", "C", nil),
			),
		),
	}

	first := Reduce(transcript)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Reduce(transcript))
	}
}
