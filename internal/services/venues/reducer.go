package venues

import (
	"github.com/ternarybob/locus/internal/models"
)

// Reduce derives the displayed venue set from a transcript. The set
// mirrors what the most recent venue-bearing assistant message produced:
// tool results within one message accumulate (keyed by place ID, last
// write wins), while the first venue-bearing result of a newer message
// replaces the set outright. Text parts and venue-free tool results never
// change it. The output is ordered rating descending, unrated venues
// last, and is deterministic for a given transcript.
func Reduce(transcript []models.ChatMessage) []models.VenueSummary {
	byPlaceID := make(map[string]models.VenueSummary)
	order := []string{}

	for _, msg := range transcript {
		if msg.Role != models.RoleAssistant {
			continue
		}

		messageHasVenues := false
		for _, part := range msg.Parts {
			if part.Type != models.PartTypeToolCall || part.Output == nil || len(part.Output.Venues) == 0 {
				continue
			}

			if !messageHasVenues {
				// A newer venue-bearing message replaces the prior set
				byPlaceID = make(map[string]models.VenueSummary)
				order = order[:0]
				messageHasVenues = true
			}

			for _, venue := range part.Output.Venues {
				if _, seen := byPlaceID[venue.PlaceID]; !seen {
					order = append(order, venue.PlaceID)
				}
				byPlaceID[venue.PlaceID] = venue
			}
		}
	}

	result := make([]models.VenueSummary, 0, len(order))
	for _, placeID := range order {
		result = append(result, byPlaceID[placeID])
	}
	models.SortVenuesByRating(result)

	return result
}
