// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"github.com/ternarybob/locus/internal/services/venues"
)

var validate = validator.New()

// VenueToolSet builds the venue search tools bound to one session's
// search context
type VenueToolSet struct {
	places    interfaces.PlacesService
	venues    *venues.Service
	searchCtx models.SearchContext
	logger    arbor.ILogger
}

// NewVenueToolSet creates the tool set for a session
func NewVenueToolSet(
	places interfaces.PlacesService,
	venueService *venues.Service,
	searchCtx models.SearchContext,
	logger arbor.ILogger,
) *VenueToolSet {
	return &VenueToolSet{
		places:    places,
		venues:    venueService,
		searchCtx: searchCtx,
		logger:    logger,
	}
}

// RegisterAll adds the three venue tools to a registry
func (t *VenueToolSet) RegisterAll(registry *Registry) {
	registry.Register(t.searchVenuesTool())
	registry.Register(t.filterVenuesTool())
	registry.Register(t.venueDetailsTool())
}

// decodeInput unmarshals and validates tool input into a typed struct.
// Unknown fields are rejected so the model gets corrected instead of
// silently ignored.
func decodeInput(toolName string, input []byte, target interface{}) error {
	if len(input) == 0 {
		input = []byte("{}")
	}
	decoder := json.NewDecoder(bytes.NewReader(input))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return &ValidationError{Tool: toolName, Reason: err.Error()}
	}
	if err := validate.Struct(target); err != nil {
		return &ValidationError{Tool: toolName, Reason: err.Error()}
	}
	return nil
}

// searchVenuesInput is the typed input for the search_venues tool
type searchVenuesInput struct {
	Query    string   `json:"query" validate:"required"`
	RadiusKm *float64 `json:"radius_km,omitempty" validate:"omitempty,gt=0"`
}

func (t *VenueToolSet) searchVenuesTool() Tool {
	return Tool{
		Definition: interfaces.ToolDefinition{
			Name: "search_venues",
			Description: "Search for wedding venues, event spaces, or other venue types near the session location. " +
				"Use different queries to find traditional and non-traditional venues. " +
				`Examples: "wedding venues", "barns for events", "vineyard wedding", "rooftop event space", ` +
				`"restaurant private dining", "art gallery event rental", "brewery wedding".`,
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query for the type of venue to find",
					},
					"radius_km": map[string]interface{}{
						"type":        "number",
						"description": "Override the default search radius in kilometers",
					},
				},
				"required": []string{"query"},
			},
		},
		Execute: func(ctx context.Context, rawInput []byte) (*models.ToolOutput, error) {
			var input searchVenuesInput
			if err := decodeInput("search_venues", rawInput, &input); err != nil {
				return nil, err
			}

			radiusKm := t.searchCtx.RadiusKm
			if input.RadiusKm != nil {
				radiusKm = *input.RadiusKm
			}
			if radiusKm <= 0 {
				radiusKm = 25
			}

			found, err := t.places.SearchText(ctx, input.Query, t.searchCtx.Latitude, t.searchCtx.Longitude, radiusKm*1000)
			if err != nil {
				// A provider failure is not fatal to the conversation:
				// the model gets an empty result and can try again.
				t.logger.Warn().Err(err).Str("query", input.Query).Msg("Provider search failed, returning empty result")
				return &models.ToolOutput{
					Content: "No venues found (search provider unavailable).",
					Venues:  []models.VenueSummary{},
				}, nil
			}

			stored, err := t.venues.UpsertBatch(ctx, found)
			if err != nil {
				return nil, err
			}

			summaries := summarize(stored)
			return &models.ToolOutput{
				Content: renderVenueList(summaries, fmt.Sprintf("Found %d venues for %q", len(summaries), input.Query)),
				Venues:  summaries,
			}, nil
		},
	}
}

// filterVenuesInput is the typed input for the filter_venues tool
type filterVenuesInput struct {
	MinRating     *float64 `json:"min_rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	MaxPriceLevel *int     `json:"max_price_level,omitempty" validate:"omitempty,gte=0,lte=4"`
	MinCapacity   *int     `json:"min_capacity,omitempty" validate:"omitempty,gte=0"`
	VenueTypes    []string `json:"venue_types,omitempty"`
	TextTerm      string   `json:"text_term,omitempty"`
}

func (t *VenueToolSet) filterVenuesTool() Tool {
	return Tool{
		Definition: interfaces.ToolDefinition{
			Name: "filter_venues",
			Description: "Filter all venues found so far in this area by rating, price, capacity, type, or " +
				"name/description text. Searches the whole venue store, not just the last search result. " +
				"Venues missing a piece of data are kept rather than excluded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"min_rating": map[string]interface{}{
						"type":        "number",
						"description": "Minimum rating (1-5)",
					},
					"max_price_level": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum price level (0-4, where 4 is most expensive)",
					},
					"min_capacity": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum guest capacity",
					},
					"venue_types": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": `Venue type keywords to match, e.g. ["barn", "vineyard", "rooftop"]`,
					},
					"text_term": map[string]interface{}{
						"type":        "string",
						"description": "Search term to match against venue name or description",
					},
				},
			},
		},
		Execute: func(ctx context.Context, rawInput []byte) (*models.ToolOutput, error) {
			var input filterVenuesInput
			if err := decodeInput("filter_venues", rawInput, &input); err != nil {
				return nil, err
			}

			filter := &models.VenueFilter{
				MinRating:     input.MinRating,
				MaxPriceLevel: input.MaxPriceLevel,
				MinCapacity:   input.MinCapacity,
				VenueTypes:    input.VenueTypes,
				TextTerm:      input.TextTerm,
			}

			matched, err := t.venues.Filter(ctx, filter)
			if err != nil {
				return nil, err
			}

			summaries := summarize(matched)
			return &models.ToolOutput{
				Content: renderVenueList(summaries, fmt.Sprintf("%d venues match the filter", len(summaries))),
				Venues:  summaries,
			}, nil
		},
	}
}

// venueDetailsInput is the typed input for the get_venue_details tool
type venueDetailsInput struct {
	VenueID string `json:"venue_id" validate:"required"`
}

func (t *VenueToolSet) venueDetailsTool() Tool {
	return Tool{
		Definition: interfaces.ToolDefinition{
			Name:        "get_venue_details",
			Description: "Get detailed information about a specific venue by its ID or place ID.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"venue_id": map[string]interface{}{
						"type":        "string",
						"description": "The venue ID or place ID to look up",
					},
				},
				"required": []string{"venue_id"},
			},
		},
		Execute: func(ctx context.Context, rawInput []byte) (*models.ToolOutput, error) {
			var input venueDetailsInput
			if err := decodeInput("get_venue_details", rawInput, &input); err != nil {
				return nil, err
			}

			venue, err := t.venues.Get(ctx, input.VenueID)
			if err == interfaces.ErrVenueNotFound {
				// A miss is an answer, not a failure
				return &models.ToolOutput{
					Content: fmt.Sprintf("No venue found with ID %q.", input.VenueID),
				}, nil
			}
			if err != nil {
				return nil, err
			}

			detail, err := json.MarshalIndent(venue, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to encode venue detail: %w", err)
			}

			return &models.ToolOutput{
				Content: string(detail),
			}, nil
		},
	}
}

// summarize converts stored venues to the compact tool result shape
func summarize(stored []*models.Venue) []models.VenueSummary {
	summaries := make([]models.VenueSummary, len(stored))
	for i, v := range stored {
		summaries[i] = v.Summary()
	}
	return summaries
}

// renderVenueList builds the text representation of a venue list for the
// model. The structured payload travels separately.
func renderVenueList(summaries []models.VenueSummary, header string) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, v := range summaries {
		sb.WriteString("\n- ")
		sb.WriteString(v.Name)
		if v.Address != "" {
			sb.WriteString(" | ")
			sb.WriteString(v.Address)
		}
		if v.Rating != nil {
			sb.WriteString(fmt.Sprintf(" | rating %.1f", *v.Rating))
		}
		if v.PriceLevel != nil {
			sb.WriteString(fmt.Sprintf(" | price level %d", *v.PriceLevel))
		}
		sb.WriteString(" | id ")
		sb.WriteString(v.ID)
	}
	return sb.String()
}
