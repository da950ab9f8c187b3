package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"github.com/ternarybob/locus/internal/services/venues"
)

// fakePlacesService scripts the provider response for a test
type fakePlacesService struct {
	venues    []*models.Venue
	err       error
	lastQuery string
}

func (f *fakePlacesService) SearchText(ctx context.Context, query string, lat, lng float64, radiusMeters float64) ([]*models.Venue, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.venues, nil
}

func (f *fakePlacesService) PhotoURL(photoRef string, maxWidthPx int) string {
	return ""
}

func (f *fakePlacesService) FetchPhoto(ctx context.Context, photoRef string, maxWidthPx int) ([]byte, string, error) {
	return nil, "", errors.New("not implemented")
}

// memoryVenueStorage is an in-memory VenueStorage for tool tests
type memoryVenueStorage struct {
	byPlaceID map[string]*models.Venue
	order     []string
}

func newMemoryVenueStorage() *memoryVenueStorage {
	return &memoryVenueStorage{byPlaceID: make(map[string]*models.Venue)}
}

func (m *memoryVenueStorage) Upsert(ctx context.Context, venue *models.Venue) (*models.Venue, error) {
	if venue.PlaceID == "" {
		return nil, errors.New("venue place_id is required")
	}
	if existing, ok := m.byPlaceID[venue.PlaceID]; ok {
		venue.ID = existing.ID
		if venue.Capacity == nil {
			venue.Capacity = existing.Capacity
		}
		if venue.Description == nil {
			venue.Description = existing.Description
		}
	} else {
		if venue.ID == "" {
			venue.ID = "venue-" + venue.PlaceID
		}
		m.order = append(m.order, venue.PlaceID)
	}
	m.byPlaceID[venue.PlaceID] = venue
	return venue, nil
}

func (m *memoryVenueStorage) UpsertBatch(ctx context.Context, list []*models.Venue) ([]*models.Venue, error) {
	stored := make([]*models.Venue, 0, len(list))
	for _, v := range list {
		s, err := m.Upsert(ctx, v)
		if err != nil {
			continue
		}
		stored = append(stored, s)
	}
	return stored, nil
}

func (m *memoryVenueStorage) GetByID(ctx context.Context, id string) (*models.Venue, error) {
	for _, v := range m.byPlaceID {
		if v.ID == id || v.PlaceID == id {
			return v, nil
		}
	}
	return nil, interfaces.ErrVenueNotFound
}

func (m *memoryVenueStorage) GetByPlaceIDs(ctx context.Context, placeIDs []string) ([]*models.Venue, error) {
	result := []*models.Venue{}
	for _, id := range placeIDs {
		if v, ok := m.byPlaceID[id]; ok {
			result = append(result, v)
		}
	}
	return result, nil
}

func (m *memoryVenueStorage) FindNear(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]*models.Venue, error) {
	return m.ListAll(ctx)
}

func (m *memoryVenueStorage) FindByFilter(ctx context.Context, filter *models.VenueFilter) ([]*models.Venue, error) {
	all, _ := m.ListAll(ctx)
	if filter == nil {
		return all, nil
	}
	result := []*models.Venue{}
	for _, v := range all {
		if filter.MinRating != nil && v.Rating != nil && *v.Rating < *filter.MinRating {
			continue
		}
		result = append(result, v)
	}
	return result, nil
}

func (m *memoryVenueStorage) ListAll(ctx context.Context) ([]*models.Venue, error) {
	result := make([]*models.Venue, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.byPlaceID[id])
	}
	return result, nil
}

func (m *memoryVenueStorage) Count(ctx context.Context) (int, error) {
	return len(m.byPlaceID), nil
}

func newTestToolSet(t *testing.T, places interfaces.PlacesService) (*Registry, *memoryVenueStorage) {
	t.Helper()

	logger := arbor.NewLogger()
	storage := newMemoryVenueStorage()
	venueService := venues.NewService(storage, logger)

	searchCtx := models.SearchContext{
		Latitude:  40.6782,
		Longitude: -73.9442,
		RadiusKm:  25,
		Location:  "Brooklyn, NY",
	}

	registry := NewRegistry(logger)
	NewVenueToolSet(places, venueService, searchCtx, logger).RegisterAll(registry)
	return registry, storage
}

func ratingPtr(v float64) *float64 { return &v }

func TestRegistryDefinitionsOrder(t *testing.T) {
	registry, _ := newTestToolSet(t, &fakePlacesService{})

	defs := registry.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "search_venues", defs[0].Name)
	assert.Equal(t, "filter_venues", defs[1].Name)
	assert.Equal(t, "get_venue_details", defs[2].Name)
}

func TestRegistryUnknownTool(t *testing.T) {
	registry, _ := newTestToolSet(t, &fakePlacesService{})

	output := registry.Execute(context.Background(), interfaces.ToolCall{
		ID:    "call-1",
		Name:  "book_flight",
		Input: json.RawMessage(`{}`),
	})

	assert.True(t, output.IsError)
	assert.Contains(t, output.Content, "book_flight")
}

func TestSearchVenuesStoresAndSummarizes(t *testing.T) {
	provider := &fakePlacesService{
		venues: []*models.Venue{
			{PlaceID: "p1", Name: "Grand Ballroom", Address: "1 Main St", Rating: ratingPtr(4.7)},
			{PlaceID: "p2", Name: "Harbor Loft", Address: "2 Pier Rd", Rating: ratingPtr(4.8)},
		},
	}
	registry, storage := newTestToolSet(t, provider)

	output := registry.Execute(context.Background(), interfaces.ToolCall{
		ID:    "call-1",
		Name:  "search_venues",
		Input: json.RawMessage(`{"query": "wedding venues"}`),
	})

	assert.False(t, output.IsError)
	assert.Equal(t, "wedding venues", provider.lastQuery)
	assert.Len(t, output.Venues, 2)
	assert.Contains(t, output.Content, "Grand Ballroom")
	assert.Contains(t, output.Content, "Harbor Loft")

	count, _ := storage.Count(context.Background())
	assert.Equal(t, 2, count, "Search results should be persisted")
}

func TestSearchVenuesValidationRejected(t *testing.T) {
	provider := &fakePlacesService{}
	registry, _ := newTestToolSet(t, provider)

	// Missing required query
	output := registry.Execute(context.Background(), interfaces.ToolCall{
		ID:    "call-1",
		Name:  "search_venues",
		Input: json.RawMessage(`{}`),
	})
	assert.True(t, output.IsError)
	assert.Empty(t, provider.lastQuery, "Tool must not execute on invalid input")

	// Unknown field
	output = registry.Execute(context.Background(), interfaces.ToolCall{
		ID:    "call-2",
		Name:  "search_venues",
		Input: json.RawMessage(`{"query": "venues", "city": "Brooklyn"}`),
	})
	assert.True(t, output.IsError)
	assert.Contains(t, output.Content, "city")
}

func TestSearchVenuesProviderFailureIsSoft(t *testing.T) {
	provider := &fakePlacesService{err: fmt.Errorf("upstream returned 500")}
	registry, _ := newTestToolSet(t, provider)

	output := registry.Execute(context.Background(), interfaces.ToolCall{
		ID:    "call-1",
		Name:  "search_venues",
		Input: json.RawMessage(`{"query": "wedding venues"}`),
	})

	assert.False(t, output.IsError, "Provider outage should not be an error result")
	assert.Equal(t, "No venues found (search provider unavailable).", output.Content)
	assert.Empty(t, output.Venues)
}

func TestFilterVenuesQueriesStore(t *testing.T) {
	registry, storage := newTestToolSet(t, &fakePlacesService{})
	ctx := context.Background()

	_, err := storage.UpsertBatch(ctx, []*models.Venue{
		{PlaceID: "p1", Name: "High Bar", Rating: ratingPtr(4.8)},
		{PlaceID: "p2", Name: "Low Bar", Rating: ratingPtr(3.9)},
		{PlaceID: "p3", Name: "No Rating Hall"},
	})
	require.NoError(t, err)

	output := registry.Execute(ctx, interfaces.ToolCall{
		ID:    "call-1",
		Name:  "filter_venues",
		Input: json.RawMessage(`{"min_rating": 4.5}`),
	})

	assert.False(t, output.IsError)
	assert.Len(t, output.Venues, 2)
	names := []string{output.Venues[0].Name, output.Venues[1].Name}
	assert.Contains(t, names, "High Bar")
	assert.Contains(t, names, "No Rating Hall")
}

func TestFilterVenuesRangeValidation(t *testing.T) {
	registry, _ := newTestToolSet(t, &fakePlacesService{})

	output := registry.Execute(context.Background(), interfaces.ToolCall{
		ID:    "call-1",
		Name:  "filter_venues",
		Input: json.RawMessage(`{"min_rating": 7}`),
	})

	assert.True(t, output.IsError)
}

func TestGetVenueDetails(t *testing.T) {
	registry, storage := newTestToolSet(t, &fakePlacesService{})
	ctx := context.Background()

	capacity := 200
	stored, err := storage.Upsert(ctx, &models.Venue{
		PlaceID:  "p1",
		Name:     "Grand Ballroom",
		Address:  "1 Main St",
		Capacity: &capacity,
	})
	require.NoError(t, err)

	output := registry.Execute(ctx, interfaces.ToolCall{
		ID:    "call-1",
		Name:  "get_venue_details",
		Input: json.RawMessage(fmt.Sprintf(`{"venue_id": %q}`, stored.ID)),
	})

	assert.False(t, output.IsError)
	assert.Contains(t, output.Content, "Grand Ballroom")
	assert.Contains(t, output.Content, `"capacity": 200`)
	assert.Empty(t, output.Venues, "Detail lookups do not change the displayed set")
}

func TestGetVenueDetailsMiss(t *testing.T) {
	registry, _ := newTestToolSet(t, &fakePlacesService{})

	output := registry.Execute(context.Background(), interfaces.ToolCall{
		ID:    "call-1",
		Name:  "get_venue_details",
		Input: json.RawMessage(`{"venue_id": "nope"}`),
	})

	assert.False(t, output.IsError, "A miss is an answer, not a failure")
	assert.True(t, strings.HasPrefix(output.Content, `No venue found with ID "nope".`))
	assert.Empty(t, output.Venues)
}
