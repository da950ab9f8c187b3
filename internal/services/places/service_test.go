package places

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"golang.org/x/time/rate"
)

func newTestService(baseURL string) *Service {
	return &Service{
		config: &common.PlacesAPIConfig{
			MaxResultsPerSearch: 20,
		},
		logger:     arbor.NewLogger(),
		apiKey:     "test-key",
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

func TestSearchTextMapsPlaces(t *testing.T) {
	var gotBody searchTextRequest
	var gotFieldMask, gotAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/places:searchText", r.URL.Path)
		gotFieldMask = r.Header.Get("X-Goog-FieldMask")
		gotAPIKey = r.Header.Get("X-Goog-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"places": [
				{
					"id": "place-1",
					"displayName": {"text": "Grand Ballroom"},
					"formattedAddress": "1 Main St, Brooklyn, NY",
					"location": {"latitude": 40.68, "longitude": -73.94},
					"rating": 4.7,
					"priceLevel": "PRICE_LEVEL_EXPENSIVE",
					"nationalPhoneNumber": "(718) 555-0100",
					"websiteUri": "https://grandballroom.example",
					"photos": [{"name": "places/place-1/photos/ref-1"}],
					"types": ["event_venue", "banquet_hall"]
				},
				{
					"id": "place-2",
					"location": {"latitude": 40.70, "longitude": -73.99}
				}
			]
		}`))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	venues, err := service.SearchText(context.Background(), "wedding venues", 40.6782, -73.9442, 25000)

	require.NoError(t, err)
	require.Len(t, venues, 2)

	assert.Equal(t, "wedding venues", gotBody.TextQuery)
	assert.Equal(t, 20, gotBody.MaxResults)
	assert.Equal(t, 40.6782, gotBody.LocationBias.Circle.Center.Latitude)
	assert.Equal(t, float64(25000), gotBody.LocationBias.Circle.Radius)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Contains(t, gotFieldMask, "places.displayName")

	first := venues[0]
	assert.Equal(t, "place-1", first.PlaceID)
	assert.Equal(t, "Grand Ballroom", first.Name)
	assert.Equal(t, "1 Main St, Brooklyn, NY", first.Address)
	assert.Equal(t, 40.68, first.Latitude)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 4.7, *first.Rating)
	require.NotNil(t, first.PriceLevel)
	assert.Equal(t, 3, *first.PriceLevel)
	require.NotNil(t, first.PhoneNumber)
	assert.Equal(t, "(718) 555-0100", *first.PhoneNumber)
	require.NotNil(t, first.Website)
	assert.Equal(t, []string{"places/place-1/photos/ref-1"}, first.PhotoRefs)

	// Sparse place gets a placeholder name and no optional fields
	second := venues[1]
	assert.Equal(t, "Unknown Venue", second.Name)
	assert.Nil(t, second.Rating)
	assert.Nil(t, second.PriceLevel)
	assert.Nil(t, second.PhoneNumber)
	assert.Nil(t, second.Capacity)
	assert.Nil(t, second.Description)
}

func TestSearchTextUnknownPriceLevel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"places": [{"id": "p1", "displayName": {"text": "Venue"}, "priceLevel": "PRICE_LEVEL_UNSPECIFIED"}]}`))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	venues, err := service.SearchText(context.Background(), "venues", 40, -73, 1000)

	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Nil(t, venues[0].PriceLevel, "Unmapped price level enum should stay absent")
}

func TestSearchTextResultCap(t *testing.T) {
	var gotBody searchTextRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"places": []}`))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	service.config.MaxResultsPerSearch = 50

	_, err := service.SearchText(context.Background(), "venues", 40, -73, 1000)

	require.NoError(t, err)
	assert.Equal(t, 20, gotBody.MaxResults, "Provider page size caps at 20")
}

func TestSearchTextUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"message": "API key invalid"}}`))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	_, err := service.SearchText(context.Background(), "venues", 40, -73, 1000)

	require.Error(t, err)
	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusForbidden, provErr.StatusCode)
	assert.Contains(t, provErr.Message, "API key invalid")
}

func TestPhotoURL(t *testing.T) {
	service := newTestService("https://places.googleapis.com/v1")

	url := service.PhotoURL("places/p1/photos/ref-1", 800)
	assert.Equal(t, "https://places.googleapis.com/v1/places/p1/photos/ref-1/media?maxWidthPx=800&key=test-key", url)

	// Default width applies when the caller passes none
	url = service.PhotoURL("places/p1/photos/ref-1", 0)
	assert.Contains(t, url, "maxWidthPx=400")
}

func TestFetchPhoto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "maxWidthPx=400")
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	data, contentType, err := service.FetchPhoto(context.Background(), "places/p1/photos/ref-1", 400)

	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}
