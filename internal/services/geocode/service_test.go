package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
)

func newTestService(baseURL string) *Service {
	return &Service{
		config:     &common.GeocodeConfig{BaseURL: baseURL},
		logger:     arbor.NewLogger(),
		apiKey:     "test-key",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Brooklyn, NY", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "Brooklyn, NY, USA",
				"geometry": {"location": {"lat": 40.6782, "lng": -73.9442}}
			}]
		}`))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	result, err := service.Geocode(context.Background(), "Brooklyn, NY")

	require.NoError(t, err)
	assert.Equal(t, 40.6782, result.Latitude)
	assert.Equal(t, -73.9442, result.Longitude)
	assert.Equal(t, "Brooklyn, NY, USA", result.FormattedAddress)
}

func TestGeocodeZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	_, err := service.Geocode(context.Background(), "nowhere at all")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZERO_RESULTS")
}

func TestGeocodeErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "API key invalid", "results": []}`))
	}))
	defer server.Close()

	service := newTestService(server.URL)
	_, err := service.Geocode(context.Background(), "Brooklyn")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key invalid")
}
