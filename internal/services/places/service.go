// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"golang.org/x/time/rate"
)

// fieldMask lists the place fields requested from the provider. Keeping
// this tight keeps the per-request billing tier down.
const fieldMask = "places.id,places.displayName,places.formattedAddress," +
	"places.location,places.rating,places.priceLevel,places.photos," +
	"places.types,places.websiteUri,places.nationalPhoneNumber"

// Service implements the PlacesService interface against the Google
// Places API (New)
type Service struct {
	config     *common.PlacesAPIConfig
	logger     arbor.ILogger
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewService creates a new Places service instance
func NewService(
	config *common.PlacesAPIConfig,
	kvStorage interfaces.KeyValueStorage,
	logger arbor.ILogger,
) interfaces.PlacesService {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "places_api_key", config.APIKey)
	if err != nil {
		apiKey = config.APIKey
		logger.Warn().Err(err).Msg("Failed to resolve Places API key from KV store, using config value")
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Every(config.RateLimit)
	}

	return &Service{
		config:  config,
		logger:  logger,
		apiKey:  apiKey,
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// SearchText performs a text search biased to a circle and maps the
// results to venue records. Results are capped at the configured page
// size (the provider maximum is 20).
func (s *Service) SearchText(ctx context.Context, query string, lat, lng float64, radiusMeters float64) ([]*models.Venue, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	maxResults := s.config.MaxResultsPerSearch
	if maxResults <= 0 || maxResults > 20 {
		maxResults = 20
	}

	reqBody := searchTextRequest{
		TextQuery: query,
		LocationBias: locationBias{
			Circle: circle{
				Center: latLng{Latitude: lat, Longitude: lng},
				Radius: radiusMeters,
			},
		},
		MaxResults: maxResults,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	searchURL := s.baseURL + "/places:searchText"

	// Log without the API key
	s.logger.Debug().
		Str("url", searchURL).
		Str("query", query).
		Float64("radius_m", radiusMeters).
		Msg("Calling Places text search API")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", s.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var apiResp searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	venues := make([]*models.Venue, 0, len(apiResp.Places))
	for _, place := range apiResp.Places {
		venues = append(venues, s.mapPlaceToVenue(place))
	}

	samplePlaces := []string{}
	for i, venue := range venues {
		if i < 3 {
			samplePlaces = append(samplePlaces, venue.Name)
		}
	}
	s.logger.Info().
		Str("query", query).
		Int("results_count", len(venues)).
		Strs("sample_places", samplePlaces).
		Msg("Places text search completed")

	return venues, nil
}

// mapPlaceToVenue converts a provider place into a venue record.
// Missing provider data gets placeholders for required fields and stays
// absent for optional ones; capacity and description are never
// provider-sourced.
func (s *Service) mapPlaceToVenue(place placeResult) *models.Venue {
	venue := &models.Venue{
		PlaceID: place.ID,
		Name:    "Unknown Venue",
		Types:   place.Types,
		Rating:  place.Rating,
	}

	if place.DisplayName != nil && place.DisplayName.Text != "" {
		venue.Name = place.DisplayName.Text
	}
	venue.Address = place.FormattedAddress
	if place.Location != nil {
		venue.Latitude = place.Location.Latitude
		venue.Longitude = place.Location.Longitude
	}
	if place.PriceLevel != "" {
		if level, ok := priceLevelMap[place.PriceLevel]; ok {
			venue.PriceLevel = &level
		}
	}
	if place.NationalPhone != "" {
		phone := place.NationalPhone
		venue.PhoneNumber = &phone
	}
	if place.WebsiteURI != "" {
		website := place.WebsiteURI
		venue.Website = &website
	}
	for _, p := range place.Photos {
		if p.Name != "" {
			venue.PhotoRefs = append(venue.PhotoRefs, p.Name)
		}
	}

	return venue
}

// PhotoURL builds the media URL for a provider photo reference
func (s *Service) PhotoURL(photoRef string, maxWidthPx int) string {
	if maxWidthPx <= 0 {
		maxWidthPx = 400
	}
	return fmt.Sprintf("%s/%s/media?maxWidthPx=%d&key=%s", s.baseURL, photoRef, maxWidthPx, s.apiKey)
}

// FetchPhoto retrieves photo bytes through the provider media endpoint
func (s *Service) FetchPhoto(ctx context.Context, photoRef string, maxWidthPx int) ([]byte, string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.PhotoURL(photoRef, maxWidthPx), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build photo request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", &ProviderError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", &ProviderError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read photo body: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
