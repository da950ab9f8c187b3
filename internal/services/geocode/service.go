package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
)

// Service implements the GeocodeService interface against the Google
// Geocoding API
type Service struct {
	config     *common.GeocodeConfig
	logger     arbor.ILogger
	apiKey     string
	httpClient *http.Client
}

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      []geocodeEntry  `json:"results"`
}

type geocodeEntry struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// NewService creates a new geocode service. The API key falls back to
// the Places key when no dedicated geocode key is configured.
func NewService(
	config *common.GeocodeConfig,
	placesConfig *common.PlacesAPIConfig,
	kvStorage interfaces.KeyValueStorage,
	logger arbor.ILogger,
) interfaces.GeocodeService {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "geocode_api_key", config.APIKey)
	if err != nil || apiKey == "" {
		apiKey, err = common.ResolveAPIKey(ctx, kvStorage, "places_api_key", placesConfig.APIKey)
		if err != nil {
			apiKey = placesConfig.APIKey
			logger.Warn().Err(err).Msg("Failed to resolve geocode API key, using Places config value")
		}
	}

	return &Service{
		config: config,
		logger: logger,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}
}

// Geocode resolves a free-text address to coordinates
func (s *Service) Geocode(ctx context.Context, address string) (*interfaces.GeocodeResult, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", s.apiKey)

	fullURL := fmt.Sprintf("%s?%s", s.config.BaseURL, params.Encode())

	// Redact API key in logs
	s.logger.Debug().
		Str("url", fmt.Sprintf("%s?address=%s&key=***REDACTED***", s.config.BaseURL, url.QueryEscape(address))).
		Msg("Calling geocoding API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call geocoding API: %w", err)
	}
	defer resp.Body.Close()

	var apiResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	if apiResp.Status != "OK" || len(apiResp.Results) == 0 {
		if apiResp.ErrorMessage != "" {
			return nil, fmt.Errorf("geocoding failed: %s - %s", apiResp.Status, apiResp.ErrorMessage)
		}
		return nil, fmt.Errorf("geocoding failed: %s", apiResp.Status)
	}

	result := apiResp.Results[0]
	return &interfaces.GeocodeResult{
		Latitude:         result.Geometry.Location.Lat,
		Longitude:        result.Geometry.Location.Lng,
		FormattedAddress: result.FormattedAddress,
	}, nil
}
