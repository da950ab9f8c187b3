package interfaces

import (
	"context"

	"github.com/ternarybob/locus/internal/models"
)

// PlacesService defines the interface for the external places provider
type PlacesService interface {
	// SearchText performs a free-text place search biased to a circular
	// area and maps the results into venue records. The returned venues
	// are not yet persisted.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - query: Free-text search phrase, e.g. "rooftop wedding venue"
	//   - lat, lng: Center of the search bias circle
	//   - radiusMeters: Radius of the search bias circle
	//
	// Returns:
	//   - []*models.Venue: Mapped provider results (at most the configured page size)
	//   - error: *ProviderError on upstream failure
	SearchText(ctx context.Context, query string, lat, lng float64, radiusMeters float64) ([]*models.Venue, error)

	// PhotoURL builds the public URL for a provider photo reference.
	// Pure construction, no network traffic.
	PhotoURL(photoRef string, maxWidthPx int) string

	// FetchPhoto retrieves the photo bytes for a provider photo reference,
	// returning the content type alongside the payload
	FetchPhoto(ctx context.Context, photoRef string, maxWidthPx int) ([]byte, string, error)
}

// GeocodeResult is a resolved location for a free-text address
type GeocodeResult struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}

// GeocodeService resolves free-text locations to coordinates
type GeocodeService interface {
	// Geocode resolves an address or place name to coordinates.
	// Returns an error when the upstream reports no results.
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
}
