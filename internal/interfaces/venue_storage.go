// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/locus/internal/models"
)

// ErrVenueNotFound is returned when a venue lookup misses.
// A miss is a normal outcome, not a failure.
var ErrVenueNotFound = errors.New("venue not found")

// VenueStorage defines operations for venue persistence
type VenueStorage interface {
	// Upsert stores a venue keyed on its PlaceID. Existing records are
	// updated in place; curated fields (capacity, description) survive
	// provider-sourced updates. Returns the stored record.
	Upsert(ctx context.Context, venue *models.Venue) (*models.Venue, error)

	// UpsertBatch upserts a slice of venues, returning the stored records
	UpsertBatch(ctx context.Context, venues []*models.Venue) ([]*models.Venue, error)

	// GetByID retrieves a venue by internal ID or provider PlaceID.
	// Returns ErrVenueNotFound on miss.
	GetByID(ctx context.Context, id string) (*models.Venue, error)

	// GetByPlaceIDs retrieves venues for the given provider place IDs,
	// skipping any that are not stored
	GetByPlaceIDs(ctx context.Context, placeIDs []string) ([]*models.Venue, error)

	// FindNear returns venues within an approximate radius of a point,
	// ordered by rating descending with unrated venues last
	FindNear(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]*models.Venue, error)

	// FindByFilter returns venues matching the filter. Criteria are
	// permissive: venues missing the examined data are kept.
	FindByFilter(ctx context.Context, filter *models.VenueFilter) ([]*models.Venue, error)

	// ListAll returns every stored venue
	ListAll(ctx context.Context) ([]*models.Venue, error)

	// Count returns the number of stored venues
	Count(ctx context.Context) (int, error)
}
