// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package venues

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
)

// Service wraps venue storage with the operations tools and handlers need
type Service struct {
	storage interfaces.VenueStorage
	logger  arbor.ILogger
}

// NewService creates a new venue service
func NewService(storage interfaces.VenueStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// UpsertBatch stores provider results, preserving curated fields on
// existing records
func (s *Service) UpsertBatch(ctx context.Context, venues []*models.Venue) ([]*models.Venue, error) {
	stored, err := s.storage.UpsertBatch(ctx, venues)
	if err != nil {
		return nil, fmt.Errorf("failed to store venues: %w", err)
	}
	s.logger.Debug().Int("count", len(stored)).Msg("Stored venue batch")
	return stored, nil
}

// Get retrieves a venue by ID or place ID
func (s *Service) Get(ctx context.Context, id string) (*models.Venue, error) {
	return s.storage.GetByID(ctx, id)
}

// Nearby returns stored venues around a point, rating descending
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]*models.Venue, error) {
	return s.storage.FindNear(ctx, lat, lng, radiusKm, limit)
}

// ByPlaceIDs returns the stored venues for a set of place IDs
func (s *Service) ByPlaceIDs(ctx context.Context, placeIDs []string) ([]*models.Venue, error) {
	return s.storage.GetByPlaceIDs(ctx, placeIDs)
}

// Filter returns stored venues matching the criteria
func (s *Service) Filter(ctx context.Context, filter *models.VenueFilter) ([]*models.Venue, error) {
	return s.storage.FindByFilter(ctx, filter)
}

// Count returns the number of stored venues
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storage.Count(ctx)
}
