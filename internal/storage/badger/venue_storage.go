// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package badger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// kmPerDegreeLat is the approximate surface distance of one degree of
// latitude. Longitude degrees shrink with cos(latitude).
const kmPerDegreeLat = 111.32

// VenueStorage implements the VenueStorage interface for Badger
type VenueStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVenueStorage creates a new VenueStorage instance
func NewVenueStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VenueStorage {
	return &VenueStorage{
		db:     db,
		logger: logger,
	}
}

// upsertAttempts bounds the read-merge-write retry when concurrent
// writers race the same PlaceID.
const upsertAttempts = 5

// Upsert stores a venue keyed on PlaceID. Provider-sourced updates never
// clobber curated fields: capacity and description survive unless the
// incoming record carries its own values.
func (s *VenueStorage) Upsert(ctx context.Context, venue *models.Venue) (*models.Venue, error) {
	if venue.PlaceID == "" {
		return nil, fmt.Errorf("venue place_id is required")
	}

	// Two same-round tool calls can both miss the PlaceID lookup and
	// collide on the unique index, or conflict in badger's transaction.
	// Each retry re-reads so the loser adopts the winning record.
	var err error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		var stored *models.Venue
		stored, err = s.upsertOnce(venue)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, badgerhold.ErrUniqueExists) && !errors.Is(err, badger.ErrConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to upsert venue after %d attempts: %w", upsertAttempts, err)
}

func (s *VenueStorage) upsertOnce(venue *models.Venue) (*models.Venue, error) {
	now := time.Now()

	existing, err := s.getByPlaceID(venue.PlaceID)
	if err != nil && err != interfaces.ErrVenueNotFound {
		return nil, err
	}

	if existing != nil {
		venue.ID = existing.ID
		venue.CreatedAt = existing.CreatedAt
		if venue.Capacity == nil {
			venue.Capacity = existing.Capacity
		}
		if venue.Description == nil {
			venue.Description = existing.Description
		}
	} else {
		if venue.ID == "" {
			venue.ID = common.NewVenueID()
		}
		venue.CreatedAt = now
	}
	venue.UpdatedAt = now

	if err := s.db.Store().Upsert(venue.ID, venue); err != nil {
		return nil, fmt.Errorf("failed to upsert venue: %w", err)
	}

	return venue, nil
}

// UpsertBatch upserts venues one by one, skipping records that fail
func (s *VenueStorage) UpsertBatch(ctx context.Context, venues []*models.Venue) ([]*models.Venue, error) {
	stored := make([]*models.Venue, 0, len(venues))
	for _, venue := range venues {
		v, err := s.Upsert(ctx, venue)
		if err != nil {
			s.logger.Warn().Err(err).Str("place_id", venue.PlaceID).Msg("Failed to upsert venue, skipping")
			continue
		}
		stored = append(stored, v)
	}
	return stored, nil
}

// GetByID retrieves a venue by internal ID, falling back to PlaceID lookup
func (s *VenueStorage) GetByID(ctx context.Context, id string) (*models.Venue, error) {
	var venue models.Venue
	err := s.db.Store().Get(id, &venue)
	if err == nil {
		return &venue, nil
	}
	if err != badgerhold.ErrNotFound {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}

	return s.getByPlaceID(id)
}

func (s *VenueStorage) getByPlaceID(placeID string) (*models.Venue, error) {
	var venues []models.Venue
	err := s.db.Store().Find(&venues, badgerhold.Where("PlaceID").Eq(placeID))
	if err != nil {
		return nil, fmt.Errorf("failed to find venue by place_id: %w", err)
	}
	if len(venues) == 0 {
		return nil, interfaces.ErrVenueNotFound
	}
	return &venues[0], nil
}

// GetByPlaceIDs retrieves the stored venues for the given place IDs.
// Missing IDs are skipped, not errors.
func (s *VenueStorage) GetByPlaceIDs(ctx context.Context, placeIDs []string) ([]*models.Venue, error) {
	result := make([]*models.Venue, 0, len(placeIDs))
	for _, placeID := range placeIDs {
		venue, err := s.getByPlaceID(placeID)
		if err == interfaces.ErrVenueNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, venue)
	}
	return result, nil
}

// FindNear returns venues inside a bounding box around the point. The box
// is a flat-earth approximation of the radius, good enough at venue-search
// scales. Results are ordered by rating descending, unrated venues last.
func (s *VenueStorage) FindNear(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]*models.Venue, error) {
	latDelta := radiusKm / kmPerDegreeLat
	lngDelta := latDelta
	if cosLat := math.Cos(lat * math.Pi / 180); cosLat > 0.01 {
		lngDelta = latDelta / cosLat
	}

	var venues []models.Venue
	query := badgerhold.Where("Latitude").Ge(lat - latDelta).
		And("Latitude").Le(lat + latDelta).
		And("Longitude").Ge(lng - lngDelta).
		And("Longitude").Le(lng + lngDelta)
	if err := s.db.Store().Find(&venues, query); err != nil {
		return nil, fmt.Errorf("failed to find nearby venues: %w", err)
	}

	result := make([]*models.Venue, len(venues))
	for i := range venues {
		result[i] = &venues[i]
	}
	sortByRating(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// FindByFilter returns venues matching the filter criteria. A venue
// missing the data a criterion examines is kept: absence of a rating is
// not a low rating.
func (s *VenueStorage) FindByFilter(ctx context.Context, filter *models.VenueFilter) ([]*models.Venue, error) {
	var venues []models.Venue
	if err := s.db.Store().Find(&venues, nil); err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}

	var textRegex *regexp.Regexp
	if filter != nil && filter.TextTerm != "" {
		textRegex = regexp.MustCompile("(?i)" + regexp.QuoteMeta(filter.TextTerm))
	}

	result := make([]*models.Venue, 0, len(venues))
	for i := range venues {
		v := &venues[i]
		if filter != nil && !matchesFilter(v, filter, textRegex) {
			continue
		}
		result = append(result, v)
	}
	sortByRating(result)

	return result, nil
}

func matchesFilter(v *models.Venue, filter *models.VenueFilter, textRegex *regexp.Regexp) bool {
	if filter.MinRating != nil && v.Rating != nil && *v.Rating < *filter.MinRating {
		return false
	}
	if filter.MaxPriceLevel != nil && v.PriceLevel != nil && *v.PriceLevel > *filter.MaxPriceLevel {
		return false
	}
	if filter.MinCapacity != nil && v.Capacity != nil && *v.Capacity < *filter.MinCapacity {
		return false
	}
	if len(filter.VenueTypes) > 0 && len(v.Types) > 0 && !matchesAnyType(v.Types, filter.VenueTypes) {
		return false
	}
	if textRegex != nil {
		if !textRegex.MatchString(v.Name) && (v.Description == nil || !textRegex.MatchString(*v.Description)) {
			return false
		}
	}
	return true
}

func matchesAnyType(stored, wanted []string) bool {
	for _, want := range wanted {
		want = strings.ToLower(want)
		for _, have := range stored {
			if strings.Contains(strings.ToLower(have), want) {
				return true
			}
		}
	}
	return false
}

// ListAll returns every stored venue
func (s *VenueStorage) ListAll(ctx context.Context) ([]*models.Venue, error) {
	var venues []models.Venue
	if err := s.db.Store().Find(&venues, nil); err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	result := make([]*models.Venue, len(venues))
	for i := range venues {
		result[i] = &venues[i]
	}
	return result, nil
}

// Count returns the number of stored venues
func (s *VenueStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Venue{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count venues: %w", err)
	}
	return int(count), nil
}

// sortByRating orders venues rating descending, nil ratings last, stable
// for equal ratings
func sortByRating(venues []*models.Venue) {
	rating := func(v *models.Venue) float64 {
		if v.Rating == nil {
			return 0
		}
		return *v.Rating
	}
	sort.SliceStable(venues, func(i, j int) bool {
		return rating(venues[i]) > rating(venues[j])
	})
}
