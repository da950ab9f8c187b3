package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestVenueStorage(t *testing.T) interfaces.VenueStorage {
	t.Helper()

	tmpDir := t.TempDir()
	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewVenueStorage(db, arbor.NewLogger())
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func TestUpsertPreservesCuratedFields(t *testing.T) {
	storage := newTestVenueStorage(t)
	ctx := context.Background()

	first := &models.Venue{
		PlaceID:     "place-a",
		Name:        "The Old Barn",
		Address:     "1 Farm Rd",
		Latitude:    40.7,
		Longitude:   -73.99,
		Rating:      floatPtr(4.2),
		Capacity:    intPtr(150),
		Description: strPtr("Rustic barn with exposed beams"),
	}
	if _, err := storage.Upsert(ctx, first); err != nil {
		t.Fatalf("Failed to upsert venue: %v", err)
	}

	// Provider refresh carries no curated fields
	update := &models.Venue{
		PlaceID:   "place-a",
		Name:      "The Old Barn & Gardens",
		Address:   "1 Farm Road",
		Latitude:  40.7,
		Longitude: -73.99,
		Rating:    floatPtr(4.5),
	}
	stored, err := storage.Upsert(ctx, update)
	if err != nil {
		t.Fatalf("Failed to upsert update: %v", err)
	}

	if stored.Name != "The Old Barn & Gardens" {
		t.Errorf("Provider field not overwritten: got %q", stored.Name)
	}
	if stored.Rating == nil || *stored.Rating != 4.5 {
		t.Error("Rating not updated")
	}
	if stored.Capacity == nil || *stored.Capacity != 150 {
		t.Error("Curated capacity lost on provider update")
	}
	if stored.Description == nil || *stored.Description != "Rustic barn with exposed beams" {
		t.Error("Curated description lost on provider update")
	}

	// Same PlaceID must not create a second record
	count, err := storage.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 venue after repeated upsert, got %d", count)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	storage := newTestVenueStorage(t)
	ctx := context.Background()

	venue := &models.Venue{
		PlaceID:  "place-b",
		Name:     "Vineyard Hall",
		Address:  "2 Wine Way",
		Latitude: 40.71,
	}

	stored1, err := storage.Upsert(ctx, venue)
	if err != nil {
		t.Fatal(err)
	}
	stored2, err := storage.Upsert(ctx, &models.Venue{
		PlaceID:  "place-b",
		Name:     "Vineyard Hall",
		Address:  "2 Wine Way",
		Latitude: 40.71,
	})
	if err != nil {
		t.Fatal(err)
	}

	if stored1.ID != stored2.ID {
		t.Errorf("Idempotent upsert changed the record ID: %q vs %q", stored1.ID, stored2.ID)
	}
}

func TestUpsertConcurrentSamePlaceID(t *testing.T) {
	storage := newTestVenueStorage(t)
	ctx := context.Background()

	// Same-round tool calls can upsert the same place in parallel. No
	// writer may fail on the PlaceID unique index and only one record
	// may remain.
	const writers = 4
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = storage.Upsert(ctx, &models.Venue{
				PlaceID: "place-race",
				Name:    fmt.Sprintf("Writer %d Hall", i),
				Rating:  floatPtr(4.0),
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Concurrent upsert %d failed: %v", i, err)
		}
	}

	count, err := storage.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 venue after concurrent upserts, got %d", count)
	}

	venue, err := storage.GetByID(ctx, "place-race")
	if err != nil {
		t.Fatalf("Failed to fetch venue after concurrent upserts: %v", err)
	}
	if venue.PlaceID != "place-race" {
		t.Errorf("Unexpected venue survived: %q", venue.PlaceID)
	}
}

func TestGetByIDFallsBackToPlaceID(t *testing.T) {
	storage := newTestVenueStorage(t)
	ctx := context.Background()

	stored, err := storage.Upsert(ctx, &models.Venue{
		PlaceID: "place-c",
		Name:    "Rooftop 21",
	})
	if err != nil {
		t.Fatal(err)
	}

	byID, err := storage.GetByID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("Lookup by internal ID failed: %v", err)
	}
	if byID.PlaceID != "place-c" {
		t.Errorf("Wrong venue returned: %q", byID.PlaceID)
	}

	byPlaceID, err := storage.GetByID(ctx, "place-c")
	if err != nil {
		t.Fatalf("Lookup by place ID failed: %v", err)
	}
	if byPlaceID.ID != stored.ID {
		t.Errorf("Place ID lookup returned different record")
	}

	if _, err := storage.GetByID(ctx, "nonexistent-id"); err != interfaces.ErrVenueNotFound {
		t.Errorf("Expected ErrVenueNotFound, got %v", err)
	}
}

func TestFindNearBoundingBox(t *testing.T) {
	storage := newTestVenueStorage(t)
	ctx := context.Background()

	// Center: Brooklyn. 10km latitude delta is about 0.0898 degrees.
	venues := []*models.Venue{
		{PlaceID: "inside-1", Name: "Close", Latitude: 40.70, Longitude: -73.99, Rating: floatPtr(4.0)},
		{PlaceID: "inside-2", Name: "Near Edge", Latitude: 40.75, Longitude: -73.95, Rating: floatPtr(4.8)},
		{PlaceID: "outside-lat", Name: "Too Far North", Latitude: 41.50, Longitude: -73.99},
		{PlaceID: "outside-lng", Name: "Too Far East", Latitude: 40.70, Longitude: -72.00},
	}
	if _, err := storage.UpsertBatch(ctx, venues); err != nil {
		t.Fatal(err)
	}

	found, err := storage.FindNear(ctx, 40.70, -73.99, 10, 60)
	if err != nil {
		t.Fatal(err)
	}

	ids := make(map[string]bool)
	for _, v := range found {
		ids[v.PlaceID] = true
	}
	if !ids["inside-1"] || !ids["inside-2"] {
		t.Errorf("Venues inside the box missing from results: %v", ids)
	}
	if ids["outside-lat"] || ids["outside-lng"] {
		t.Errorf("Venues outside the box returned: %v", ids)
	}

	// Ordered by rating descending
	if len(found) >= 2 && found[0].PlaceID != "inside-2" {
		t.Errorf("Expected highest rated venue first, got %q", found[0].PlaceID)
	}
}

func TestFindNearLimit(t *testing.T) {
	storage := newTestVenueStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rating := float64(i) + 0.5
		_, err := storage.Upsert(ctx, &models.Venue{
			PlaceID:   string(rune('a' + i)),
			Name:      "Venue",
			Latitude:  40.70,
			Longitude: -73.99,
			Rating:    &rating,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	found, err := storage.FindNear(ctx, 40.70, -73.99, 5, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 3 {
		t.Errorf("Expected limit of 3 results, got %d", len(found))
	}
}

func TestFindByFilterPermissive(t *testing.T) {
	storage := newTestVenueStorage(t)
	ctx := context.Background()

	venues := []*models.Venue{
		{PlaceID: "rated-high", Name: "Grand Hall", Rating: floatPtr(4.5), PriceLevel: intPtr(3)},
		{PlaceID: "rated-low", Name: "Side Room", Rating: floatPtr(4.0)},
		{PlaceID: "unrated", Name: "Mystery Loft"},
	}
	if _, err := storage.UpsertBatch(ctx, venues); err != nil {
		t.Fatal(err)
	}

	// Empty filter returns everything
	all, err := storage.FindByFilter(ctx, &models.VenueFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("Empty filter should return all venues, got %d", len(all))
	}

	// minRating excludes low ratings but keeps missing ratings
	filtered, err := storage.FindByFilter(ctx, &models.VenueFilter{MinRating: floatPtr(4.5)})
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[string]bool)
	for _, v := range filtered {
		ids[v.PlaceID] = true
	}
	if !ids["rated-high"] {
		t.Error("Venue meeting minRating excluded")
	}
	if ids["rated-low"] {
		t.Error("Venue below minRating included")
	}
	if !ids["unrated"] {
		t.Error("Venue with no rating excluded; missing data must not exclude")
	}
}

func TestFindByFilterTypesAndText(t *testing.T) {
	storage := newTestVenueStorage(t)
	ctx := context.Background()

	venues := []*models.Venue{
		{PlaceID: "barn", Name: "Hudson Barn", Types: []string{"event_venue", "barn"}},
		{PlaceID: "gallery", Name: "Art Gallery Loft", Types: []string{"art_gallery"}, Description: strPtr("Industrial loft space for events")},
		{PlaceID: "untyped", Name: "Plain Venue"},
	}
	if _, err := storage.UpsertBatch(ctx, venues); err != nil {
		t.Fatal(err)
	}

	byType, err := storage.FindByFilter(ctx, &models.VenueFilter{VenueTypes: []string{"BARN"}})
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[string]bool)
	for _, v := range byType {
		ids[v.PlaceID] = true
	}
	if !ids["barn"] {
		t.Error("Case-insensitive type match failed")
	}
	if ids["gallery"] {
		t.Error("Non-matching typed venue included")
	}
	if !ids["untyped"] {
		t.Error("Untyped venue excluded; missing data must not exclude")
	}

	byText, err := storage.FindByFilter(ctx, &models.VenueFilter{TextTerm: "loft"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byText) != 1 || byText[0].PlaceID != "gallery" {
		t.Errorf("Text term should match name or description, got %d results", len(byText))
	}
}
