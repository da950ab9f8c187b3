package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
)

// VenueDataFile is the on-disk shape of a curated venue data file.
// Each file carries any number of [[venues]] entries. Entries referencing
// an already-stored place_id enrich the stored record; entries with full
// location data create manually-entered venues.
//
//	[[venues]]
//	place_id = "ChIJxyz"
//	capacity = 150
//	description = "Converted warehouse with a mezzanine bar"
type VenueDataFile struct {
	Venues []VenueDataEntry `toml:"venues"`
}

// VenueDataEntry is one curated venue record
type VenueDataEntry struct {
	PlaceID     string   `toml:"place_id"`
	Name        string   `toml:"name"`
	Address     string   `toml:"address"`
	Latitude    float64  `toml:"latitude"`
	Longitude   float64  `toml:"longitude"`
	Rating      *float64 `toml:"rating"`
	PriceLevel  *int     `toml:"price_level"`
	PhoneNumber *string  `toml:"phone_number"`
	Website     *string  `toml:"website"`
	Types       []string `toml:"types"`
	Capacity    *int     `toml:"capacity"`
	Description *string  `toml:"description"`
}

// loadVenueDataFromFiles ingests every .toml file in the directory.
// A missing directory is not an error: curated data is optional.
func loadVenueDataFromFiles(ctx context.Context, venues interfaces.VenueStorage, dirPath string, logger arbor.ILogger) error {
	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		logger.Debug().Str("dir", dirPath).Msg("No venue data directory, skipping curated load")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dirPath).Msg("Failed to read venue data directory")
		return nil
	}

	loadedCount := 0
	errorCount := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		loaded, errors := loadVenueDataFile(ctx, venues, filepath.Join(dirPath, entry.Name()), logger)
		loadedCount += loaded
		errorCount += errors
	}

	logger.Info().
		Str("dir", dirPath).
		Int("loaded", loadedCount).
		Int("errors", errorCount).
		Msg("Finished loading curated venue data")

	return nil
}

func loadVenueDataFile(ctx context.Context, venues interfaces.VenueStorage, filePath string, logger arbor.ILogger) (loaded, errors int) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		logger.Warn().Err(err).Str("file", filePath).Msg("Failed to read venue data file")
		return 0, 1
	}

	var file VenueDataFile
	if err := toml.Unmarshal(content, &file); err != nil {
		logger.Warn().Err(err).Str("file", filePath).Msg("Failed to parse venue data file")
		return 0, 1
	}

	fileName := filepath.Base(filePath)
	for _, entry := range file.Venues {
		if entry.PlaceID == "" {
			logger.Warn().Str("file", fileName).Msg("Skipping venue entry with empty place_id")
			errors++
			continue
		}

		venue, err := mergeCuratedEntry(ctx, venues, entry)
		if err != nil {
			logger.Error().Err(err).Str("place_id", entry.PlaceID).Msg("Failed to resolve curated venue entry")
			errors++
			continue
		}

		if _, err := venues.Upsert(ctx, venue); err != nil {
			logger.Error().Err(err).Str("place_id", entry.PlaceID).Msg("Failed to store curated venue")
			errors++
			continue
		}
		loaded++
	}

	return loaded, errors
}

// mergeCuratedEntry layers a curated entry over the stored record when one
// exists, so a file that only sets capacity does not blank provider fields
func mergeCuratedEntry(ctx context.Context, venues interfaces.VenueStorage, entry VenueDataEntry) (*models.Venue, error) {
	venue := &models.Venue{PlaceID: entry.PlaceID}

	existing, err := venues.GetByID(ctx, entry.PlaceID)
	if err != nil && err != interfaces.ErrVenueNotFound {
		return nil, err
	}
	if existing != nil {
		*venue = *existing
	}

	if entry.Name != "" {
		venue.Name = entry.Name
	}
	if venue.Name == "" {
		venue.Name = "Unknown Venue"
	}
	if entry.Address != "" {
		venue.Address = entry.Address
	}
	if entry.Latitude != 0 || entry.Longitude != 0 {
		venue.Latitude = entry.Latitude
		venue.Longitude = entry.Longitude
	}
	if entry.Rating != nil {
		venue.Rating = entry.Rating
	}
	if entry.PriceLevel != nil {
		venue.PriceLevel = entry.PriceLevel
	}
	if entry.PhoneNumber != nil {
		venue.PhoneNumber = entry.PhoneNumber
	}
	if entry.Website != nil {
		venue.Website = entry.Website
	}
	if len(entry.Types) > 0 {
		venue.Types = entry.Types
	}
	if entry.Capacity != nil {
		venue.Capacity = entry.Capacity
	}
	if entry.Description != nil {
		venue.Description = entry.Description
	}

	return venue, nil
}
