package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
)

// VariableFile represents the structure of a variable in a TOML file
// Format:
//
//	[key_name]
//	value = "some-value"
//	description = "optional description"
type VariableFile struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// loadVariablesFromFiles loads variables from TOML files. It checks for a
// variables.toml file in the given directory, then any .toml files in a
// variables/ subdirectory.
func loadVariablesFromFiles(ctx context.Context, kv interfaces.KeyValueStorage, dirPath string, logger arbor.ILogger) error {
	logger.Debug().Str("dir", dirPath).Msg("Loading variables from files")

	loadedCount := 0
	errorCount := 0

	variablesFile := filepath.Join(dirPath, "variables.toml")
	if _, err := os.Stat(variablesFile); err == nil {
		loaded, errors := loadVariablesFromFile(ctx, kv, variablesFile, logger)
		loadedCount += loaded
		errorCount += errors
	}

	variablesDir := filepath.Join(dirPath, "variables")
	if info, err := os.Stat(variablesDir); err == nil && info.IsDir() {
		entries, err := os.ReadDir(variablesDir)
		if err != nil {
			logger.Warn().Err(err).Str("dir", variablesDir).Msg("Failed to read variables directory")
		} else {
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
					continue
				}
				loaded, errors := loadVariablesFromFile(ctx, kv, filepath.Join(variablesDir, entry.Name()), logger)
				loadedCount += loaded
				errorCount += errors
			}
		}
	}

	logger.Debug().
		Int("loaded", loadedCount).
		Int("errors", errorCount).
		Msg("Finished loading variables from files")

	return nil
}

// loadVariablesFromFile loads variables from a single TOML file
func loadVariablesFromFile(ctx context.Context, kv interfaces.KeyValueStorage, filePath string, logger arbor.ILogger) (loaded, errors int) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		logger.Warn().Err(err).Str("file", filePath).Msg("Failed to read variable file")
		return 0, 1
	}

	// Map of section name (key) to VariableFile struct
	var variables map[string]VariableFile
	if err := toml.Unmarshal(content, &variables); err != nil {
		logger.Warn().Err(err).Str("file", filePath).Msg("Failed to parse variable file")
		return 0, 1
	}

	fileName := filepath.Base(filePath)
	for key, variable := range variables {
		if variable.Value == "" {
			logger.Warn().Str("file", fileName).Str("key", key).Msg("Skipping variable with empty value")
			continue
		}

		description := variable.Description
		if description == "" {
			description = "Loaded from " + fileName
		}

		if err := kv.Set(ctx, key, variable.Value, description); err != nil {
			logger.Error().Err(err).Str("key", key).Msg("Failed to store variable")
			errors++
			continue
		}
		loaded++
	}

	return loaded, errors
}
