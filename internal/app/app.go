// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/handlers"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/services/chat"
	"github.com/ternarybob/locus/internal/services/geocode"
	"github.com/ternarybob/locus/internal/services/llm"
	"github.com/ternarybob/locus/internal/services/places"
	"github.com/ternarybob/locus/internal/services/venues"
	"github.com/ternarybob/locus/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager *badger.Manager

	// Provider adapters
	PlacesService  interfaces.PlacesService
	GeocodeService interfaces.GeocodeService

	// Model provider
	LLMService interfaces.LLMService

	// Domain services
	VenueService *venues.Service
	ChatService  interfaces.ChatService

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	VenueHandler   *handlers.VenueHandler
	GeocodeHandler *handlers.GeocodeHandler
	PhotoHandler   *handlers.PhotoHandler
	ChatHandler    *handlers.ChatHandler
}

// New initializes the application with all dependencies. The config is
// cloned before key-reference resolution writes secrets into it, so the
// caller's copy stays secret-free.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: common.DeepCloneConfig(cfg),
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer (Badger) and loads
// file-sourced variables and curated venue data
func (a *App) initStorage() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = manager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	ctx := context.Background()

	// Variables (API keys etc.) must load before services resolve keys
	if err := manager.LoadVariablesFromFiles(ctx, a.Config.Variables.Dir); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load variables from files")
	}

	// .env entries take precedence over TOML-sourced variables
	if err := manager.LoadEnvFile(ctx, ".env"); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	// Curated venue data layers over provider-sourced records
	if err := manager.LoadVenueDataFromFiles(ctx, a.Config.VenueData.Dir); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load curated venue data")
	}

	// Resolve {key-name} references in config values now that the KV
	// store is populated
	if kvMap, err := manager.KeyValueStorage().GetAll(ctx); err == nil && len(kvMap) > 0 {
		if err := common.ReplaceInStruct(a.Config, kvMap, a.Logger); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to replace key references in config")
		}
	}

	return nil
}

// initServices wires the provider adapters, the model provider, and the
// domain services
func (a *App) initServices() error {
	kvStorage := a.StorageManager.KeyValueStorage()

	a.PlacesService = places.NewService(&a.Config.PlacesAPI, kvStorage, a.Logger)
	a.GeocodeService = geocode.NewService(&a.Config.GeocodeAPI, &a.Config.PlacesAPI, kvStorage, a.Logger)

	a.VenueService = venues.NewService(a.StorageManager.VenueStorage(), a.Logger)

	llmService, err := llm.NewLLMService(a.Config, kvStorage, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}
	a.LLMService = llmService

	// Soft-fail: a dead provider should not block startup, turns will
	// surface the failure per request
	healthCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.LLMService.HealthCheck(healthCtx); err != nil {
		a.Logger.Warn().Err(err).Msg("LLM health check failed at startup, continuing anyway")
	}

	a.ChatService = chat.NewService(a.Config, a.LLMService, a.PlacesService, a.VenueService, a.Logger)

	return nil
}

// initHandlers creates the HTTP and websocket handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.VenueHandler = handlers.NewVenueHandler(a.PlacesService, a.VenueService, a.Logger)
	a.GeocodeHandler = handlers.NewGeocodeHandler(a.GeocodeService, a.Logger)
	a.PhotoHandler = handlers.NewPhotoHandler(a.PlacesService, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, &a.Config.WebSocket, a.Logger)
}

// Close shuts down application components in reverse dependency order
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application components...")

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage manager")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
