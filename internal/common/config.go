package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/locus/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	PlacesAPI   PlacesAPIConfig `toml:"places_api"`
	GeocodeAPI  GeocodeConfig   `toml:"geocode_api"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Chat        ChatConfig      `toml:"chat"`
	VenueData   VenueDataConfig `toml:"venue_data"`
	Variables   KeysDirConfig   `toml:"variables"` // Variables directory (./keys/*.toml) for key/value pairs
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// WebSocketConfig contains configuration for chat streaming connections
type WebSocketConfig struct {
	ReadLimit      int64  `toml:"read_limit"`      // Max inbound frame size in bytes
	WriteTimeout   string `toml:"write_timeout"`   // Per-frame write deadline (duration string)
	PingInterval   string `toml:"ping_interval"`   // Keepalive ping interval (duration string)
	MessagesPerMin int    `toml:"messages_per_min"` // Inbound user message rate limit per connection
}

// PlacesAPIConfig contains Google Places API configuration
type PlacesAPIConfig struct {
	APIKey              string        `toml:"api_key"`                // Google Places API key
	BaseURL             string        `toml:"base_url"`               // Override for tests (default: Google endpoint)
	RateLimit           time.Duration `toml:"rate_limit"`             // Minimum time between API requests
	RequestTimeout      time.Duration `toml:"request_timeout"`        // HTTP request timeout
	MaxResultsPerSearch int           `toml:"max_results_per_search"` // Google Places API limit per request
}

// GeocodeConfig contains Google Geocoding API configuration
type GeocodeConfig struct {
	APIKey         string        `toml:"api_key"`         // Falls back to the Places key when empty
	BaseURL        string        `toml:"base_url"`        // Override for tests (default: Google endpoint)
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
}

// GeminiConfig contains Google Gemini API configuration for AI services
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for AI operations (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration for AI services
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key for Claude operations
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "claude")
}

// ChatConfig contains agent loop limits and defaults
type ChatConfig struct {
	MaxSteps        int     `toml:"max_steps"`         // Max model round-trips per user turn (default: 5)
	TurnTimeout     string  `toml:"turn_timeout"`      // Overall per-turn timeout (default: "3m")
	HistoryMessages int     `toml:"history_messages"`  // Transcript tail sent to the model (default: 20)
	DefaultRadiusKm float64 `toml:"default_radius_km"` // Search radius when the session omits one (default: 25)
}

// VenueDataConfig contains configuration for curated venue data files
type VenueDataConfig struct {
	Dir string `toml:"dir"` // Directory containing curated venue TOML files
}

// KeysDirConfig contains configuration for key/value file loading
type KeysDirConfig struct {
	Dir string `toml:"dir"` // Directory containing variable files (TOML)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in locus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		WebSocket: WebSocketConfig{
			ReadLimit:      32 * 1024,
			WriteTimeout:   "10s",
			PingInterval:   "30s",
			MessagesPerMin: 30,
		},
		PlacesAPI: PlacesAPIConfig{
			APIKey:              "", // User must provide API key in config file
			BaseURL:             "https://places.googleapis.com/v1",
			RateLimit:           1 * time.Second, // Respects Google API quotas
			RequestTimeout:      30 * time.Second,
			MaxResultsPerSearch: 20, // Google Places API limit per request
		},
		GeocodeAPI: GeocodeConfig{
			APIKey:         "",
			BaseURL:        "https://maps.googleapis.com/maps/api/geocode/json",
			RequestTimeout: 15 * time.Second,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-3-flash-preview",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // ANTHROPIC_API_KEY or config
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Chat: ChatConfig{
			MaxSteps:        5,
			TurnTimeout:     "3m",
			HistoryMessages: 20,
			DefaultRadiusKm: 25,
		},
		VenueData: VenueDataConfig{
			Dir: "./venue-data",
		},
		Variables: KeysDirConfig{
			Dir: "./",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// kvStorage can be nil (key reference replacement is skipped)
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Perform {key-name} replacement if KV storage is available
	if kvStorage != nil {
		ctx := context.Background()
		kvMap, err := kvStorage.GetAll(ctx)
		if err != nil {
			logger := arbor.NewLogger()
			logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
		} else {
			logger := arbor.NewLogger()
			if err := ReplaceInStruct(config, kvMap, logger); err != nil {
				logger.Warn().Err(err).Msg("Failed to replace key references in config")
			}
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: LOCUS_ENV, fallback: GO_ENV)
	if env := os.Getenv("LOCUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("LOCUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("LOCUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("LOCUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("LOCUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOCUS_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("LOCUS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Places API configuration
	if apiKey := os.Getenv("LOCUS_PLACES_API_KEY"); apiKey != "" {
		config.PlacesAPI.APIKey = apiKey
	} else if apiKey := os.Getenv("GOOGLE_PLACES_API_KEY"); apiKey != "" {
		config.PlacesAPI.APIKey = apiKey
	}
	if rateLimit := os.Getenv("LOCUS_PLACES_RATE_LIMIT"); rateLimit != "" {
		if rl, err := time.ParseDuration(rateLimit); err == nil {
			config.PlacesAPI.RateLimit = rl
		}
	}

	// Geocode configuration
	if apiKey := os.Getenv("LOCUS_GEOCODE_API_KEY"); apiKey != "" {
		config.GeocodeAPI.APIKey = apiKey
	}

	// Gemini configuration
	if apiKey := os.Getenv("LOCUS_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("LOCUS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("LOCUS_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if temperature := os.Getenv("LOCUS_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("LOCUS_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // LOCUS_ prefix takes priority
	}
	if model := os.Getenv("LOCUS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("LOCUS_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("LOCUS_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if temperature := os.Getenv("LOCUS_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("LOCUS_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Chat configuration
	if maxSteps := os.Getenv("LOCUS_CHAT_MAX_STEPS"); maxSteps != "" {
		if ms, err := strconv.Atoi(maxSteps); err == nil && ms > 0 {
			config.Chat.MaxSteps = ms
		}
	}
	if turnTimeout := os.Getenv("LOCUS_CHAT_TURN_TIMEOUT"); turnTimeout != "" {
		if _, err := time.ParseDuration(turnTimeout); err == nil {
			config.Chat.TurnTimeout = turnTimeout
		}
	}
	if defaultRadius := os.Getenv("LOCUS_CHAT_DEFAULT_RADIUS_KM"); defaultRadius != "" {
		if r, err := strconv.ParseFloat(defaultRadius, 64); err == nil && r > 0 {
			config.Chat.DefaultRadiusKm = r
		}
	}

	// Venue data configuration
	if venueDataDir := os.Getenv("LOCUS_VENUE_DATA_DIR"); venueDataDir != "" {
		config.VenueData.Dir = venueDataDir
	}

	// Variables configuration
	if variablesDir := os.Getenv("LOCUS_VARIABLES_DIR"); variablesDir != "" {
		config.Variables.Dir = variablesDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables -> KV store -> config fallback -> error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"LOCUS_GEMINI_API_KEY"},
		"anthropic_api_key": {"LOCUS_CLAUDE_API_KEY"},
		"claude_api_key":    {"LOCUS_CLAUDE_API_KEY"},
		"places_api_key":    {"LOCUS_PLACES_API_KEY", "GOOGLE_PLACES_API_KEY"},
		"geocode_api_key":   {"LOCUS_GEOCODE_API_KEY"},
	}

	// For Claude, also check the standard ANTHROPIC_API_KEY env var
	if name == "anthropic_api_key" || name == "claude_api_key" {
		if envValue := os.Getenv("ANTHROPIC_API_KEY"); envValue != "" {
			return envValue, nil
		}
	}

	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Try to resolve from KV store (file-based variables)
	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ParseDuration parses a duration string, returning the fallback on empty or invalid input
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	return &clone
}
