package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/pa-autofill/constants"
)

// Config holds all application configuration
type Config struct {
	AI         AIConfig
	Processing ProcessingConfig
	Paths      PathsConfig
	Server     ServerConfig
	Store      StoreConfig
	LogLevel   string
}

// AIConfig holds generative model settings
type AIConfig struct {
	Provider         constants.Provider
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
	MaxTokens        int
	Temperature      float32
	Timeout          time.Duration
}

// ProcessingConfig holds PDF and retrieval settings
type ProcessingConfig struct {
	DPI               int
	UseOCR            bool
	TesseractBin      string
	ChunkSize         int
	ChunkOverlap      int
	TopK              int
	ContextPrefixLen  int
	MaxImages         int
	MaxImageDimension int
	MaxWorkers        int
	FieldAliases      string // extra "keyword=field" pairs for form widget matching
}

// PathsConfig holds input/output locations
type PathsConfig struct {
	InputDir  string
	OutputDir string
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Host     string
	Port     int
	GRPCAddr string
}

// StoreConfig holds run-history store settings
type StoreConfig struct {
	DSN string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	provider, _ := constants.CanonicalizeProvider(getEnv("AI_PROVIDER", string(constants.ProviderOpenAI)))
	return &Config{
		AI: AIConfig{
			Provider:         provider,
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o"),
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			MaxTokens:        getEnvAsInt("AI_MAX_TOKENS", 4096),
			Temperature:      getEnvAsFloat32("AI_TEMPERATURE", 0.1),
			Timeout:          getEnvAsDuration("AI_TIMEOUT", 120*time.Second),
		},
		Processing: ProcessingConfig{
			DPI:               getEnvAsInt("PDF_DPI", 200),
			UseOCR:            getEnvAsBool("USE_OCR", true),
			TesseractBin:      getEnv("TESSERACT_BIN", "tesseract"),
			ChunkSize:         getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:      getEnvAsInt("CHUNK_OVERLAP", 200),
			TopK:              getEnvAsInt("RETRIEVAL_TOP_K", 3),
			ContextPrefixLen:  getEnvAsInt("CONTEXT_PREFIX_CHARS", 5000),
			MaxImages:         getEnvAsInt("MAX_IMAGES", 10),
			MaxImageDimension: getEnvAsInt("MAX_IMAGE_DIMENSION", 2400),
			MaxWorkers:        getEnvAsInt("MAX_WORKERS", 3),
			FieldAliases:      getEnv("FIELD_ALIASES", ""),
		},
		Paths: PathsConfig{
			InputDir:  getEnv("INPUT_DIR", "Input Data"),
			OutputDir: getEnv("OUTPUT_DIR", "Output"),
		},
		Server: ServerConfig{
			Host:     getEnv("API_HOST", "0.0.0.0"),
			Port:     getEnvAsInt("API_PORT", 8000),
			GRPCAddr: getEnv("GRPC_ADDR", ""),
		},
		Store: StoreConfig{
			DSN: getEnv("STORE_DSN", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}
}

// Clone returns a copy that can be modified without affecting c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// APIKey returns the key of the selected provider.
func (c AIConfig) APIKey() string {
	if c.Provider == constants.ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// Model returns the model identifier of the selected provider.
func (c AIConfig) Model() string {
	if c.Provider == constants.ProviderAnthropic {
		return c.AnthropicModel
	}
	return c.OpenAIModel
}

// SlogLevel maps LogLevel (DEBUG|INFO|WARNING|ERROR) onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(c.LogLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. API keys are not checked here:
// listing folders works without them, and the provider constructors enforce them.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case constants.ProviderOpenAI, constants.ProviderAnthropic:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported AI provider %q", c.AI.Provider), ErrInvalidInput)
	}
	if c.Processing.ChunkSize <= 0 {
		return NewAppError("CONFIG_ERROR", "CHUNK_SIZE must be positive", ErrInvalidInput)
	}
	if c.Processing.ChunkOverlap < 0 || c.Processing.ChunkOverlap >= c.Processing.ChunkSize {
		return NewAppError("CONFIG_ERROR", "CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidInput)
	}
	if c.Processing.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "PDF_DPI must be positive", ErrInvalidInput)
	}
	if c.Processing.MaxWorkers <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Paths.InputDir == "" {
		return NewAppError("CONFIG_ERROR", "INPUT_DIR is required", ErrInvalidInput)
	}
	if c.Paths.OutputDir == "" {
		return NewAppError("CONFIG_ERROR", "OUTPUT_DIR is required", ErrInvalidInput)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewAppError("CONFIG_ERROR", "API_PORT is out of range", ErrInvalidInput)
	}
	return nil
}
