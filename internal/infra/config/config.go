// Package config provides application-wide configuration loaded once at startup.
// Sources, lowest precedence first: built-in defaults, an optional YAML/TOML file
// named by RAG_CONFIG_FILE, then environment variables.
// All fields have safe defaults so the binary runs locally without any env setup.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Config holds runtime configuration for ragline. Built by Load and passed
// into constructors; nothing else reads the environment.
type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Store   StoreConfig
	RAG     RAGConfig
	Auth    AuthConfig
	Log     LogConfig
	// ClientBaseURL is where the CLI reaches a running server (RAG_BASE_URL).
	ClientBaseURL string
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host         string        // RAG_HOST: default: "0.0.0.0"
	Port         int           // RAG_PORT (or PORT): default: 8080
	ReadTimeout  time.Duration // RAG_READ_TIMEOUT: default: 15s
	WriteTimeout time.Duration // RAG_WRITE_TIMEOUT: default: 120s (chat calls are slow)
	IdleTimeout  time.Duration // RAG_IDLE_TIMEOUT: default: 60s
}

// GatewayConfig selects and tunes the embedding and chat backends.
type GatewayConfig struct {
	EmbedProvider   string        // RAG_EMBED_PROVIDER: "openai" | "ollama", default: "openai"
	ChatProvider    string        // RAG_CHAT_PROVIDER: default: "openai"
	OpenAIBaseURL   string        // OPENAI_BASE_URL: default: "https://api.openai.com/v1"
	OpenAIAPIKey    string        // OPENAI_API_KEY
	ChatModel       string        // RAG_CHAT_MODEL: default: "gpt-4o-mini"
	EmbeddingModel  string        // RAG_EMBEDDING_MODEL: default: "text-embedding-3-small"
	OllamaBaseURL   string        // OLLAMA_BASE_URL: default: "http://localhost:11434"
	OllamaModel     string        // OLLAMA_MODEL: default: "nomic-embed-text" (embed model, 768 dims)
	OllamaChatModel string        // OLLAMA_CHAT_MODEL: default: "llama3.2:3b"
	Timeout         time.Duration // RAG_GATEWAY_TIMEOUT: default: 30s
	MaxRetries      int           // RAG_GATEWAY_MAX_RETRIES: default: 0
	RateLimit       float64       // RAG_GATEWAY_RATE_LIMIT: requests/s, default: 0 (unlimited)
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Driver     string // RAG_STORE_DRIVER: "sqlite" | "postgres" | "file", default: "sqlite"
	Path       string // RAG_VECTOR_STORE_PATH: default derived from the embedding model
	DSN        string // DATABASE_URL: postgres only
	Table      string // RAG_TABLE: default: "rag_documents"
	Dimensions int    // RAG_EMBEDDING_DIMENSIONS: 0 = unknown (no ANN index)
}

// RAGConfig holds pipeline defaults.
type RAGConfig struct {
	ChunkSize           int     // RAG_CHUNK_SIZE: default: 512
	ChunkOverlap        int     // RAG_CHUNK_OVERLAP: default: 50
	TopK                int     // RAG_TOP_K: default: 6, at most 100
	KeywordTopK         int     // RAG_KEYWORD_TOP_K: keyword candidates per query, default: 0 (off)
	SimilarityThreshold float64 // RAG_SIMILARITY_THRESHOLD: default: 0.35
	SeedPath            string  // RAG_SEED_PATH: default: "seed.json"
	UseAgent            bool    // USE_AGENT: default: true (llm answers)
}

// AuthConfig enables bearer-token auth on /rag/* when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string // RAG_JWT_SECRET
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string // RAG_LOG_LEVEL: "debug" | "info" | "warn" | "error", default: "info"
	Format string // RAG_LOG_FORMAT: "text" | "json", default: "text"
}

const (
	envKeyConfigFile = "RAG_CONFIG_FILE"

	envKeyHost         = "RAG_HOST"
	envKeyPort         = "RAG_PORT"
	envKeyPortFallback = "PORT"
	envKeyReadTimeout  = "RAG_READ_TIMEOUT"
	envKeyWriteTimeout = "RAG_WRITE_TIMEOUT"
	envKeyIdleTimeout  = "RAG_IDLE_TIMEOUT"

	envKeyEmbedProvider   = "RAG_EMBED_PROVIDER"
	envKeyChatProvider    = "RAG_CHAT_PROVIDER"
	envKeyOpenAIBaseURL   = "OPENAI_BASE_URL"
	envKeyOpenAIAPIKey    = "OPENAI_API_KEY"
	envKeyChatModel       = "RAG_CHAT_MODEL"
	envKeyEmbeddingModel  = "RAG_EMBEDDING_MODEL"
	envKeyOllamaBaseURL   = "OLLAMA_BASE_URL"
	envKeyOllamaModel     = "OLLAMA_MODEL"
	envKeyOllamaChatModel = "OLLAMA_CHAT_MODEL"
	envKeyGatewayTimeout  = "RAG_GATEWAY_TIMEOUT"
	envKeyGatewayRetries  = "RAG_GATEWAY_MAX_RETRIES"
	envKeyGatewayRate     = "RAG_GATEWAY_RATE_LIMIT"

	envKeyStoreDriver = "RAG_STORE_DRIVER"
	envKeyStorePath   = "RAG_VECTOR_STORE_PATH"
	envKeyDatabaseURL = "DATABASE_URL"
	envKeyTable       = "RAG_TABLE"
	envKeyDimensions  = "RAG_EMBEDDING_DIMENSIONS"

	envKeyChunkSize    = "RAG_CHUNK_SIZE"
	envKeyChunkOverlap = "RAG_CHUNK_OVERLAP"
	envKeyTopK         = "RAG_TOP_K"
	envKeyKeywordTopK  = "RAG_KEYWORD_TOP_K"
	envKeyThreshold    = "RAG_SIMILARITY_THRESHOLD"
	envKeySeedPath     = "RAG_SEED_PATH"
	envKeyUseAgent     = "USE_AGENT"

	envKeyJWTSecret = "RAG_JWT_SECRET"
	envKeyLogLevel  = "RAG_LOG_LEVEL"
	envKeyLogFormat = "RAG_LOG_FORMAT"
	envKeyBaseURL   = "RAG_BASE_URL"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// maxTopK is the largest result count a query may ask for.
const maxTopK = 100

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Gateway: GatewayConfig{
			EmbedProvider:   "openai",
			ChatProvider:    "openai",
			OpenAIBaseURL:   "https://api.openai.com/v1",
			ChatModel:       "gpt-4o-mini",
			EmbeddingModel:  "text-embedding-3-small",
			OllamaBaseURL:   "http://localhost:11434",
			OllamaModel:     "nomic-embed-text",
			OllamaChatModel: "llama3.2:3b",
			Timeout:         30 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			Table:  "rag_documents",
		},
		RAG: RAGConfig{
			ChunkSize:           512,
			ChunkOverlap:        50,
			TopK:                6,
			SimilarityThreshold: 0.35,
			SeedPath:            "seed.json",
			UseAgent:            true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		ClientBaseURL: "http://localhost:8080",
	}
}

// Load builds the configuration from defaults, the optional config file named
// by RAG_CONFIG_FILE and env vars.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(envKeyConfigFile))
}

// LoadFrom is Load with an explicit config file; an empty path skips the file.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverSQLite, DriverFile:
	case DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store driver %q", c.Store.Driver))
	}
	for _, p := range []string{c.Gateway.EmbedProvider, c.Gateway.ChatProvider} {
		if p != "openai" && p != "ollama" {
			errs = append(errs, fmt.Errorf("config: unknown gateway provider %q", p))
		}
	}
	if !tableNamePattern.MatchString(c.Store.Table) {
		errs = append(errs, fmt.Errorf("config: invalid table name %q", c.Store.Table))
	}
	if c.RAG.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("config: chunk size must be >= 1, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("config: chunk overlap must be >= 0, got %d", c.RAG.ChunkOverlap))
	}
	if c.RAG.ChunkSize >= 1 && c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("config: chunk overlap %d must be smaller than chunk size %d", c.RAG.ChunkOverlap, c.RAG.ChunkSize))
	}
	if c.RAG.TopK < 1 || c.RAG.TopK > maxTopK {
		errs = append(errs, fmt.Errorf("config: top k must be between 1 and %d, got %d", maxTopK, c.RAG.TopK))
	}
	if c.RAG.KeywordTopK < 0 || c.RAG.KeywordTopK > maxTopK {
		errs = append(errs, fmt.Errorf("config: keyword top k must be between 0 and %d, got %d", maxTopK, c.RAG.KeywordTopK))
	}
	if t := c.RAG.SimilarityThreshold; math.IsNaN(t) || t < -1 || t > 1 {
		errs = append(errs, fmt.Errorf("config: similarity threshold must be within [-1, 1], got %v", t))
	}
	if c.Gateway.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("config: max retries must be >= 0, got %d", c.Gateway.MaxRetries))
	}
	if c.Gateway.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("config: rate limit must be >= 0, got %v", c.Gateway.RateLimit))
	}
	return errors.Join(errs...)
}

// ActiveEmbeddingModel is the model name the embed provider will use.
func (c Config) ActiveEmbeddingModel() string {
	if c.Gateway.EmbedProvider == "ollama" {
		return c.Gateway.OllamaModel
	}
	return c.Gateway.EmbeddingModel
}

// StorePath returns the configured store location, or a default keyed by the
// embedding model so stores built with different models never mix.
func (c Config) StorePath() string {
	if c.Store.Driver == DriverPostgres {
		return c.Store.Table
	}
	if c.Store.Path != "" {
		return c.Store.Path
	}
	safe := SafeName(c.ActiveEmbeddingModel())
	if c.Store.Driver == DriverFile {
		return filepath.Join(".", "vector_store."+safe+".json")
	}
	return filepath.Join(".", "ragline."+safe+".db")
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SafeName replaces runs of characters outside [A-Za-z0-9_-] with "_".
func SafeName(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(dst *string, key string) { *dst = envOr(key, *dst) }
	num := func(dst *int, key string) {
		if err := envInt(dst, key); err != nil {
			errs = append(errs, err)
		}
	}
	flt := func(dst *float64, key string) {
		if err := envFloat(dst, key); err != nil {
			errs = append(errs, err)
		}
	}
	dur := func(dst *time.Duration, key string) {
		if err := envDuration(dst, key); err != nil {
			errs = append(errs, err)
		}
	}

	str(&cfg.Server.Host, envKeyHost)
	num(&cfg.Server.Port, envKeyPortFallback)
	num(&cfg.Server.Port, envKeyPort)
	dur(&cfg.Server.ReadTimeout, envKeyReadTimeout)
	dur(&cfg.Server.WriteTimeout, envKeyWriteTimeout)
	dur(&cfg.Server.IdleTimeout, envKeyIdleTimeout)

	str(&cfg.Gateway.EmbedProvider, envKeyEmbedProvider)
	str(&cfg.Gateway.ChatProvider, envKeyChatProvider)
	str(&cfg.Gateway.OpenAIBaseURL, envKeyOpenAIBaseURL)
	str(&cfg.Gateway.OpenAIAPIKey, envKeyOpenAIAPIKey)
	str(&cfg.Gateway.ChatModel, envKeyChatModel)
	str(&cfg.Gateway.EmbeddingModel, envKeyEmbeddingModel)
	str(&cfg.Gateway.OllamaBaseURL, envKeyOllamaBaseURL)
	str(&cfg.Gateway.OllamaModel, envKeyOllamaModel)
	str(&cfg.Gateway.OllamaChatModel, envKeyOllamaChatModel)
	dur(&cfg.Gateway.Timeout, envKeyGatewayTimeout)
	num(&cfg.Gateway.MaxRetries, envKeyGatewayRetries)
	flt(&cfg.Gateway.RateLimit, envKeyGatewayRate)

	str(&cfg.Store.Driver, envKeyStoreDriver)
	str(&cfg.Store.Path, envKeyStorePath)
	str(&cfg.Store.DSN, envKeyDatabaseURL)
	str(&cfg.Store.Table, envKeyTable)
	num(&cfg.Store.Dimensions, envKeyDimensions)

	num(&cfg.RAG.ChunkSize, envKeyChunkSize)
	num(&cfg.RAG.ChunkOverlap, envKeyChunkOverlap)
	num(&cfg.RAG.TopK, envKeyTopK)
	num(&cfg.RAG.KeywordTopK, envKeyKeywordTopK)
	flt(&cfg.RAG.SimilarityThreshold, envKeyThreshold)
	str(&cfg.RAG.SeedPath, envKeySeedPath)
	if v := os.Getenv(envKeyUseAgent); v != "" {
		b, ok := ParseBool(v)
		if !ok {
			errs = append(errs, fmt.Errorf("config: %s: invalid boolean %q", envKeyUseAgent, v))
		} else {
			cfg.RAG.UseAgent = b
		}
	}

	str(&cfg.Auth.JWTSecret, envKeyJWTSecret)
	str(&cfg.Log.Level, envKeyLogLevel)
	str(&cfg.Log.Format, envKeyLogFormat)
	str(&cfg.ClientBaseURL, envKeyBaseURL)
	return errors.Join(errs...)
}

// ParseBool accepts the usual CLI spellings: true/false, 1/0, yes/no, on/off.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
