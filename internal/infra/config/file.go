package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML/TOML files. Unset keys keep their defaults;
// durations are Go duration strings ("30s").
type fileConfig struct {
	Server struct {
		Host         string `yaml:"host" toml:"host"`
		Port         int    `yaml:"port" toml:"port"`
		ReadTimeout  string `yaml:"read_timeout" toml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" toml:"write_timeout"`
		IdleTimeout  string `yaml:"idle_timeout" toml:"idle_timeout"`
	} `yaml:"server" toml:"server"`
	Gateway struct {
		EmbedProvider   string  `yaml:"embed_provider" toml:"embed_provider"`
		ChatProvider    string  `yaml:"chat_provider" toml:"chat_provider"`
		OpenAIBaseURL   string  `yaml:"openai_base_url" toml:"openai_base_url"`
		OpenAIAPIKey    string  `yaml:"openai_api_key" toml:"openai_api_key"`
		ChatModel       string  `yaml:"chat_model" toml:"chat_model"`
		EmbeddingModel  string  `yaml:"embedding_model" toml:"embedding_model"`
		OllamaBaseURL   string  `yaml:"ollama_base_url" toml:"ollama_base_url"`
		OllamaModel     string  `yaml:"ollama_model" toml:"ollama_model"`
		OllamaChatModel string  `yaml:"ollama_chat_model" toml:"ollama_chat_model"`
		Timeout         string  `yaml:"timeout" toml:"timeout"`
		MaxRetries      *int    `yaml:"max_retries" toml:"max_retries"`
		RateLimit       float64 `yaml:"rate_limit" toml:"rate_limit"`
	} `yaml:"gateway" toml:"gateway"`
	Store struct {
		Driver     string `yaml:"driver" toml:"driver"`
		Path       string `yaml:"path" toml:"path"`
		DSN        string `yaml:"dsn" toml:"dsn"`
		Table      string `yaml:"table" toml:"table"`
		Dimensions int    `yaml:"dimensions" toml:"dimensions"`
	} `yaml:"store" toml:"store"`
	RAG struct {
		ChunkSize           int      `yaml:"chunk_size" toml:"chunk_size"`
		ChunkOverlap        *int     `yaml:"chunk_overlap" toml:"chunk_overlap"`
		TopK                int      `yaml:"top_k" toml:"top_k"`
		KeywordTopK         *int     `yaml:"keyword_top_k" toml:"keyword_top_k"`
		SimilarityThreshold *float64 `yaml:"similarity_threshold" toml:"similarity_threshold"`
		SeedPath            string   `yaml:"seed_path" toml:"seed_path"`
		UseAgent            *bool    `yaml:"use_agent" toml:"use_agent"`
	} `yaml:"rag" toml:"rag"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
	} `yaml:"auth" toml:"auth"`
	Log struct {
		Level  string `yaml:"level" toml:"level"`
		Format string `yaml:"format" toml:"format"`
	} `yaml:"log" toml:"log"`
	ClientBaseURL string `yaml:"client_base_url" toml:"client_base_url"`
}

// applyFile overlays a YAML (.yaml/.yml) or TOML (.toml) file onto cfg.
func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &fc)
	case ".toml":
		err = toml.Unmarshal(raw, &fc)
	default:
		return fmt.Errorf("config: unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fc.overlay(cfg)
}

func (fc *fileConfig) overlay(cfg *Config) error {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	var durErr error
	setDur := func(dst *time.Duration, v, name string) {
		if v == "" || durErr != nil {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			durErr = fmt.Errorf("config: %s: %w", name, err)
			return
		}
		*dst = d
	}

	setStr(&cfg.Server.Host, fc.Server.Host)
	setInt(&cfg.Server.Port, fc.Server.Port)
	setDur(&cfg.Server.ReadTimeout, fc.Server.ReadTimeout, "server.read_timeout")
	setDur(&cfg.Server.WriteTimeout, fc.Server.WriteTimeout, "server.write_timeout")
	setDur(&cfg.Server.IdleTimeout, fc.Server.IdleTimeout, "server.idle_timeout")

	g := fc.Gateway
	setStr(&cfg.Gateway.EmbedProvider, g.EmbedProvider)
	setStr(&cfg.Gateway.ChatProvider, g.ChatProvider)
	setStr(&cfg.Gateway.OpenAIBaseURL, g.OpenAIBaseURL)
	setStr(&cfg.Gateway.OpenAIAPIKey, g.OpenAIAPIKey)
	setStr(&cfg.Gateway.ChatModel, g.ChatModel)
	setStr(&cfg.Gateway.EmbeddingModel, g.EmbeddingModel)
	setStr(&cfg.Gateway.OllamaBaseURL, g.OllamaBaseURL)
	setStr(&cfg.Gateway.OllamaModel, g.OllamaModel)
	setStr(&cfg.Gateway.OllamaChatModel, g.OllamaChatModel)
	setDur(&cfg.Gateway.Timeout, g.Timeout, "gateway.timeout")
	if g.MaxRetries != nil {
		cfg.Gateway.MaxRetries = *g.MaxRetries
	}
	if g.RateLimit != 0 {
		cfg.Gateway.RateLimit = g.RateLimit
	}

	setStr(&cfg.Store.Driver, fc.Store.Driver)
	setStr(&cfg.Store.Path, fc.Store.Path)
	setStr(&cfg.Store.DSN, fc.Store.DSN)
	setStr(&cfg.Store.Table, fc.Store.Table)
	setInt(&cfg.Store.Dimensions, fc.Store.Dimensions)

	setInt(&cfg.RAG.ChunkSize, fc.RAG.ChunkSize)
	if fc.RAG.ChunkOverlap != nil {
		cfg.RAG.ChunkOverlap = *fc.RAG.ChunkOverlap
	}
	setInt(&cfg.RAG.TopK, fc.RAG.TopK)
	if fc.RAG.KeywordTopK != nil {
		cfg.RAG.KeywordTopK = *fc.RAG.KeywordTopK
	}
	if fc.RAG.SimilarityThreshold != nil {
		cfg.RAG.SimilarityThreshold = *fc.RAG.SimilarityThreshold
	}
	setStr(&cfg.RAG.SeedPath, fc.RAG.SeedPath)
	if fc.RAG.UseAgent != nil {
		cfg.RAG.UseAgent = *fc.RAG.UseAgent
	}

	setStr(&cfg.Auth.JWTSecret, fc.Auth.JWTSecret)
	setStr(&cfg.Log.Level, fc.Log.Level)
	setStr(&cfg.Log.Format, fc.Log.Format)
	setStr(&cfg.ClientBaseURL, fc.ClientBaseURL)
	return durErr
}
