// Package config loads server and CLI settings from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type QdrantConfig struct {
	Host       string  `yaml:"host"`
	Port       int     `yaml:"port"`
	Collection string  `yaml:"collection"`
	MinScore   float64 `yaml:"min_score"`
}

type LLMConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	OpenAIAPIKey string `yaml:"-"`
	GeminiAPIKey string `yaml:"-"`
	MaxTokens    int    `yaml:"max_context_tokens"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig sets how many records each operation reads and how long
// readers wait for writes to become visible.
type RetrievalConfig struct {
	RetrieveK     int           `yaml:"retrieve_k"`
	UserInfoK     int           `yaml:"user_info_k"`
	ExtractK      int           `yaml:"extract_k"`
	SummaryK      int           `yaml:"summary_k"`
	HistoryK      int           `yaml:"history_k"`
	StatsAttempts int           `yaml:"stats_attempts"`
	StatsDelay    time.Duration `yaml:"stats_delay"`
}

type ServerConfig struct {
	Port       string `yaml:"port"`
	ServerMode bool   `yaml:"server_mode"`
	UploadDir  string `yaml:"upload_dir"`
	// MaxUploadBytes bounds one multipart upload request.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Config is the root configuration.
type Config struct {
	Qdrant      QdrantConfig    `yaml:"qdrant"`
	LLM         LLMConfig       `yaml:"llm"`
	Chunking    ChunkingConfig  `yaml:"chunking"`
	Retrieval   RetrievalConfig `yaml:"retrieval"`
	Server      ServerConfig    `yaml:"server"`
	DatabaseURL string          `yaml:"database_url"`
	LogLevel    string          `yaml:"log_level"`
	GitHubToken string          `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "docchat",
		},
		LLM: LLMConfig{
			Provider:  "openai",
			MaxTokens: 16000,
		},
		Chunking: ChunkingConfig{
			Size:    10000,
			Overlap: 1000,
		},
		Retrieval: RetrievalConfig{
			RetrieveK:     5,
			UserInfoK:     50,
			ExtractK:      100,
			SummaryK:      20,
			HistoryK:      100,
			StatsAttempts: 3,
			StatsDelay:    2 * time.Second,
		},
		Server: ServerConfig{
			Port:           "8080",
			UploadDir:      "uploads",
			MaxUploadBytes: 16 << 20,
		},
		DatabaseURL: "sqlite:///./docchat.db",
		LogLevel:    "INFO",
	}
}

// Load reads .env if present, then the YAML file named by CONFIG_FILE, then
// environment variables.
func Load() (*Config, error) {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("QDRANT_HOST", &c.Qdrant.Host)
	num("QDRANT_PORT", &c.Qdrant.Port)
	str("QDRANT_COLLECTION", &c.Qdrant.Collection)
	if v := os.Getenv("MIN_SCORE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MIN_SCORE: %w", err))
		} else {
			c.Qdrant.MinScore = f
		}
	}

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("CHAT_MODEL", &c.LLM.Model)
	str("OPENAI_API_KEY", &c.LLM.OpenAIAPIKey)
	str("GEMINI_API_KEY", &c.LLM.GeminiAPIKey)
	num("MAX_CONTEXT_TOKENS", &c.LLM.MaxTokens)

	num("CHUNK_SIZE", &c.Chunking.Size)
	num("CHUNK_OVERLAP", &c.Chunking.Overlap)

	num("RETRIEVE_K", &c.Retrieval.RetrieveK)
	num("USER_INFO_K", &c.Retrieval.UserInfoK)
	num("EXTRACT_K", &c.Retrieval.ExtractK)
	num("SUMMARY_K", &c.Retrieval.SummaryK)
	num("HISTORY_K", &c.Retrieval.HistoryK)
	num("STATS_ATTEMPTS", &c.Retrieval.StatsAttempts)
	if v := os.Getenv("STATS_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STATS_DELAY: %w", err))
		} else {
			c.Retrieval.StatsDelay = d
		}
	}

	str("PORT", &c.Server.Port)
	str("UPLOAD_DIR", &c.Server.UploadDir)
	if v := os.Getenv("SERVER_MODE"); v != "" {
		c.Server.ServerMode = v == "true"
	}

	str("DATABASE_URL", &c.DatabaseURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("GITHUB_TOKEN", &c.GitHubToken)

	return errors.Join(errs...)
}

// DatabasePath strips the sqlite:// scheme from DatabaseURL.
func (c *Config) DatabasePath() string {
	path := strings.TrimPrefix(c.DatabaseURL, "sqlite:///")
	return strings.TrimPrefix(path, "sqlite://")
}

// SlogLevel maps LogLevel to a slog level, defaulting to INFO.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
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

// NewLogger returns a text logger on stderr at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
