package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("QDRANT_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 10000, cfg.Chunking.Size)
	assert.Equal(t, 1000, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.RetrieveK)
	assert.Equal(t, 2*time.Second, cfg.Retrieval.StatsDelay)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
qdrant:
  host: qdrant.internal
  collection: from_file
retrieval:
  retrieve_k: 8
  stats_delay: 500ms
chunking:
  size: 2000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("QDRANT_COLLECTION", "from_env")
	t.Setenv("STATS_ATTEMPTS", "5")
	t.Setenv("SERVER_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, "from_env", cfg.Qdrant.Collection, "environment wins over file")
	assert.Equal(t, 8, cfg.Retrieval.RetrieveK)
	assert.Equal(t, 500*time.Millisecond, cfg.Retrieval.StatsDelay)
	assert.Equal(t, 5, cfg.Retrieval.StatsAttempts)
	assert.Equal(t, 2000, cfg.Chunking.Size)
	assert.Equal(t, 1000, cfg.Chunking.Overlap, "unset file keys keep defaults")
	assert.True(t, cfg.Server.ServerMode)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RETRIEVE_K", "five")
	t.Setenv("STATS_DELAY", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRIEVE_K")
	assert.Contains(t, err.Error(), "STATS_DELAY")
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "./docchat.db", cfg.DatabasePath())

	cfg.DatabaseURL = "sqlite://data/chat.db"
	assert.Equal(t, "data/chat.db", cfg.DatabasePath())

	cfg.DatabaseURL = ":memory:"
	assert.Equal(t, ":memory:", cfg.DatabasePath())
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	for level, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
	} {
		cfg.LogLevel = level
		assert.Equal(t, want, cfg.SlogLevel(), level)
	}
}
