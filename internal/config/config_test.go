package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.ModelProvider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.ModelName)
	assert.Equal(t, "./data", cfg.DataPath)
	assert.Equal(t, filepath.Join("./data", "knowledge"), cfg.KnowledgePath)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 20, cfg.Crawl.MaxPages)
	assert.Equal(t, time.Second, cfg.CrawlDelay())
	assert.True(t, cfg.Crawl.Enabled)
	assert.Equal(t, 5, cfg.SearchK)
	assert.Equal(t, "0.0.0.0:8501", cfg.Addr())
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-6)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MODEL_NAME", "gpt-4o-mini")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("CRAWL_DELAY", "0.25")
	t.Setenv("ENABLE_WEB_CRAWLING", "false")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.ModelName)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 250*time.Millisecond, cfg.CrawlDelay())
	assert.False(t, cfg.Crawl.Enabled)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eora.yaml")
	content := `
model_provider: local
search_k: 3
crawl:
  base_url: https://example.com
session:
  backend: file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SEARCH_K", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderLocal, cfg.ModelProvider)
	assert.Equal(t, "https://example.com", cfg.Crawl.BaseURL)
	assert.Equal(t, BackendFile, cfg.Session.Backend)
	assert.Equal(t, 7, cfg.SearchK, "environment overrides the file")
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOTENV_SAMPLE_MODEL=gpt-dotenv\n"), 0o644))
	require.NoError(t, os.Unsetenv("DOTENV_SAMPLE_MODEL"))
	t.Cleanup(func() { os.Unsetenv("DOTENV_SAMPLE_MODEL") })

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-dotenv", os.Getenv("DOTENV_SAMPLE_MODEL"))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	t.Run("OpenAI requires key", func(t *testing.T) {
		cfg := base()
		cfg.OpenAIAPIKey = ""
		err := cfg.Validate()
		assert.ErrorIs(t, err, domain.ErrConfiguration)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("GigaChat requires key", func(t *testing.T) {
		cfg := base()
		cfg.ModelProvider = ProviderGigaChat
		err := cfg.Validate()
		assert.ErrorIs(t, err, domain.ErrConfiguration)
		assert.Contains(t, err.Error(), "GIGACHAT_API_KEY")
	})

	t.Run("Local needs nothing", func(t *testing.T) {
		cfg := base()
		cfg.ModelProvider = ProviderLocal
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Unknown provider", func(t *testing.T) {
		cfg := base()
		cfg.ModelProvider = "anthropic-free"
		assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
	})

	t.Run("Overlap must be smaller than chunk", func(t *testing.T) {
		cfg := base()
		cfg.ModelProvider = ProviderLocal
		cfg.ChunkOverlap = cfg.ChunkSize
		assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
	})

	t.Run("Redis backend needs address", func(t *testing.T) {
		cfg := base()
		cfg.ModelProvider = ProviderLocal
		cfg.Session.Backend = BackendRedis
		assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
		cfg.Redis.Addr = "localhost:6379"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Encryption key must be 32 bytes", func(t *testing.T) {
		cfg := base()
		cfg.ModelProvider = ProviderLocal
		cfg.Session.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
		assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)

		cfg.Session.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
		assert.NoError(t, cfg.Validate())
		key, err := cfg.EncryptionKey()
		require.NoError(t, err)
		assert.Len(t, key, 32)
	})
}
