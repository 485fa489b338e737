package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"DATA_DIR", "DB_URL", "CSV_PATH", "CATEGORIES_FILE",
	"LOG_LEVEL", "LOG_FORMAT", "WORKER_COUNT",
	"MAX_POSTS_PER_CATEGORY", "MAX_KEYWORDS_PER_CATEGORY",
	"SEARCH_BASE_URL", "SEARCH_IDENTIFIER", "SEARCH_PASSWORD",
	"SEARCH_TIMEOUT", "SEARCH_PAGE_SIZE", "SEARCH_MAX_PAGES",
	"GENERATOR_BASE_URL", "GENERATOR_MODEL", "GENERATOR_API_KEY",
	"GENERATOR_TIMEOUT", "GENERATOR_KEYWORDS_PER_CATEGORY",
	"RETRY_MAX_RETRIES", "RETRY_INITIAL_DELAY", "RETRY_MAX_DELAY",
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
		require.NoError(t, os.Unsetenv(v))
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, "", cfg.DBURL)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxPostsPerCategory)
	assert.Equal(t, 20, cfg.MaxKeywordsPerCategory)

	assert.Equal(t, "https://bsky.social", cfg.Search.BaseURL)
	assert.Equal(t, 25, cfg.Search.PageSize)
	assert.Equal(t, 10, cfg.Search.MaxPages)
	assert.Equal(t, 10, cfg.Generator.KeywordsPerCategory)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 60.0, cfg.Retry.MaxDelay)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("WORKER_COUNT", "3")
	t.Setenv("SEARCH_IDENTIFIER", "collector.example.com")
	t.Setenv("SEARCH_PASSWORD", "app-password")
	t.Setenv("SEARCH_MAX_PAGES", "4")
	t.Setenv("GENERATOR_MODEL", "mistral:7b")
	t.Setenv("GENERATOR_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("RETRY_INITIAL_DELAY", "0.5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.WorkerCount)
	assert.Equal(t, "collector.example.com", cfg.Search.Identifier)
	assert.Equal(t, 4, cfg.Search.MaxPages)
	assert.Equal(t, "mistral:7b", cfg.Generator.Model)

	appCfg := cfg.ToAppConfig()
	assert.Equal(t, 3, appCfg.WorkerCount())
	assert.True(t, appCfg.Search().Credentials().IsConfigured())
	assert.Equal(t, 4, appCfg.Search().MaxPages())
	assert.Equal(t, "mistral:7b", appCfg.Generator().Model())
	assert.Equal(t, 500*time.Millisecond, appCfg.Retry().InitialDelay())
}

func TestLoadConfig_DotEnvPrecedence(t *testing.T) {
	clearEnvVars(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"WORKER_COUNT=2\nLOG_LEVEL=DEBUG\n"), 0o644))

	// Real environment variables win over the .env file.
	t.Setenv("LOG_LEVEL", "ERROR")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.WorkerCount())
	assert.Equal(t, "ERROR", cfg.LogLevel())
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestLoadCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: climate
    language: en
    max_posts: 50
  - name: " santé "
    language: FR
    max_keywords: 5
`), 0o644))

	specs, err := LoadCategories(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "climate", specs[0].Name)
	assert.Equal(t, "en", specs[0].Language)
	assert.Equal(t, 50, specs[0].MaxPosts)

	assert.Equal(t, "santé", specs[1].Name, "names are trimmed")
	assert.Equal(t, "fr", specs[1].Language, "language tags are lowercased")
	assert.Equal(t, 5, specs[1].MaxKeywords)
}

func TestLoadCategories_Invalid(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("categories: []\n"), 0o644))
	_, err := LoadCategories(empty)
	assert.ErrorIs(t, err, ErrInvalid)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte(`
categories:
  - name: climate
  - name: Climate
`), 0o644))
	_, err = LoadCategories(dup)
	assert.ErrorIs(t, err, ErrInvalid, "duplicate detection ignores case")
}
