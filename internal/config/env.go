// Package config provides application configuration.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., SEARCH_BASE_URL).
type EnvConfig struct {
	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.hivewatch
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/hivewatch.db
	DBURL string `envconfig:"DB_URL"`

	// CSVPath routes collected posts to a flat CSV file instead of the database.
	// Env: CSV_PATH
	CSVPath string `envconfig:"CSV_PATH"`

	// CategoriesFile is the path to the categories YAML file.
	// Env: CATEGORIES_FILE
	CategoriesFile string `envconfig:"CATEGORIES_FILE"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// WorkerCount is the collection worker pool size.
	// Env: WORKER_COUNT (default: 5)
	WorkerCount int `envconfig:"WORKER_COUNT" default:"5"`

	// MaxPostsPerCategory caps accepted posts per category.
	// Env: MAX_POSTS_PER_CATEGORY (default: 100)
	MaxPostsPerCategory int `envconfig:"MAX_POSTS_PER_CATEGORY" default:"100"`

	// MaxKeywordsPerCategory caps searched keywords per category.
	// Env: MAX_KEYWORDS_PER_CATEGORY (default: 20)
	MaxKeywordsPerCategory int `envconfig:"MAX_KEYWORDS_PER_CATEGORY" default:"20"`

	// Search configures the search API endpoint.
	Search SearchEnv `envconfig:"SEARCH"`

	// Generator configures the keyword-generation AI endpoint.
	Generator GeneratorEnv `envconfig:"GENERATOR"`

	// Retry configures retry behavior for recoverable search errors.
	Retry RetryEnv `envconfig:"RETRY"`
}

// SearchEnv holds environment configuration for the search API.
type SearchEnv struct {
	// BaseURL is the search API base URL.
	// Env: SEARCH_BASE_URL (default: https://bsky.social)
	BaseURL string `envconfig:"BASE_URL" default:"https://bsky.social"`

	// Identifier is the account handle or email.
	// Env: SEARCH_IDENTIFIER
	Identifier string `envconfig:"IDENTIFIER"`

	// Password is the account (app) password.
	// Env: SEARCH_PASSWORD
	Password string `envconfig:"PASSWORD"`

	// Timeout is the per-request timeout in seconds.
	// Env: SEARCH_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`

	// PageSize is the number of hits requested per page.
	// Env: SEARCH_PAGE_SIZE (default: 25)
	PageSize int `envconfig:"PAGE_SIZE" default:"25"`

	// MaxPages is the pagination ceiling per keyword.
	// Env: SEARCH_MAX_PAGES (default: 10)
	MaxPages int `envconfig:"MAX_PAGES" default:"10"`
}

// GeneratorEnv holds environment configuration for keyword generation.
type GeneratorEnv struct {
	// BaseURL is the endpoint base URL (e.g., http://localhost:11434/v1).
	// Env: GENERATOR_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier (e.g., mistral:7b).
	// Env: GENERATOR_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: GENERATOR_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: GENERATOR_TIMEOUT (default: 120)
	Timeout float64 `envconfig:"TIMEOUT" default:"120"`

	// MaxRetries is the maximum number of retries.
	// Env: GENERATOR_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: GENERATOR_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: GENERATOR_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// KeywordsPerCategory is how many keywords to request per category.
	// Env: GENERATOR_KEYWORDS_PER_CATEGORY (default: 10)
	KeywordsPerCategory int `envconfig:"KEYWORDS_PER_CATEGORY" default:"10"`
}

// RetryEnv holds environment configuration for search retries.
type RetryEnv struct {
	// MaxRetries is the retry ceiling per request.
	// Env: RETRY_MAX_RETRIES (default: 3)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`

	// InitialDelay is the first backoff delay in seconds.
	// Env: RETRY_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the delay multiplier.
	// Env: RETRY_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// MaxDelay is the backoff delay cap in seconds.
	// Env: RETRY_MAX_DELAY (default: 60)
	MaxDelay float64 `envconfig:"MAX_DELAY" default:"60"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "HIVEWATCH" would require HIVEWATCH_DB_URL instead of DB_URL.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.CSVPath != "" {
		cfg = cfg.Apply(WithCSVPath(e.CSVPath))
	}
	if e.CategoriesFile != "" {
		cfg = cfg.Apply(WithCategoriesFile(e.CategoriesFile))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.WorkerCount > 0 {
		cfg = cfg.Apply(WithWorkerCount(e.WorkerCount))
	}
	if e.MaxPostsPerCategory > 0 {
		cfg = cfg.Apply(WithMaxPostsPerCategory(e.MaxPostsPerCategory))
	}
	if e.MaxKeywordsPerCategory > 0 {
		cfg = cfg.Apply(WithMaxKeywordsPerCategory(e.MaxKeywordsPerCategory))
	}

	cfg = cfg.Apply(WithSearchConfig(e.Search.ToSearchConfig()))
	cfg = cfg.Apply(WithGeneratorConfig(e.Generator.ToGeneratorConfig()))
	cfg = cfg.Apply(WithRetryConfig(e.Retry.ToRetryConfig()))

	return cfg
}

// ToSearchConfig converts SearchEnv to SearchConfig.
func (s SearchEnv) ToSearchConfig() SearchConfig {
	opts := []SearchConfigOption{
		WithSearchTimeout(time.Duration(s.Timeout * float64(time.Second))),
		WithPageSize(s.PageSize),
		WithMaxPages(s.MaxPages),
	}
	if s.BaseURL != "" {
		opts = append(opts, WithSearchBaseURL(s.BaseURL))
	}
	if s.Identifier != "" || s.Password != "" {
		opts = append(opts, WithCredentials(NewCredentials(s.Identifier, s.Password)))
	}
	return NewSearchConfigWithOptions(opts...)
}

// ToGeneratorConfig converts GeneratorEnv to GeneratorConfig.
func (g GeneratorEnv) ToGeneratorConfig() GeneratorConfig {
	opts := []GeneratorConfigOption{
		WithGeneratorTimeout(time.Duration(g.Timeout * float64(time.Second))),
		WithGeneratorMaxRetries(g.MaxRetries),
		WithGeneratorInitialDelay(time.Duration(g.InitialDelay * float64(time.Second))),
		WithGeneratorBackoffFactor(g.BackoffFactor),
		WithKeywordsPerCategory(g.KeywordsPerCategory),
	}
	if g.BaseURL != "" {
		opts = append(opts, WithGeneratorBaseURL(g.BaseURL))
	}
	if g.Model != "" {
		opts = append(opts, WithGeneratorModel(g.Model))
	}
	if g.APIKey != "" {
		opts = append(opts, WithGeneratorAPIKey(g.APIKey))
	}
	return NewGeneratorConfigWithOptions(opts...)
}

// ToRetryConfig converts RetryEnv to RetryConfig.
func (r RetryEnv) ToRetryConfig() RetryConfig {
	return NewRetryConfig().
		WithMaxRetries(r.MaxRetries).
		WithInitialDelay(time.Duration(r.InitialDelay * float64(time.Second))).
		WithBackoffFactor(r.BackoffFactor).
		WithMaxDelay(time.Duration(r.MaxDelay * float64(time.Second)))
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
