// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultLogLevel               = "INFO"
	DefaultWorkerCount            = 5
	DefaultMaxPostsPerCategory    = 100
	DefaultMaxKeywordsPerCategory = 20
	DefaultPageSize               = 25
	DefaultMaxPagesPerKeyword     = 10
	DefaultSearchBaseURL          = "https://bsky.social"
	DefaultSearchTimeout          = 30 * time.Second
	DefaultMaxRetries             = 3
	DefaultInitialDelay           = 2 * time.Second
	DefaultBackoffFactor          = 2.0
	DefaultMaxDelay               = 60 * time.Second
	DefaultGeneratorTimeout       = 120 * time.Second
	DefaultGeneratorMaxRetries    = 5
	DefaultKeywordsPerCategory    = 10
)

// ErrInvalid indicates the configuration cannot support a run.
var ErrInvalid = errors.New("invalid configuration")

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Credentials holds search API login credentials.
type Credentials struct {
	identifier string
	password   string
}

// NewCredentials creates Credentials.
func NewCredentials(identifier, password string) Credentials {
	return Credentials{identifier: identifier, password: password}
}

// Identifier returns the account identifier (handle or email).
func (c Credentials) Identifier() string { return c.identifier }

// Password returns the account password.
func (c Credentials) Password() string { return c.password }

// IsConfigured returns true when both fields are present.
func (c Credentials) IsConfigured() bool {
	return c.identifier != "" && c.password != ""
}

// RetryConfig configures retry behavior for recoverable search errors.
type RetryConfig struct {
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	maxDelay      time.Duration
}

// NewRetryConfig creates a RetryConfig with defaults.
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		maxRetries:    DefaultMaxRetries,
		initialDelay:  DefaultInitialDelay,
		backoffFactor: DefaultBackoffFactor,
		maxDelay:      DefaultMaxDelay,
	}
}

// MaxRetries returns the retry ceiling per request.
func (r RetryConfig) MaxRetries() int { return r.maxRetries }

// InitialDelay returns the first backoff delay.
func (r RetryConfig) InitialDelay() time.Duration { return r.initialDelay }

// BackoffFactor returns the delay multiplier.
func (r RetryConfig) BackoffFactor() float64 { return r.backoffFactor }

// MaxDelay returns the backoff delay cap.
func (r RetryConfig) MaxDelay() time.Duration { return r.maxDelay }

// WithMaxRetries returns a new config with the specified ceiling.
func (r RetryConfig) WithMaxRetries(n int) RetryConfig {
	r.maxRetries = n
	return r
}

// WithInitialDelay returns a new config with the specified delay.
func (r RetryConfig) WithInitialDelay(d time.Duration) RetryConfig {
	r.initialDelay = d
	return r
}

// WithBackoffFactor returns a new config with the specified factor.
func (r RetryConfig) WithBackoffFactor(f float64) RetryConfig {
	r.backoffFactor = f
	return r
}

// WithMaxDelay returns a new config with the specified cap.
func (r RetryConfig) WithMaxDelay(d time.Duration) RetryConfig {
	r.maxDelay = d
	return r
}

// SearchConfig configures the search API endpoint.
type SearchConfig struct {
	baseURL     string
	credentials Credentials
	timeout     time.Duration
	pageSize    int
	maxPages    int
}

// NewSearchConfig creates a SearchConfig with defaults.
func NewSearchConfig() SearchConfig {
	return SearchConfig{
		baseURL:  DefaultSearchBaseURL,
		timeout:  DefaultSearchTimeout,
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPagesPerKeyword,
	}
}

// BaseURL returns the search API base URL.
func (s SearchConfig) BaseURL() string { return s.baseURL }

// Credentials returns the login credentials.
func (s SearchConfig) Credentials() Credentials { return s.credentials }

// Timeout returns the per-request timeout.
func (s SearchConfig) Timeout() time.Duration { return s.timeout }

// PageSize returns the number of hits requested per page.
func (s SearchConfig) PageSize() int { return s.pageSize }

// MaxPages returns the pagination ceiling per keyword.
func (s SearchConfig) MaxPages() int { return s.maxPages }

// SearchConfigOption is a functional option for SearchConfig.
type SearchConfigOption func(*SearchConfig)

// WithSearchBaseURL sets the base URL.
func WithSearchBaseURL(url string) SearchConfigOption {
	return func(s *SearchConfig) { s.baseURL = url }
}

// WithCredentials sets the login credentials.
func WithCredentials(c Credentials) SearchConfigOption {
	return func(s *SearchConfig) { s.credentials = c }
}

// WithSearchTimeout sets the per-request timeout.
func WithSearchTimeout(d time.Duration) SearchConfigOption {
	return func(s *SearchConfig) { s.timeout = d }
}

// WithPageSize sets the page size.
func WithPageSize(n int) SearchConfigOption {
	return func(s *SearchConfig) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxPages sets the pagination ceiling per keyword.
func WithMaxPages(n int) SearchConfigOption {
	return func(s *SearchConfig) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// NewSearchConfigWithOptions creates a SearchConfig with functional options.
func NewSearchConfigWithOptions(opts ...SearchConfigOption) SearchConfig {
	s := NewSearchConfig()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// GeneratorConfig configures the keyword-generation AI endpoint.
type GeneratorConfig struct {
	baseURL             string
	model               string
	apiKey              string
	timeout             time.Duration
	maxRetries          int
	initialDelay        time.Duration
	backoffFactor       float64
	keywordsPerCategory int
}

// NewGeneratorConfig creates a GeneratorConfig with defaults.
func NewGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		timeout:             DefaultGeneratorTimeout,
		maxRetries:          DefaultGeneratorMaxRetries,
		initialDelay:        DefaultInitialDelay,
		backoffFactor:       DefaultBackoffFactor,
		keywordsPerCategory: DefaultKeywordsPerCategory,
	}
}

// BaseURL returns the endpoint base URL.
func (g GeneratorConfig) BaseURL() string { return g.baseURL }

// Model returns the model identifier.
func (g GeneratorConfig) Model() string { return g.model }

// APIKey returns the API key.
func (g GeneratorConfig) APIKey() string { return g.apiKey }

// Timeout returns the request timeout.
func (g GeneratorConfig) Timeout() time.Duration { return g.timeout }

// MaxRetries returns the maximum retry count.
func (g GeneratorConfig) MaxRetries() int { return g.maxRetries }

// InitialDelay returns the initial retry delay.
func (g GeneratorConfig) InitialDelay() time.Duration { return g.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (g GeneratorConfig) BackoffFactor() float64 { return g.backoffFactor }

// KeywordsPerCategory returns how many keywords to request per category.
func (g GeneratorConfig) KeywordsPerCategory() int { return g.keywordsPerCategory }

// IsConfigured returns true if the endpoint has a model configured.
func (g GeneratorConfig) IsConfigured() bool { return g.model != "" }

// GeneratorConfigOption is a functional option for GeneratorConfig.
type GeneratorConfigOption func(*GeneratorConfig)

// WithGeneratorBaseURL sets the base URL.
func WithGeneratorBaseURL(url string) GeneratorConfigOption {
	return func(g *GeneratorConfig) { g.baseURL = url }
}

// WithGeneratorModel sets the model.
func WithGeneratorModel(model string) GeneratorConfigOption {
	return func(g *GeneratorConfig) { g.model = model }
}

// WithGeneratorAPIKey sets the API key.
func WithGeneratorAPIKey(key string) GeneratorConfigOption {
	return func(g *GeneratorConfig) { g.apiKey = key }
}

// WithGeneratorTimeout sets the request timeout.
func WithGeneratorTimeout(d time.Duration) GeneratorConfigOption {
	return func(g *GeneratorConfig) { g.timeout = d }
}

// WithGeneratorMaxRetries sets the maximum retry count.
func WithGeneratorMaxRetries(n int) GeneratorConfigOption {
	return func(g *GeneratorConfig) { g.maxRetries = n }
}

// WithGeneratorInitialDelay sets the initial retry delay.
func WithGeneratorInitialDelay(d time.Duration) GeneratorConfigOption {
	return func(g *GeneratorConfig) { g.initialDelay = d }
}

// WithGeneratorBackoffFactor sets the retry backoff multiplier.
func WithGeneratorBackoffFactor(f float64) GeneratorConfigOption {
	return func(g *GeneratorConfig) { g.backoffFactor = f }
}

// WithKeywordsPerCategory sets the generation count per category.
func WithKeywordsPerCategory(n int) GeneratorConfigOption {
	return func(g *GeneratorConfig) {
		if n > 0 {
			g.keywordsPerCategory = n
		}
	}
}

// NewGeneratorConfigWithOptions creates a GeneratorConfig with functional options.
func NewGeneratorConfigWithOptions(opts ...GeneratorConfigOption) GeneratorConfig {
	g := NewGeneratorConfig()
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	dataDir                string
	dbURL                  string
	csvPath                string
	categoriesFile         string
	logLevel               string
	logFormat              LogFormat
	workerCount            int
	maxPostsPerCategory    int
	maxKeywordsPerCategory int
	search                 SearchConfig
	generator              GeneratorConfig
	retry                  RetryConfig
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hivewatch"
	}
	return filepath.Join(home, ".hivewatch")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		dataDir:                dataDir,
		dbURL:                  "sqlite:///" + filepath.Join(dataDir, "hivewatch.db"),
		logLevel:               DefaultLogLevel,
		logFormat:              LogFormatPretty,
		workerCount:            DefaultWorkerCount,
		maxPostsPerCategory:    DefaultMaxPostsPerCategory,
		maxKeywordsPerCategory: DefaultMaxKeywordsPerCategory,
		search:                 NewSearchConfig(),
		generator:              NewGeneratorConfig(),
		retry:                  NewRetryConfig(),
	}
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// CSVPath returns the flat-file sink path; empty means the relational sink.
func (c AppConfig) CSVPath() string { return c.csvPath }

// CategoriesFile returns the categories YAML file path.
func (c AppConfig) CategoriesFile() string { return c.categoriesFile }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// WorkerCount returns the collection worker pool size.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// MaxPostsPerCategory returns the accepted-post cap per category.
func (c AppConfig) MaxPostsPerCategory() int { return c.maxPostsPerCategory }

// MaxKeywordsPerCategory returns the keyword cap per category.
func (c AppConfig) MaxKeywordsPerCategory() int { return c.maxKeywordsPerCategory }

// Search returns the search endpoint config.
func (c AppConfig) Search() SearchConfig { return c.search }

// Generator returns the keyword-generation endpoint config.
func (c AppConfig) Generator() GeneratorConfig { return c.generator }

// Retry returns the retry config.
func (c AppConfig) Retry() RetryConfig { return c.retry }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// ValidateForCollection checks that a collection run can start.
// Missing credentials abort before any work begins.
func (c AppConfig) ValidateForCollection() error {
	if !c.search.Credentials().IsConfigured() {
		return fmt.Errorf("%w: search credentials missing (set SEARCH_IDENTIFIER and SEARCH_PASSWORD)", ErrInvalid)
	}
	if c.workerCount < 1 {
		return fmt.Errorf("%w: worker count must be at least 1", ErrInvalid)
	}
	return nil
}

// ValidateForGeneration checks that keyword generation can start.
func (c AppConfig) ValidateForGeneration() error {
	if !c.generator.IsConfigured() {
		return fmt.Errorf("%w: generator model missing (set GENERATOR_MODEL)", ErrInvalid)
	}
	return nil
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if c.dbURL == "" || filepath.Base(c.dbURL) == "hivewatch.db" {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "hivewatch.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithCSVPath sets the flat-file sink path.
func WithCSVPath(path string) AppConfigOption {
	return func(c *AppConfig) { c.csvPath = path }
}

// WithCategoriesFile sets the categories YAML file path.
func WithCategoriesFile(path string) AppConfigOption {
	return func(c *AppConfig) { c.categoriesFile = path }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithWorkerCount sets the worker pool size.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithMaxPostsPerCategory sets the accepted-post cap per category.
func WithMaxPostsPerCategory(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.maxPostsPerCategory = n
		}
	}
}

// WithMaxKeywordsPerCategory sets the keyword cap per category.
func WithMaxKeywordsPerCategory(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.maxKeywordsPerCategory = n
		}
	}
}

// WithSearchConfig sets the search endpoint config.
func WithSearchConfig(s SearchConfig) AppConfigOption {
	return func(c *AppConfig) { c.search = s }
}

// WithGeneratorConfig sets the generator endpoint config.
func WithGeneratorConfig(g GeneratorConfig) AppConfigOption {
	return func(c *AppConfig) { c.generator = g }
}

// WithRetryConfig sets the retry config.
func WithRetryConfig(r RetryConfig) AppConfigOption {
	return func(c *AppConfig) { c.retry = r }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Credentials are shown as configured/not-configured only.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("log_level", c.logLevel),
		slog.Int("worker_count", c.workerCount),
		slog.Int("max_posts_per_category", c.maxPostsPerCategory),
		slog.Int("max_keywords_per_category", c.maxKeywordsPerCategory),
		slog.String("search_base_url", c.search.BaseURL()),
		slog.Bool("search_credentials", c.search.Credentials().IsConfigured()),
		slog.String("generator_base_url", c.generator.BaseURL()),
		slog.String("generator_model", c.generator.Model()),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if len(c.dbURL) >= 7 && c.dbURL[:7] == "sqlite:" {
		return c.dbURL
	}
	return "postgres://***@***"
}
