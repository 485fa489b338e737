package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hivewatch/hivewatch/application/service"
	"github.com/hivewatch/hivewatch/domain/collection"
	"github.com/hivewatch/hivewatch/domain/keyword"
	"github.com/hivewatch/hivewatch/infrastructure/bluesky"
	"github.com/hivewatch/hivewatch/infrastructure/csvsink"
	"github.com/hivewatch/hivewatch/infrastructure/generator"
	"github.com/hivewatch/hivewatch/infrastructure/persistence"
	"github.com/hivewatch/hivewatch/internal/config"
	"github.com/hivewatch/hivewatch/internal/database"
	"github.com/hivewatch/hivewatch/internal/log"
)

func collectCmd() *cobra.Command {
	var (
		envFile        string
		categoriesFile string
		language       string
		csvPath        string
		workers        int
		maxPosts       int
	)

	cmd := &cobra.Command{
		Use:   "collect [category...]",
		Short: "Collect posts for categories",
		Long: `Collect posts for the given categories.

Categories come from positional arguments or from a YAML file
(--categories-file). Each category gets keywords (generated on first run,
reused afterwards), every keyword is searched page by page, and posts that
contain a keyword as a whole word are stored.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  DATA_DIR                  Data directory (default: ~/.hivewatch)
  DB_URL                    Database URL (default: sqlite in the data dir)
  CSV_PATH                  Write posts to a CSV file instead of the database
  CATEGORIES_FILE           Categories YAML file
  LOG_LEVEL                 Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                Log format: pretty, json (default: pretty)
  WORKER_COUNT              Collection workers (default: 5)
  MAX_POSTS_PER_CATEGORY    Accepted-post cap per category (default: 100)
  MAX_KEYWORDS_PER_CATEGORY Keyword cap per category (default: 20)

  SEARCH_*                  Bluesky endpoint configuration
    BASE_URL                PDS base URL (default: https://bsky.social)
    IDENTIFIER              Account handle or email (required)
    PASSWORD                App password (required)
    TIMEOUT                 Request timeout in seconds
    PAGE_SIZE               Hits per page (default: 25)
    MAX_PAGES               Pages per keyword (default: 10)

  GENERATOR_*               Keyword-generation endpoint configuration
    BASE_URL                OpenAI-compatible base URL (e.g. Ollama)
    MODEL                   Model identifier
    API_KEY                 API key, if the endpoint needs one
    KEYWORDS_PER_CATEGORY   Terms to request per category (default: 10)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(collectFlags{
				envFile:        envFile,
				categoriesFile: categoriesFile,
				language:       language,
				csvPath:        csvPath,
				workers:        workers,
				maxPosts:       maxPosts,
				categories:     args,
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&categoriesFile, "categories-file", "", "YAML file with categories")
	cmd.Flags().StringVar(&language, "language", "en", "Language for categories given as arguments")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write posts to this CSV file instead of the database")
	cmd.Flags().IntVar(&workers, "workers", 0, "Collection worker count")
	cmd.Flags().IntVar(&maxPosts, "max-posts", 0, "Accepted-post cap per category")

	return cmd
}

type collectFlags struct {
	envFile        string
	categoriesFile string
	language       string
	csvPath        string
	workers        int
	maxPosts       int
	categories     []string
}

func runCollect(flags collectFlags) error {
	cfg, err := loadConfig(flags.envFile)
	if err != nil {
		return err
	}
	cfg = applyCollectOverrides(cfg, flags)

	if err := cfg.ValidateForCollection(); err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.Configure(cfg)

	specs, err := categorySpecs(cfg, flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithRunID(ctx, strconv.FormatInt(time.Now().UnixNano(), 36))

	db, err := database.NewDatabase(ctx, cfg.DBURL())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := persistence.Migrate(db); err != nil {
		return err
	}

	sink, err := openSink(cfg, db, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	keywords := service.NewKeywords(
		persistence.NewCategoryStore(db),
		persistence.NewKeywordStore(db),
		newGenerator(cfg),
		logger,
		service.WithGenerationCount(cfg.Generator().KeywordsPerCategory()),
		service.WithMaxKeywords(cfg.MaxKeywordsPerCategory()),
	)
	prepared, err := keywords.Prepare(ctx, specs)
	if err != nil {
		return err
	}

	search := cfg.Search()
	client := bluesky.NewClient(
		bluesky.WithBaseURL(search.BaseURL()),
		bluesky.WithTimeout(search.Timeout()),
	)
	creds := collection.NewCredentials(search.Credentials().Identifier(), search.Credentials().Password())

	collector := service.NewCollector(client, sink, creds, logger,
		service.WithWorkers(cfg.WorkerCount()),
		service.WithPageSize(search.PageSize()),
		service.WithMaxPages(search.MaxPages()),
		service.WithMaxPostsPerCategory(cfg.MaxPostsPerCategory()),
		service.WithRetryConfig(cfg.Retry()),
	)

	report, runErr := collector.Run(ctx, service.Tasks(prepared))
	printReport(report)
	if runErr != nil {
		return fmt.Errorf("collection aborted: %w", runErr)
	}
	return nil
}

func applyCollectOverrides(cfg config.AppConfig, flags collectFlags) config.AppConfig {
	var opts []config.AppConfigOption
	if flags.categoriesFile != "" {
		opts = append(opts, config.WithCategoriesFile(flags.categoriesFile))
	}
	if flags.csvPath != "" {
		opts = append(opts, config.WithCSVPath(flags.csvPath))
	}
	if flags.workers > 0 {
		opts = append(opts, config.WithWorkerCount(flags.workers))
	}
	if flags.maxPosts > 0 {
		opts = append(opts, config.WithMaxPostsPerCategory(flags.maxPosts))
	}
	return cfg.Apply(opts...)
}

// categorySpecs resolves the categories for this run: a YAML file when
// configured, positional arguments otherwise.
func categorySpecs(cfg config.AppConfig, flags collectFlags) ([]config.CategorySpec, error) {
	if cfg.CategoriesFile() != "" {
		return config.LoadCategories(cfg.CategoriesFile())
	}
	if len(flags.categories) == 0 {
		return nil, fmt.Errorf("%w: no categories given (pass category names or --categories-file)", config.ErrInvalid)
	}
	specs := make([]config.CategorySpec, len(flags.categories))
	for i, name := range flags.categories {
		specs[i] = config.CategorySpec{Name: name, Language: flags.language}
	}
	return specs, nil
}

func openSink(cfg config.AppConfig, db database.Database, logger *log.Logger) (collection.Sink, error) {
	if cfg.CSVPath() != "" {
		return csvsink.Open(cfg.CSVPath(), logger)
	}
	return persistence.NewSink(db, logger), nil
}

// newGenerator returns nil when no model is configured; categories without
// stored keywords then run degraded.
func newGenerator(cfg config.AppConfig) keyword.Generator {
	gen := cfg.Generator()
	if !gen.IsConfigured() {
		return nil
	}
	return generator.NewOpenAIGenerator(generator.Config{
		APIKey:        gen.APIKey(),
		BaseURL:       gen.BaseURL(),
		Model:         gen.Model(),
		Timeout:       gen.Timeout(),
		MaxRetries:    gen.MaxRetries(),
		InitialDelay:  gen.InitialDelay(),
		BackoffFactor: gen.BackoffFactor(),
	})
}

func printReport(report collection.RunReport) {
	fmt.Printf("collection finished in %s\n", report.Duration().Round(time.Millisecond))
	for _, c := range report.Categories {
		fmt.Printf("  %s: %d keywords, %d searched, %d accepted, %d written, %d duplicates",
			c.Category, c.Keywords, c.Searched, c.Accepted, c.Written, c.Duplicates)
		if c.Rejected > 0 || c.SkippedScanned > 0 {
			fmt.Printf(", %d rejected, %d already scanned", c.Rejected, c.SkippedScanned)
		}
		if c.PersistFailures > 0 {
			fmt.Printf(", %d persist failures", c.PersistFailures)
		}
		if c.PartiallyFailed > 0 || c.Aborted > 0 {
			fmt.Printf(" (%d partially failed, %d aborted)", c.PartiallyFailed, c.Aborted)
		}
		fmt.Println()
	}
}
