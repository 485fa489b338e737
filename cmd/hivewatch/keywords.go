package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hivewatch/hivewatch/application/service"
	"github.com/hivewatch/hivewatch/infrastructure/persistence"
	"github.com/hivewatch/hivewatch/internal/config"
	"github.com/hivewatch/hivewatch/internal/database"
	"github.com/hivewatch/hivewatch/internal/log"
)

func keywordsCmd() *cobra.Command {
	var (
		envFile        string
		categoriesFile string
		language       string
	)

	cmd := &cobra.Command{
		Use:   "keywords [category...]",
		Short: "Generate and store keywords without collecting posts",
		Long: `Generate keywords for the given categories and store them, without
running a collection. Useful for reviewing or editing the keyword set
before the first real run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeywords(envFile, categoriesFile, language, args)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&categoriesFile, "categories-file", "", "YAML file with categories")
	cmd.Flags().StringVar(&language, "language", "en", "Language for categories given as arguments")

	return cmd
}

func runKeywords(envFile, categoriesFile, language string, categories []string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if categoriesFile != "" {
		cfg = cfg.Apply(config.WithCategoriesFile(categoriesFile))
	}

	if err := cfg.ValidateForGeneration(); err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.Configure(cfg)

	specs, err := categorySpecs(cfg, collectFlags{language: language, categories: categories})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, cfg.DBURL())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := persistence.Migrate(db); err != nil {
		return err
	}

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

	for _, pc := range prepared {
		fmt.Printf("%s (%s): %d keywords", pc.Category.Name(), pc.Category.Language(), len(pc.Keywords))
		if pc.Degraded {
			fmt.Print(" [degraded]")
		}
		fmt.Println()
		for _, k := range pc.Keywords {
			fmt.Printf("  %s\n", k.Text())
		}
	}
	return nil
}
