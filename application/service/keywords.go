package service

import (
	"context"
	"fmt"

	"github.com/hivewatch/hivewatch/domain/category"
	"github.com/hivewatch/hivewatch/domain/collection"
	"github.com/hivewatch/hivewatch/domain/keyword"
	"github.com/hivewatch/hivewatch/internal/config"
	"github.com/hivewatch/hivewatch/internal/log"
)

// PreparedCategory is a category with its keyword set, ready to be turned
// into collection tasks.
type PreparedCategory struct {
	Category category.Category
	Keywords []keyword.Keyword
	// Degraded is true when keyword generation failed or the language has
	// no morphological rules; the category still runs with what it has.
	Degraded bool
}

// Tasks expands the prepared categories into one task per keyword.
func Tasks(prepared []PreparedCategory) []*collection.Task {
	var tasks []*collection.Task
	for _, pc := range prepared {
		for _, k := range pc.Keywords {
			tasks = append(tasks, collection.NewTask(pc.Category, k))
		}
	}
	return tasks
}

// Keywords prepares the keyword set of each category: generating terms with
// the model when a category has none, expanding them morphologically and
// persisting the result.
type Keywords struct {
	categories  category.Store
	keywords    keyword.Store
	generator   keyword.Generator
	logger      *log.Logger
	perCategory int
	maxKeywords int
}

// KeywordsOption is a functional option for Keywords.
type KeywordsOption func(*Keywords)

// WithGenerationCount sets how many terms to request from the model.
func WithGenerationCount(n int) KeywordsOption {
	return func(s *Keywords) {
		if n > 0 {
			s.perCategory = n
		}
	}
}

// WithMaxKeywords sets the default per-category keyword cap, applied after
// expansion.
func WithMaxKeywords(n int) KeywordsOption {
	return func(s *Keywords) {
		if n > 0 {
			s.maxKeywords = n
		}
	}
}

// NewKeywords creates the keyword preparation service. The generator may be
// nil, in which case categories without stored keywords run degraded.
func NewKeywords(
	categories category.Store,
	keywords keyword.Store,
	generator keyword.Generator,
	logger *log.Logger,
	opts ...KeywordsOption,
) *Keywords {
	s := &Keywords{
		categories:  categories,
		keywords:    keywords,
		generator:   generator,
		logger:      logger,
		perCategory: config.DefaultKeywordsPerCategory,
		maxKeywords: config.DefaultMaxKeywordsPerCategory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare readies every category spec for collection. Generation failures
// degrade a category rather than failing the run; the error return is for
// store failures only.
func (s *Keywords) Prepare(ctx context.Context, specs []config.CategorySpec) ([]PreparedCategory, error) {
	prepared := make([]PreparedCategory, 0, len(specs))
	for _, spec := range specs {
		pc, err := s.prepareOne(ctx, spec)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, pc)
	}
	return prepared, nil
}

func (s *Keywords) prepareOne(ctx context.Context, spec config.CategorySpec) (PreparedCategory, error) {
	logger := s.logger.With("category", spec.Name, "language", spec.Language)

	cat, err := s.categories.Save(ctx,
		category.NewCategory(spec.Name, spec.Language).WithCaps(spec.MaxPosts, spec.MaxKeywords))
	if err != nil {
		return PreparedCategory{}, fmt.Errorf("save category %q: %w", spec.Name, err)
	}
	// Caps come from the run's categories file, not the stored row.
	cat = cat.WithCaps(spec.MaxPosts, spec.MaxKeywords)

	degraded := false
	if !keyword.LanguageSupported(cat.Language()) {
		logger.WarnContext(ctx, "no morphological rules for language, keywords will not be expanded")
		degraded = true
	}

	existing, err := s.keywords.FindByCategory(ctx, cat.ID())
	if err != nil {
		return PreparedCategory{}, fmt.Errorf("load keywords for %q: %w", spec.Name, err)
	}
	if kept := keywordsForLanguage(existing, cat.Language()); len(kept) > 0 {
		logger.InfoContext(ctx, "reusing stored keywords", "count", len(kept))
		return PreparedCategory{Category: cat, Keywords: kept, Degraded: degraded}, nil
	}

	terms := s.generate(ctx, logger, cat)
	if len(terms) == 0 {
		return PreparedCategory{Category: cat, Degraded: true}, nil
	}

	expanded := keyword.Expand(terms, cat.Language())
	if limit := s.keywordCap(cat); len(expanded) > limit {
		expanded = expanded[:limit]
	}

	candidates := make([]keyword.Keyword, len(expanded))
	for i, text := range expanded {
		candidates[i] = keyword.NewKeyword(cat.ID(), text, cat.Language())
	}
	saved, err := s.keywords.SaveAll(ctx, candidates)
	if err != nil {
		return PreparedCategory{}, fmt.Errorf("save keywords for %q: %w", spec.Name, err)
	}

	logger.InfoContext(ctx, "prepared keywords", "generated", len(terms), "expanded", len(saved))
	return PreparedCategory{Category: cat, Keywords: saved, Degraded: degraded}, nil
}

// generate asks the model for terms. Failures log a warning and return
// nothing: a category without keywords is skipped, not fatal.
func (s *Keywords) generate(ctx context.Context, logger *log.Logger, cat category.Category) []string {
	if s.generator == nil {
		logger.WarnContext(ctx, "no keyword generator configured, category has no keywords")
		return nil
	}
	terms, err := s.generator.GenerateKeywords(ctx, cat.Name(), cat.Language(), s.perCategory)
	if err != nil {
		logger.WarnContext(ctx, "keyword generation failed, category runs without keywords", "error", err)
		return nil
	}
	return terms
}

func (s *Keywords) keywordCap(cat category.Category) int {
	if cat.MaxKeywords() > 0 {
		return cat.MaxKeywords()
	}
	return s.maxKeywords
}

func keywordsForLanguage(keywords []keyword.Keyword, language string) []keyword.Keyword {
	kept := make([]keyword.Keyword, 0, len(keywords))
	for _, k := range keywords {
		if k.Language() == language {
			kept = append(kept, k)
		}
	}
	return kept
}
