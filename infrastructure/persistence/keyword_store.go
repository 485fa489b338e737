package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/hivewatch/hivewatch/domain/keyword"
	"github.com/hivewatch/hivewatch/internal/database"
)

// KeywordStore implements keyword.Store using GORM.
type KeywordStore struct {
	database.Repository[keyword.Keyword, KeywordModel]
}

// NewKeywordStore creates a new KeywordStore.
func NewKeywordStore(db database.Database) KeywordStore {
	return KeywordStore{
		Repository: database.NewRepository[keyword.Keyword, KeywordModel](db, KeywordMapper{}, "keyword"),
	}
}

// SaveAll inserts the keywords, skipping ones already stored for the same
// category and language, and returns the stored set with IDs. Conflict rows
// keep a zero ID after the insert, so those are read back individually.
func (s KeywordStore) SaveAll(ctx context.Context, keywords []keyword.Keyword) ([]keyword.Keyword, error) {
	if len(keywords) == 0 {
		return []keyword.Keyword{}, nil
	}

	models := make([]KeywordModel, len(keywords))
	for i, k := range keywords {
		models[i] = s.Mapper().ToModel(k)
	}

	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category_id"}, {Name: "keyword"}, {Name: "language"}},
		DoNothing: true,
	}).Create(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("save keywords: %w", result.Error)
	}

	saved := make([]keyword.Keyword, 0, len(models))
	for _, m := range models {
		if m.ID == 0 {
			existing, err := s.FindOne(ctx, "category_id = ? AND keyword = ? AND language = ?",
				m.CategoryID, m.Text, m.Language)
			if err != nil {
				return nil, err
			}
			saved = append(saved, existing)
			continue
		}
		saved = append(saved, s.Mapper().ToDomain(m))
	}
	return saved, nil
}

// FindByCategory returns all keywords for a category.
func (s KeywordStore) FindByCategory(ctx context.Context, categoryID int64) ([]keyword.Keyword, error) {
	return s.Find(ctx, "category_id = ?", categoryID)
}
