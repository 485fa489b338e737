package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/hivewatch/hivewatch/domain/category"
	"github.com/hivewatch/hivewatch/internal/database"
)

// CategoryStore implements category.Store using GORM.
type CategoryStore struct {
	database.Repository[category.Category, CategoryModel]
}

// NewCategoryStore creates a new CategoryStore.
func NewCategoryStore(db database.Database) CategoryStore {
	return CategoryStore{
		Repository: database.NewRepository[category.Category, CategoryModel](db, CategoryMapper{}, "category"),
	}
}

// Save inserts the category if missing and returns the stored value. The
// name is unique, so saving an existing category returns it unchanged.
func (s CategoryStore) Save(ctx context.Context, c category.Category) (category.Category, error) {
	model := s.Mapper().ToModel(c)

	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&model)
	if result.Error != nil {
		return category.Category{}, fmt.Errorf("save category: %w", result.Error)
	}

	// On conflict the insert is skipped and the model keeps a zero ID, so
	// read the existing row back.
	if result.RowsAffected == 0 {
		return s.FindByName(ctx, c.Name())
	}
	return s.Mapper().ToDomain(model), nil
}

// FindByName returns the category with the given name.
func (s CategoryStore) FindByName(ctx context.Context, name string) (category.Category, error) {
	return s.FindOne(ctx, "name = ?", name)
}

// FindAll returns all known categories.
func (s CategoryStore) FindAll(ctx context.Context) ([]category.Category, error) {
	return s.Find(ctx, "")
}
