package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// EntityMapper maps between domain and database model types.
type EntityMapper[D any, E any] interface {
	ToDomain(entity E) D
	ToModel(domain D) E
}

// Repository provides shared persistence plumbing for stores: a scoped GORM
// session, the entity mapper and a label for error messages.
type Repository[D any, E any] struct {
	db     Database
	mapper EntityMapper[D, E]
	label  string
}

// NewRepository creates a new Repository.
func NewRepository[D any, E any](db Database, mapper EntityMapper[D, E], label string) Repository[D, E] {
	return Repository[D, E]{
		db:     db,
		mapper: mapper,
		label:  label,
	}
}

// DB returns a GORM session for the context.
func (r Repository[D, E]) DB(ctx context.Context) *gorm.DB {
	return r.db.Session(ctx)
}

// Mapper returns the entity mapper.
func (r Repository[D, E]) Mapper() EntityMapper[D, E] {
	return r.mapper
}

// FindOne retrieves a single entity matching the given conditions.
func (r Repository[D, E]) FindOne(ctx context.Context, query string, args ...any) (D, error) {
	var entity E
	result := r.DB(ctx).Where(query, args...).First(&entity)
	if result.Error != nil {
		var zero D
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
		}
		return zero, fmt.Errorf("find one %s: %w", r.label, result.Error)
	}
	return r.mapper.ToDomain(entity), nil
}

// Find retrieves all entities matching the given conditions.
func (r Repository[D, E]) Find(ctx context.Context, query string, args ...any) ([]D, error) {
	var entities []E
	db := r.DB(ctx)
	if query != "" {
		db = db.Where(query, args...)
	}
	if result := db.Find(&entities); result.Error != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, result.Error)
	}
	domains := make([]D, len(entities))
	for i, entity := range entities {
		domains[i] = r.mapper.ToDomain(entity)
	}
	return domains, nil
}
