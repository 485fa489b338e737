// Package category provides the category domain type.
package category

import (
	"context"
	"strings"
	"time"
)

// Category is a topic under which keywords are generated and posts collected.
// Immutable during a collection run.
type Category struct {
	id          int64
	name        string
	language    string
	maxPosts    int
	maxKeywords int
	createdAt   time.Time
}

// NewCategory creates a Category with a normalized name and language tag.
func NewCategory(name, language string) Category {
	return Category{
		name:     strings.TrimSpace(name),
		language: strings.ToLower(strings.TrimSpace(language)),
	}
}

// ReconstructCategory creates a Category with all fields (used by stores).
func ReconstructCategory(id int64, name, language string, maxPosts, maxKeywords int, createdAt time.Time) Category {
	return Category{
		id:          id,
		name:        name,
		language:    language,
		maxPosts:    maxPosts,
		maxKeywords: maxKeywords,
		createdAt:   createdAt,
	}
}

// ID returns the category ID.
func (c Category) ID() int64 { return c.id }

// Name returns the category name.
func (c Category) Name() string { return c.name }

// Language returns the language tag for keyword generation.
func (c Category) Language() string { return c.language }

// MaxPosts returns the accepted-post cap, or 0 when the global cap applies.
func (c Category) MaxPosts() int { return c.maxPosts }

// MaxKeywords returns the keyword cap, or 0 when the global cap applies.
func (c Category) MaxKeywords() int { return c.maxKeywords }

// CreatedAt returns when the category was first persisted.
func (c Category) CreatedAt() time.Time { return c.createdAt }

// WithID returns a copy of the category with the given ID.
func (c Category) WithID(id int64) Category {
	c.id = id
	return c
}

// WithCaps returns a copy with per-category cap overrides.
func (c Category) WithCaps(maxPosts, maxKeywords int) Category {
	c.maxPosts = maxPosts
	c.maxKeywords = maxKeywords
	return c
}

// Store persists categories.
type Store interface {
	// Save inserts the category if missing and returns the stored value.
	// Existing categories are returned unchanged (name is unique).
	Save(ctx context.Context, c Category) (Category, error)

	// FindByName returns the category with the given name.
	FindByName(ctx context.Context, name string) (Category, error)

	// FindAll returns all known categories.
	FindAll(ctx context.Context) ([]Category, error)
}
