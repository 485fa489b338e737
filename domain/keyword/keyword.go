// Package keyword provides keyword domain types and morphological expansion.
package keyword

import (
	"context"
	"time"
)

// Keyword is a search term bound to a category and language.
type Keyword struct {
	id         int64
	categoryID int64
	text       string
	language   string
	createdAt  time.Time
}

// NewKeyword creates a normalized keyword for a category.
func NewKeyword(categoryID int64, text, language string) Keyword {
	return Keyword{
		categoryID: categoryID,
		text:       Normalize(text),
		language:   language,
	}
}

// ReconstructKeyword creates a Keyword with all fields (used by stores).
func ReconstructKeyword(id, categoryID int64, text, language string, createdAt time.Time) Keyword {
	return Keyword{
		id:         id,
		categoryID: categoryID,
		text:       text,
		language:   language,
		createdAt:  createdAt,
	}
}

// ID returns the keyword ID.
func (k Keyword) ID() int64 { return k.id }

// CategoryID returns the owning category ID.
func (k Keyword) CategoryID() int64 { return k.categoryID }

// Text returns the normalized keyword text.
func (k Keyword) Text() string { return k.text }

// Language returns the keyword language tag.
func (k Keyword) Language() string { return k.language }

// CreatedAt returns when the keyword was first persisted.
func (k Keyword) CreatedAt() time.Time { return k.createdAt }

// WithID returns a copy of the keyword with the given ID.
func (k Keyword) WithID(id int64) Keyword {
	k.id = id
	return k
}

// Variants returns the whole-word forms a post must contain to count as a
// match for this keyword: the text itself plus its morphological variants.
func (k Keyword) Variants() []string {
	return Expand([]string{k.text}, k.language)
}

// Generator produces candidate keywords for a category in a given language.
type Generator interface {
	GenerateKeywords(ctx context.Context, category, language string, count int) ([]string, error)
}

// Store persists keywords.
type Store interface {
	// SaveAll inserts the keywords, skipping ones already stored for the
	// same category and language, and returns the stored set with IDs.
	SaveAll(ctx context.Context, keywords []Keyword) ([]Keyword, error)

	// FindByCategory returns all keywords for a category.
	FindByCategory(ctx context.Context, categoryID int64) ([]Keyword, error)
}
