// Package post provides post domain types and hit validation.
package post

import (
	"time"

	"github.com/hivewatch/hivewatch/domain/keyword"
)

// Engagement holds the interaction counts of a post at collection time.
type Engagement struct {
	Likes   int
	Replies int
	Reposts int
	Quotes  int
}

// SearchHit is a raw post returned by the search backend, before validation.
type SearchHit struct {
	ExternalID   string
	AuthorHandle string
	Text         string
	Language     string
	CreatedAt    time.Time
	Engagement   Engagement
}

// Post is a validated, normalized post ready for persistence.
type Post struct {
	id          int64
	externalID  string
	author      string
	text        string
	language    string
	createdAt   time.Time
	collectedAt time.Time
	engagement  Engagement
}

// ReconstructPost creates a Post with all fields (used by stores).
func ReconstructPost(id int64, externalID, author, text, language string, createdAt, collectedAt time.Time, engagement Engagement) Post {
	return Post{
		id:          id,
		externalID:  externalID,
		author:      author,
		text:        text,
		language:    language,
		createdAt:   createdAt,
		collectedAt: collectedAt,
		engagement:  engagement,
	}
}

// ID returns the post ID.
func (p Post) ID() int64 { return p.id }

// ExternalID returns the backend's stable identifier for the post.
func (p Post) ExternalID() string { return p.externalID }

// Author returns the author handle.
func (p Post) Author() string { return p.author }

// Text returns the post text.
func (p Post) Text() string { return p.text }

// Language returns the language tag reported by the backend, if any.
func (p Post) Language() string { return p.language }

// CreatedAt returns when the post was published.
func (p Post) CreatedAt() time.Time { return p.createdAt }

// CollectedAt returns when the post was collected.
func (p Post) CollectedAt() time.Time { return p.collectedAt }

// Engagement returns the interaction counts at collection time.
func (p Post) Engagement() Engagement { return p.engagement }

// WithID returns a copy of the post with the given ID.
func (p Post) WithID(id int64) Post {
	p.id = id
	return p
}

// CollectedPost associates a validated post with the keyword that found it.
type CollectedPost struct {
	Post    Post
	Keyword keyword.Keyword
}
