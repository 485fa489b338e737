package persistence

import "time"

// CategoryModel is the database model for categories.
type CategoryModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"uniqueIndex;not null"`
	Language    string `gorm:"not null;default:en"`
	MaxPosts    int    `gorm:"not null;default:0"`
	MaxKeywords int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
}

// TableName returns the table name for CategoryModel.
func (CategoryModel) TableName() string { return "categories" }

// KeywordModel is the database model for keywords. A keyword is unique
// within its category and language.
type KeywordModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	CategoryID int64  `gorm:"uniqueIndex:idx_keywords_category_text_lang;not null"`
	Text       string `gorm:"uniqueIndex:idx_keywords_category_text_lang;not null;column:keyword"`
	Language   string `gorm:"uniqueIndex:idx_keywords_category_text_lang;not null"`
	CreatedAt  time.Time
}

// TableName returns the table name for KeywordModel.
func (KeywordModel) TableName() string { return "keywords" }

// PostModel is the database model for posts. ExternalID is the backend's
// stable post identifier (the AT URI for Bluesky).
type PostModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ExternalID  string `gorm:"uniqueIndex;not null"`
	Author      string `gorm:"not null"`
	Text        string `gorm:"not null"`
	Language    string
	Likes       int `gorm:"not null;default:0"`
	Replies     int `gorm:"not null;default:0"`
	Reposts     int `gorm:"not null;default:0"`
	Quotes      int `gorm:"not null;default:0"`
	CreatedAt   time.Time
	CollectedAt time.Time
}

// TableName returns the table name for PostModel.
func (PostModel) TableName() string { return "posts" }

// PostKeywordModel associates a post with a keyword that matched it.
type PostKeywordModel struct {
	PostID    int64 `gorm:"primaryKey;autoIncrement:false"`
	KeywordID int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

// TableName returns the table name for PostKeywordModel.
func (PostKeywordModel) TableName() string { return "post_keywords" }

// ScannedPostModel records every external post ID a run has stored, so
// later runs can skip those hits without refetching them.
type ScannedPostModel struct {
	ExternalID string `gorm:"primaryKey"`
	ScannedAt  time.Time
}

// TableName returns the table name for ScannedPostModel.
func (ScannedPostModel) TableName() string { return "scanned_posts" }
