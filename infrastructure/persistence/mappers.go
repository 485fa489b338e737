package persistence

import (
	"github.com/hivewatch/hivewatch/domain/category"
	"github.com/hivewatch/hivewatch/domain/keyword"
	"github.com/hivewatch/hivewatch/domain/post"
)

// CategoryMapper maps between domain Category and CategoryModel.
type CategoryMapper struct{}

// ToDomain converts a CategoryModel to a domain Category.
func (m CategoryMapper) ToDomain(e CategoryModel) category.Category {
	return category.ReconstructCategory(e.ID, e.Name, e.Language, e.MaxPosts, e.MaxKeywords, e.CreatedAt)
}

// ToModel converts a domain Category to a CategoryModel.
func (m CategoryMapper) ToModel(c category.Category) CategoryModel {
	return CategoryModel{
		ID:          c.ID(),
		Name:        c.Name(),
		Language:    c.Language(),
		MaxPosts:    c.MaxPosts(),
		MaxKeywords: c.MaxKeywords(),
		CreatedAt:   c.CreatedAt(),
	}
}

// KeywordMapper maps between domain Keyword and KeywordModel.
type KeywordMapper struct{}

// ToDomain converts a KeywordModel to a domain Keyword.
func (m KeywordMapper) ToDomain(e KeywordModel) keyword.Keyword {
	return keyword.ReconstructKeyword(e.ID, e.CategoryID, e.Text, e.Language, e.CreatedAt)
}

// ToModel converts a domain Keyword to a KeywordModel.
func (m KeywordMapper) ToModel(k keyword.Keyword) KeywordModel {
	return KeywordModel{
		ID:         k.ID(),
		CategoryID: k.CategoryID(),
		Text:       k.Text(),
		Language:   k.Language(),
		CreatedAt:  k.CreatedAt(),
	}
}

// PostMapper maps between domain Post and PostModel.
type PostMapper struct{}

// ToDomain converts a PostModel to a domain Post.
func (m PostMapper) ToDomain(e PostModel) post.Post {
	return post.ReconstructPost(
		e.ID,
		e.ExternalID,
		e.Author,
		e.Text,
		e.Language,
		e.CreatedAt,
		e.CollectedAt,
		post.Engagement{
			Likes:   e.Likes,
			Replies: e.Replies,
			Reposts: e.Reposts,
			Quotes:  e.Quotes,
		},
	)
}

// ToModel converts a domain Post to a PostModel.
func (m PostMapper) ToModel(p post.Post) PostModel {
	engagement := p.Engagement()
	return PostModel{
		ID:          p.ID(),
		ExternalID:  p.ExternalID(),
		Author:      p.Author(),
		Text:        p.Text(),
		Language:    p.Language(),
		Likes:       engagement.Likes,
		Replies:     engagement.Replies,
		Reposts:     engagement.Reposts,
		Quotes:      engagement.Quotes,
		CreatedAt:   p.CreatedAt(),
		CollectedAt: p.CollectedAt(),
	}
}
