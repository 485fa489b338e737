package bluesky

import (
	"time"

	"github.com/hivewatch/hivewatch/domain/post"
)

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	DID        string `json:"did"`
}

type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e xrpcError) isExpiredToken() bool {
	return e.Error == "ExpiredToken"
}

func (e xrpcError) text(raw []byte) string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error != "" {
		return e.Error
	}
	return string(raw)
}

type searchPostsResponse struct {
	Posts  []postView `json:"posts"`
	Cursor string     `json:"cursor"`
}

type postView struct {
	URI         string     `json:"uri"`
	Author      authorView `json:"author"`
	Record      postRecord `json:"record"`
	LikeCount   int        `json:"likeCount"`
	ReplyCount  int        `json:"replyCount"`
	RepostCount int        `json:"repostCount"`
	QuoteCount  int        `json:"quoteCount"`
}

type authorView struct {
	Handle string `json:"handle"`
}

type postRecord struct {
	Text      string   `json:"text"`
	CreatedAt string   `json:"createdAt"`
	Langs     []string `json:"langs"`
}

func (v postView) toHit() post.SearchHit {
	createdAt, err := time.Parse(time.RFC3339, v.Record.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}
	language := ""
	if len(v.Record.Langs) > 0 {
		language = v.Record.Langs[0]
	}
	return post.SearchHit{
		ExternalID:   v.URI,
		AuthorHandle: v.Author.Handle,
		Text:         v.Record.Text,
		Language:     language,
		CreatedAt:    createdAt,
		Engagement: post.Engagement{
			Likes:   v.LikeCount,
			Replies: v.ReplyCount,
			Reposts: v.RepostCount,
			Quotes:  v.QuoteCount,
		},
	}
}
