package post

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hivewatch/hivewatch/domain/keyword"
)

// KeywordFilter revalidates search hits against the keyword that produced
// them. Search backends match loosely (substrings, stemming, ranking), so a
// hit only counts when the post text contains the keyword or one of its
// variants as a whole word.
type KeywordFilter struct {
	keyword keyword.Keyword
	pattern *regexp.Regexp
	now     func() time.Time
}

// NewKeywordFilter compiles a whole-word, case-insensitive matcher for the
// keyword and all its morphological variants. Word boundaries are spelled
// out as non-letter, non-digit positions because RE2's \b is ASCII-only and
// would never match around accented letters ("élection", "énergie").
func NewKeywordFilter(k keyword.Keyword) (KeywordFilter, error) {
	variants := k.Variants()
	if len(variants) == 0 {
		return KeywordFilter{}, fmt.Errorf("keyword %q has no searchable text", k.Text())
	}
	quoted := make([]string, len(variants))
	for i, v := range variants {
		quoted[i] = regexp.QuoteMeta(v)
	}
	pattern, err := regexp.Compile(
		`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(quoted, "|") + `)(?:[^\p{L}\p{N}_]|$)`)
	if err != nil {
		return KeywordFilter{}, fmt.Errorf("failed to compile keyword pattern: %w", err)
	}
	return KeywordFilter{keyword: k, pattern: pattern, now: time.Now}, nil
}

// Keyword returns the keyword this filter validates against.
func (f KeywordFilter) Keyword() keyword.Keyword { return f.keyword }

// Normalize validates a hit and converts it into a persistable post. It
// returns false when the hit has no text or author, or when the text does
// not contain any keyword variant as a whole word.
func (f KeywordFilter) Normalize(hit SearchHit) (Post, bool) {
	text := strings.TrimSpace(hit.Text)
	author := strings.TrimSpace(hit.AuthorHandle)
	if hit.ExternalID == "" || text == "" || author == "" {
		return Post{}, false
	}
	if !f.pattern.MatchString(text) {
		return Post{}, false
	}
	return Post{
		externalID:  hit.ExternalID,
		author:      author,
		text:        text,
		language:    hit.Language,
		createdAt:   hit.CreatedAt,
		collectedAt: f.now().UTC(),
		engagement:  hit.Engagement,
	}, true
}
