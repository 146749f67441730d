package database

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
)

const wordsPerMinute = 220

// ArticlePatch is a partial article write. Nil fields are left untouched.
type ArticlePatch struct {
	Title          *string
	Byline         *string
	Excerpt        *string
	FullContent    *string
	ImageURL       *string
	Source         *string
	ReadingMinutes *int
	Tags           *[]string
	LastSeenAt     *time.Time
}

func Ptr[T any](v T) *T {
	return &v
}

func (p ArticlePatch) IsEmpty() bool {
	return p == ArticlePatch{}
}

func (p ArticlePatch) applyTo(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Byline != nil {
		a.Byline = *p.Byline
	}
	if p.Excerpt != nil {
		a.Excerpt = *p.Excerpt
	}
	if p.FullContent != nil {
		a.FullContent = *p.FullContent
	}
	if p.ImageURL != nil {
		a.ImageURL = *p.ImageURL
	}
	if p.Source != nil {
		a.Source = *p.Source
	}
	if p.ReadingMinutes != nil {
		a.ReadingMinutes = *p.ReadingMinutes
	}
	if p.Tags != nil {
		a.Tags = slices.Clone(*p.Tags)
	}
	if p.LastSeenAt != nil {
		seen := *p.LastSeenAt
		a.LastSeenAt = &seen
	}
}

// ApplyUpdate merges a write into an article. With no existing article the
// result is built from onInsert and then set; otherwise only set applies.
// Reading minutes are estimated from the best available text when unset.
func ApplyUpdate(existing *Article, set, onInsert ArticlePatch) Article {
	var out Article
	if existing != nil {
		out = *existing
		out.Tags = slices.Clone(existing.Tags)
		if existing.LastSeenAt != nil {
			seen := *existing.LastSeenAt
			out.LastSeenAt = &seen
		}
	} else {
		onInsert.applyTo(&out)
	}

	set.applyTo(&out)

	if out.ReadingMinutes < 1 {
		out.ReadingMinutes = EstimateReadingMinutes(firstNonEmpty(out.FullContent, out.Excerpt, out.Title))
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}

	return out
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripTags replaces HTML tags with spaces.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}

// EstimateReadingMinutes is the word count of htmlOrText at 220 words per
// minute, rounded, never below one.
func EstimateReadingMinutes(htmlOrText string) int {
	words := len(strings.Fields(StripTags(htmlOrText)))
	return max(1, int(math.Round(float64(words)/wordsPerMinute)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
