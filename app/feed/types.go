package feed

import (
	"context"
	"time"
)

// Candidate is a story URL offered by a news provider.
type Candidate struct {
	URL    string
	Source string
}

type Provider interface {
	Name() string
	Fetch(ctx context.Context, limit int, topics []string) ([]Candidate, error)
}

// Entry is one item of a parsed syndication feed.
type Entry struct {
	Link        string
	PublishedAt *time.Time
}

// Parsed is the readable form of a fetched article page.
type Parsed struct {
	Title          string
	Byline         string
	Excerpt        string
	Content        string // Cleaned HTML
	Text           string
	ImageURL       string
	ReadingMinutes int
}

// Catalog types

type Catalog struct {
	DefaultTopics []string     `yaml:"default_topics"`
	Topics        []TopicGroup `yaml:"topics"`
}

type TopicGroup struct {
	Name    string       `yaml:"name"`
	Aliases []string     `yaml:"aliases"`
	Feeds   []FeedSource `yaml:"feeds"`
}

type FeedSource struct {
	Source string `yaml:"source"`
	URL    string `yaml:"url"`
}
