package database

import (
	"time"
)

type Article struct {
	ID             string     `json:"id"`
	UserID         string     `json:"-"`
	URL            string     `json:"url"` // Normalized, unique per user
	Host           string     `json:"host"`
	Title          string     `json:"title"`
	Byline         string     `json:"byline"`
	Excerpt        string     `json:"excerpt"`
	FullContent    string     `json:"fullContent"` // HTML or plain text
	ImageURL       string     `json:"imageUrl"`
	ReadingMinutes int        `json:"readingMinutes"`
	Source         string     `json:"source"` // Provider or publisher name
	Tags           []string   `json:"tags"`
	LastSeenAt     *time.Time `json:"lastSeenAt"` // Touched only by user-triggered refresh and import
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Category string

const (
	CategoryTop      Category = "top"
	CategoryEmerging Category = "emerging"
	CategoryLong     Category = "long"
)

// DigestItem is a snapshot of an article at generation time. ArticleRef is
// a lookup-only reference; later article edits do not change the item.
type DigestItem struct {
	ArticleRef     string   `json:"articleRef"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Source         string   `json:"source"`
	ReadingMinutes int      `json:"readingMinutes"`
	Category       Category `json:"category"`
	Rank           int      `json:"rank"` // 1-based final position
}

type DigestStats struct {
	TotalItems int `json:"totalItems"`
	LongReads  int `json:"longReads"`
	NewCount   int `json:"newCount"`
}

type Digest struct {
	ID          string       `json:"id"`
	UserID      string       `json:"-"`
	Date        string       `json:"date"` // YYYY-MM-DD
	TLDR        string       `json:"tldr"`
	Topics      []string     `json:"topics"`
	Sources     []string     `json:"sources"`
	Stats       DigestStats  `json:"stats"`
	Items       []DigestItem `json:"items"`
	GeneratedAt time.Time    `json:"generatedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ArticleFilter struct {
	UserID string
	Query  string // Case-insensitive match against title and excerpt
	Tag    string
	Limit  int
	Offset int
}
