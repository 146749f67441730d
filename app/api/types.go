package api

import (
	"context"
	"time"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/database"
	"github.com/myjournal/backend/app/digest"
	"github.com/myjournal/backend/app/feed"
)

// DigestService is satisfied by *digest.Builder.
type DigestService interface {
	Generate(ctx context.Context, req digest.Request) (*database.Digest, error)
	GetByDate(ctx context.Context, userID, date string) (*database.Digest, error)
	List(ctx context.Context, userID string, limit int) ([]database.Digest, error)
}

// CandidateSource is satisfied by *feed.Aggregator.
type CandidateSource interface {
	Fetch(ctx context.Context, limit int, topics []string) []feed.Candidate
}

// PageReader is satisfied by *feed.Reader.
type PageReader interface {
	Fetch(ctx context.Context, url string) (*feed.Parsed, error)
}

var (
	_ DigestService   = (*digest.Builder)(nil)
	_ CandidateSource = (*feed.Aggregator)(nil)
	_ PageReader      = (*feed.Reader)(nil)
)

type Handler struct {
	articles   database.ArticleRepository
	users      database.UserRepository
	digests    DigestService
	candidates CandidateSource
	reader     PageReader
	summarizer ai.Summarizer
	sessionTTL time.Duration
	version    string
	now        func() time.Time
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type importRequest struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

type updateRequest struct {
	Title   *string   `json:"title"`
	Tags    *[]string `json:"tags"`
	Reparse bool      `json:"reparse"`
}

type summarizeRequest struct {
	Text      string `json:"text"`
	ArticleID string `json:"articleId"`
	Mode      string `json:"mode"`
}
