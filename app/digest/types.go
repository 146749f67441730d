package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/feed"
)

const (
	DefaultLimit = 12
	MinLimit     = 4
	MaxLimit     = 50

	MaxPerSource    = 4
	LongReadMinutes = 8

	topCount     = 5
	longCap      = 4
	sectionSlots = 6
	maxTopics    = 6

	// EmptyTLDR is stored when no article could be found for a digest.
	EmptyTLDR = "(No articles fetched from your feeds right now.)"
)

// ErrInvalidRequest wraps every validation failure of a Request.
var ErrInvalidRequest = errors.New("invalid digest request")

// Aggregator yields fresh candidate URLs. *feed.Aggregator satisfies it.
type Aggregator interface {
	Fetch(ctx context.Context, limit int, topics []string) []feed.Candidate
}

// Reader fetches and parses a single article page. *feed.Reader satisfies it.
type Reader interface {
	Fetch(ctx context.Context, url string) (*feed.Parsed, error)
}

type Config struct {
	MaxPerSource int
	FreshWindow  time.Duration
	WideWindow   time.Duration
	NewWindow    time.Duration
	Concurrency  int
}

func DefaultConfig() Config {
	return Config{
		MaxPerSource: MaxPerSource,
		FreshWindow:  36 * time.Hour,
		WideWindow:   7 * 24 * time.Hour,
		NewWindow:    12 * time.Hour,
		Concurrency:  4,
	}
}

type Request struct {
	UserID        string
	Date          string // YYYY-MM-DD
	Limit         int
	Refresh       bool
	SummaryLength ai.Mode
	Topics        []string
}

// Validate checks the request and fills defaults. Limit is clamped into
// [MinLimit, MaxLimit]; zero means DefaultLimit.
func (r *Request) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}

	if _, err := time.Parse(time.DateOnly, r.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidRequest, r.Date)
	}

	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	r.Limit = min(max(r.Limit, MinLimit), MaxLimit)

	switch r.SummaryLength {
	case "":
		r.SummaryLength = ai.ModeTLDR
	case ai.ModeTLDR, ai.ModeDetailed:
	default:
		return fmt.Errorf("%w: length must be tldr or detailed, got %q", ErrInvalidRequest, r.SummaryLength)
	}

	return nil
}
