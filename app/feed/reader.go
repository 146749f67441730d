package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/myjournal/backend/app/database"
)

const excerptChars = 300

// Reader fetches article pages and extracts their readable content.
type Reader struct {
	httpClient *http.Client
	userAgent  string
}

func NewReader(httpClient *http.Client, userAgent string) *Reader {
	return &Reader{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (r *Reader) Fetch(ctx context.Context, rawURL string) (*Parsed, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		return nil, fmt.Errorf("invalid article url %q", rawURL)
	}

	data, err := fetchBody(ctx, r.httpClient, rawURL, r.userAgent, map[string]string{
		"Accept": "text/html,application/xhtml+xml",
	})
	if err != nil {
		return nil, err
	}

	return r.Parse(data, pageURL)
}

// Parse extracts the readable article from an HTML document. pageURL, when
// known, resolves relative links and images.
func (r *Reader) Parse(data []byte, pageURL *url.URL) (*Parsed, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	parsed := &Parsed{
		Title:          strings.TrimSpace(article.Title),
		Byline:         strings.TrimSpace(article.Byline),
		Excerpt:        strings.TrimSpace(article.Excerpt),
		Content:        article.Content,
		Text:           text,
		ImageURL:       article.Image,
		ReadingMinutes: database.EstimateReadingMinutes(text),
	}
	if parsed.Excerpt == "" {
		parsed.Excerpt = truncateRunes(text, excerptChars)
	}

	slog.Debug("Content extracted successfully",
		"title", parsed.Title,
		"content_length", len(parsed.Content),
		"reading_minutes", parsed.ReadingMinutes)

	return parsed, nil
}

// Patch converts parsed content into an article write.
func (p *Parsed) Patch() database.ArticlePatch {
	return database.ArticlePatch{
		Title:          database.Ptr(p.Title),
		Byline:         database.Ptr(p.Byline),
		Excerpt:        database.Ptr(p.Excerpt),
		FullContent:    database.Ptr(p.Content),
		ImageURL:       database.Ptr(p.ImageURL),
		ReadingMinutes: database.Ptr(p.ReadingMinutes),
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
