package digest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/database"
	"github.com/myjournal/backend/app/feed"
	"github.com/myjournal/backend/app/urlutil"
)

type memArticles struct {
	mu       sync.Mutex
	articles []database.Article
	windows  []*time.Time
	nextID   int
	listErr  error
}

var _ database.ArticleRepository = (*memArticles)(nil)

func (m *memArticles) add(a database.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if a.ID == "" {
		a.ID = fmt.Sprintf("a%d", m.nextID)
	}
	if a.Host == "" {
		a.Host = urlutil.Host(a.URL)
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	m.articles = append(m.articles, a)
}

func (m *memArticles) byURL(userID, url string) *database.Article {
	url = urlutil.NormalizeURL(url)
	for i := range m.articles {
		if m.articles[i].UserID == userID && m.articles[i].URL == url {
			out := m.articles[i]
			return &out
		}
	}
	return nil
}

func (m *memArticles) GetArticle(ctx context.Context, userID, id string) (*database.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.UserID == userID && a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memArticles) GetArticleByURL(ctx context.Context, userID, url string) (*database.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byURL(userID, url), nil
}

func (m *memArticles) ListArticles(ctx context.Context, filter database.ArticleFilter) ([]database.Article, int, error) {
	return nil, 0, errors.New("not implemented")
}

func (m *memArticles) ListRecentArticles(ctx context.Context, userID string, since *time.Time, limit int) ([]database.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, since)
	if m.listErr != nil {
		return nil, m.listErr
	}

	var out []database.Article
	for _, a := range m.articles {
		if a.UserID != userID {
			continue
		}
		if since != nil && (a.LastSeenAt == nil || a.LastSeenAt.Before(*since)) {
			continue
		}
		out = append(out, a)
	}
	slices.SortStableFunc(out, func(a, b database.Article) int {
		if c := cmp.Compare(seenMillis(b), seenMillis(a)); c != 0 {
			return c
		}
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out[:min(limit, len(out))], nil
}

func seenMillis(a database.Article) int64 {
	if a.LastSeenAt == nil {
		return -1
	}
	return a.LastSeenAt.UnixMilli()
}

func (m *memArticles) CreateArticle(ctx context.Context, article *database.Article) error {
	m.mu.Lock()
	exists := m.byURL(article.UserID, article.URL) != nil
	m.mu.Unlock()
	if exists {
		return database.ErrDuplicate
	}
	article.URL = urlutil.NormalizeURL(article.URL)
	m.add(*article)
	return nil
}

func (m *memArticles) UpdateArticle(ctx context.Context, article *database.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.articles {
		if m.articles[i].ID == article.ID {
			m.articles[i] = *article
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memArticles) DeleteArticle(ctx context.Context, userID, id string) (bool, error) {
	return false, errors.New("not implemented")
}

func (m *memArticles) UpsertArticle(ctx context.Context, userID, url string, set, onInsert database.ArticlePatch) (*database.Article, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.byURL(userID, url); existing != nil {
		if set.IsEmpty() {
			return existing, false, nil
		}
		merged := database.ApplyUpdate(existing, set, database.ArticlePatch{})
		for i := range m.articles {
			if m.articles[i].ID == merged.ID {
				m.articles[i] = merged
			}
		}
		return &merged, false, nil
	}

	article := database.ApplyUpdate(nil, set, onInsert)
	m.nextID++
	article.ID = fmt.Sprintf("a%d", m.nextID)
	article.UserID = userID
	article.URL = urlutil.NormalizeURL(url)
	article.Host = urlutil.Host(article.URL)
	article.UpdatedAt = time.Now()
	m.articles = append(m.articles, article)
	return &article, true, nil
}

type memDigests struct {
	mu        sync.Mutex
	digests   map[string]database.Digest
	upsertErr error
	upserts   int
}

var _ database.DigestRepository = (*memDigests)(nil)

func newMemDigests() *memDigests {
	return &memDigests{digests: make(map[string]database.Digest)}
}

func (m *memDigests) GetDigest(ctx context.Context, userID, date string) (*database.Digest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.digests[userID+"|"+date]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *memDigests) ListDigests(ctx context.Context, userID string, limit int) ([]database.Digest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Digest
	for _, d := range m.digests {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDigests) UpsertDigest(ctx context.Context, digest *database.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.digests[digest.UserID+"|"+digest.Date] = *digest
	return nil
}

type stubAggregator struct {
	mu         sync.Mutex
	candidates []feed.Candidate
	limits     []int
}

func (s *stubAggregator) Fetch(ctx context.Context, limit int, topics []string) []feed.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = append(s.limits, limit)
	return s.candidates
}

type stubReader struct {
	mu     sync.Mutex
	pages  map[string]*feed.Parsed
	called []string
}

func (s *stubReader) Fetch(ctx context.Context, url string) (*feed.Parsed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called = append(s.called, url)
	if p, ok := s.pages[url]; ok {
		return p, nil
	}
	return nil, errors.New("unreadable")
}

type summarizeCall struct {
	text string
	mode ai.Mode
}

// stubSummarizer prefixes its input. An empty prefix simulates a provider
// that always fails.
type stubSummarizer struct {
	mu     sync.Mutex
	prefix string
	topics []string
	calls  []summarizeCall
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string, mode ai.Mode) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, summarizeCall{text: text, mode: mode})
	if s.prefix == "" {
		return ""
	}
	return s.prefix + ai.CleanInput(text)
}

func (s *stubSummarizer) TopicIdeas(ctx context.Context, titles []string) []string {
	return s.topics
}
