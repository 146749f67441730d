package digest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/database"
	"github.com/myjournal/backend/app/feed"
	"github.com/myjournal/backend/app/urlutil"
)

// Builder produces and stores one digest per user and date.
type Builder struct {
	articles   database.ArticleRepository
	digests    database.DigestRepository
	aggregator Aggregator
	reader     Reader
	summarizer ai.Summarizer
	cfg        Config
	now        func() time.Time
}

func NewBuilder(articles database.ArticleRepository, digests database.DigestRepository,
	aggregator Aggregator, reader Reader, summarizer ai.Summarizer, cfg Config) *Builder {
	defaults := DefaultConfig()
	if cfg.MaxPerSource <= 0 {
		cfg.MaxPerSource = defaults.MaxPerSource
	}
	if cfg.FreshWindow <= 0 {
		cfg.FreshWindow = defaults.FreshWindow
	}
	if cfg.WideWindow <= 0 {
		cfg.WideWindow = defaults.WideWindow
	}
	if cfg.NewWindow <= 0 {
		cfg.NewWindow = defaults.NewWindow
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}

	return &Builder{
		articles:   articles,
		digests:    digests,
		aggregator: aggregator,
		reader:     reader,
		summarizer: summarizer,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (b *Builder) GetByDate(ctx context.Context, userID, date string) (*database.Digest, error) {
	return b.digests.GetDigest(ctx, userID, date)
}

func (b *Builder) List(ctx context.Context, userID string, limit int) ([]database.Digest, error) {
	return b.digests.ListDigests(ctx, userID, limit)
}

// Generate builds the digest for req and upserts it. Provider and summarizer
// failures degrade to fallbacks; only validation and datastore errors are
// returned, and in that case nothing is written for the digest.
func (b *Builder) Generate(ctx context.Context, req Request) (*database.Digest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := b.now()
	slog.Info("Generating digest", "user_id", req.UserID, "date", req.Date, "limit", req.Limit, "refresh", req.Refresh, "length", string(req.SummaryLength))

	if req.Refresh {
		if err := b.refresh(ctx, req.UserID, max(10, 2*req.Limit), req.Topics); err != nil {
			return nil, err
		}
	}

	candidates, err := b.selectCandidates(ctx, req)
	if err != nil {
		return nil, err
	}

	now := b.now()
	digest := &database.Digest{
		UserID:      req.UserID,
		Date:        req.Date,
		GeneratedAt: now,
	}

	if len(candidates) == 0 {
		digest.TLDR = EmptyTLDR
		digest.Topics = []string{}
		digest.Sources = []string{}
		digest.Items = []database.DigestItem{}
	} else {
		picked := diversify(rank(candidates, now), req.Limit, b.cfg.MaxPerSource)
		b.fill(ctx, digest, section(picked), req.SummaryLength, now)
	}

	if err := b.digests.UpsertDigest(ctx, digest); err != nil {
		return nil, fmt.Errorf("failed to save digest: %w", err)
	}

	slog.Info("Digest generated", "user_id", req.UserID, "date", req.Date, "items", digest.Stats.TotalItems, "new", digest.Stats.NewCount, "duration", time.Since(start))
	return digest, nil
}

// selectCandidates widens the freshness window until something turns up: 36
// hours, then 7 days, then a forced refresh with no window at all.
func (b *Builder) selectCandidates(ctx context.Context, req Request) ([]database.Article, error) {
	limit := req.Limit * 4

	for _, window := range []time.Duration{b.cfg.FreshWindow, b.cfg.WideWindow} {
		since := b.now().Add(-window)
		list, err := b.articles.ListRecentArticles(ctx, req.UserID, &since, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to select digest candidates: %w", err)
		}
		if len(list) > 0 {
			slog.Debug("Digest candidates selected", "user_id", req.UserID, "window", window.String(), "count", len(list))
			return list, nil
		}
	}

	slog.Info("No recent articles, forcing refresh", "user_id", req.UserID)
	if err := b.refresh(ctx, req.UserID, max(2*req.Limit, 14), req.Topics); err != nil {
		return nil, err
	}

	list, err := b.articles.ListRecentArticles(ctx, req.UserID, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select digest candidates: %w", err)
	}
	return list, nil
}

// refresh pulls candidates from the aggregator into the article store.
// Known URLs only get a missing source filled in and keep their lastSeenAt.
// New URLs are read in full and inserted; unreadable pages are skipped.
func (b *Builder) refresh(ctx context.Context, userID string, limit int, topics []string) error {
	if b.aggregator == nil {
		return nil
	}

	var candidates []feed.Candidate
	seen := make(map[string]bool)
	for _, c := range b.aggregator.Fetch(ctx, limit, topics) {
		c.URL = urlutil.NormalizeURL(c.URL)
		if c.URL == "" || seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		candidates = append(candidates, c)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		inserted int
		sem      = make(chan struct{}, b.cfg.Concurrency)
	)

	for _, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			created, err := b.refreshOne(ctx, userID, c)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if created {
				inserted++
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	slog.Debug("Digest refresh finished", "user_id", userID, "candidates", len(candidates), "inserted", inserted)
	return nil
}

func (b *Builder) refreshOne(ctx context.Context, userID string, c feed.Candidate) (bool, error) {
	source := c.Source
	if source == "" {
		source = urlutil.Host(c.URL)
	}

	existing, err := b.articles.GetArticleByURL(ctx, userID, c.URL)
	if err != nil {
		return false, fmt.Errorf("failed to look up article: %w", err)
	}

	if existing != nil {
		var set database.ArticlePatch
		if existing.Source == "" && source != "" {
			set.Source = database.Ptr(source)
		}
		if set.IsEmpty() {
			return false, nil
		}
		if _, _, err := b.articles.UpsertArticle(ctx, userID, c.URL, set, database.ArticlePatch{}); err != nil {
			return false, fmt.Errorf("failed to update article: %w", err)
		}
		return false, nil
	}

	if b.reader == nil {
		return false, nil
	}
	parsed, err := b.reader.Fetch(ctx, c.URL)
	if err != nil {
		slog.Debug("Skipping unreadable article", "url", c.URL, "error", err)
		return false, nil
	}

	onInsert := parsed.Patch()
	onInsert.Source = database.Ptr(source)
	onInsert.LastSeenAt = database.Ptr(b.now())

	// A concurrent insert of the same URL leaves set empty, so the loser
	// reads the winner back without another write.
	_, created, err := b.articles.UpsertArticle(ctx, userID, c.URL, database.ArticlePatch{}, onInsert)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}
	return created, nil
}

func (b *Builder) fill(ctx context.Context, digest *database.Digest, entries []sectioned, mode ai.Mode, now time.Time) {
	items := make([]database.DigestItem, len(entries))
	var titles []string
	var lines []string
	titleSeen := make(map[string]bool)
	sourceSeen := make(map[string]bool)
	var sources []string

	for i, e := range entries {
		a := e.article
		source := itemSource(a)
		items[i] = database.DigestItem{
			ArticleRef:     a.ID,
			URL:            a.URL,
			Title:          a.Title,
			Source:         source,
			ReadingMinutes: a.ReadingMinutes,
			Category:       e.category,
			Rank:           i + 1,
		}

		if a.ReadingMinutes >= LongReadMinutes {
			digest.Stats.LongReads++
		}
		if a.LastSeenAt != nil && now.Sub(*a.LastSeenAt) < b.cfg.NewWindow {
			digest.Stats.NewCount++
		}

		if name := strings.TrimPrefix(source, "www."); name != "" && !sourceSeen[name] {
			sourceSeen[name] = true
			sources = append(sources, name)
		}

		title := strings.TrimSpace(a.Title)
		if title == "" || titleSeen[strings.ToLower(title)] {
			continue
		}
		titleSeen[strings.ToLower(title)] = true
		titles = append(titles, title)
		lines = append(lines, joinSentences(title, a.Excerpt))
	}

	slices.Sort(sources)
	digest.Sources = sources
	if digest.Sources == nil {
		digest.Sources = []string{}
	}
	digest.Stats.TotalItems = len(items)

	digest.TLDR = b.aggregateSummary(ctx, strings.Join(lines, "\n"), titles, mode)
	digest.Topics = b.topicIdeas(ctx, titles)

	b.summarizeItems(ctx, items, entries)
	digest.Items = items
}

func (b *Builder) aggregateSummary(ctx context.Context, text string, titles []string, mode ai.Mode) string {
	if b.summarizer != nil {
		if out := b.summarizer.Summarize(ctx, text, mode); out != "" {
			return out
		}
	}
	if out := ai.Fallback(text, mode); out != "" {
		return out
	}
	return strings.Join(titles, " · ")
}

func (b *Builder) topicIdeas(ctx context.Context, titles []string) []string {
	var topics []string
	if b.summarizer != nil {
		topics = b.summarizer.TopicIdeas(ctx, titles)
	}
	if len(topics) == 0 {
		topics = ai.FallbackTopics(titles)
	}
	if topics == nil {
		return []string{}
	}
	return topics[:min(maxTopics, len(topics))]
}

// summarizeItems fills each item's blurb concurrently. Results land by index
// so the final order does not depend on completion order.
func (b *Builder) summarizeItems(ctx context.Context, items []database.DigestItem, entries []sectioned) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, b.cfg.Concurrency)

	for i := range items {
		a := entries[i].article
		text := bestText(a)

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			var summary string
			if b.summarizer != nil && text != "" {
				summary = b.summarizer.Summarize(ctx, text, ai.ModeTLDR)
			}
			if summary == "" {
				summary = strings.TrimSpace(a.Excerpt)
			}
			items[i].Summary = summary
		}()
	}
	wg.Wait()
}

func bestText(a database.Article) string {
	if content := strings.TrimSpace(database.StripTags(a.FullContent)); content != "" {
		return content
	}
	return joinSentences(a.Title, a.Excerpt)
}

func itemSource(a database.Article) string {
	if a.Source != "" {
		return a.Source
	}
	if a.Host != "" {
		return a.Host
	}
	return urlutil.Host(a.URL)
}

func joinSentences(parts ...string) string {
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p[len(p)-1:], ".!?") {
			p += "."
		}
		out = append(out, p)
	}
	return strings.Join(out, " ")
}
