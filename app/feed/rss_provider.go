package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
)

var _ Provider = (*RSSProvider)(nil)

// RSSProvider pulls candidates from the syndication feeds of the requested
// topic groups plus any extra feed URLs.
type RSSProvider struct {
	catalog       *Catalog
	defaultTopics []string
	extraFeeds    []string
	httpClient    *http.Client
	userAgent     string
}

func NewRSSProvider(catalog *Catalog, defaultTopics, extraFeeds []string, httpClient *http.Client, userAgent string) *RSSProvider {
	return &RSSProvider{
		catalog:       catalog,
		defaultTopics: defaultTopics,
		extraFeeds:    extraFeeds,
		httpClient:    httpClient,
		userAgent:     userAgent,
	}
}

func (p *RSSProvider) Name() string {
	return "rss"
}

func (p *RSSProvider) Fetch(ctx context.Context, limit int, topics []string) ([]Candidate, error) {
	feeds := p.catalog.Select(topics, p.defaultTopics)
	for _, url := range p.extraFeeds {
		feeds = append(feeds, FeedSource{Source: "Custom", URL: url})
	}
	if len(feeds) == 0 {
		return nil, nil
	}

	perFeed := max(6, ceilDiv(limit, max(6, len(feeds)/2)))

	results := make([][]Candidate, len(feeds))
	failures := make([]error, len(feeds))

	var wg sync.WaitGroup
	for i, f := range feeds {
		wg.Add(1)
		go func(i int, f FeedSource) {
			defer wg.Done()

			entries, err := p.fetchFeed(ctx, f.URL)
			if err != nil {
				slog.Debug("Feed fetch failed", "source", f.Source, "url", f.URL, "error", err)
				failures[i] = err
				return
			}

			entries = newestFirst(entries)
			for _, entry := range entries[:min(perFeed, len(entries))] {
				results[i] = append(results[i], Candidate{URL: entry.Link, Source: f.Source})
			}
		}(i, f)
	}
	wg.Wait()

	var all []Candidate
	failed := 0
	for i := range feeds {
		if failures[i] != nil {
			failed++
			continue
		}
		all = append(all, results[i]...)
	}

	if failed == len(feeds) {
		return nil, fmt.Errorf("all %d feeds failed: %w", failed, failures[0])
	}

	return dedupe(all, limit*2), nil
}

func (p *RSSProvider) fetchFeed(ctx context.Context, url string) ([]Entry, error) {
	data, err := fetchBody(ctx, p.httpClient, url, p.userAgent, nil)
	if err != nil {
		return nil, err
	}

	return NewParser().Run(data)
}

// newestFirst orders entries by publish time, undated entries last in feed order.
func newestFirst(entries []Entry) []Entry {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case a.PublishedAt == nil && b.PublishedAt == nil:
			return 0
		case a.PublishedAt == nil:
			return 1
		case b.PublishedAt == nil:
			return -1
		}
		return b.PublishedAt.Compare(*a.PublishedAt)
	})
	return entries
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
