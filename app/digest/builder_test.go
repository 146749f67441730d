package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/database"
	"github.com/myjournal/backend/app/feed"
)

type testEnv struct {
	builder    *Builder
	articles   *memArticles
	digests    *memDigests
	aggregator *stubAggregator
	reader     *stubReader
	summarizer *stubSummarizer
	now        time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		articles:   &memArticles{},
		digests:    newMemDigests(),
		aggregator: &stubAggregator{},
		reader:     &stubReader{pages: map[string]*feed.Parsed{}},
		summarizer: &stubSummarizer{prefix: "AI: ", topics: []string{"What surprised you today?"}},
		now:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.builder = NewBuilder(env.articles, env.digests, env.aggregator, env.reader, env.summarizer, DefaultConfig())
	env.builder.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) seed(id, host string, minutes int, updatedAge, seenAge time.Duration) {
	seen := e.now.Add(-seenAge)
	e.articles.add(database.Article{
		ID:             id,
		UserID:         "u1",
		URL:            fmt.Sprintf("https://%s/%s", host, id),
		Title:          "Headline " + id,
		Excerpt:        "Excerpt for " + id + ".",
		FullContent:    "<p>Body of " + id + ".</p>",
		ReadingMinutes: minutes,
		Source:         host,
		UpdatedAt:      e.now.Add(-updatedAge),
		LastSeenAt:     &seen,
	})
}

func request(limit int) Request {
	return Request{UserID: "u1", Date: "2026-03-01", Limit: limit}
}

func TestRequestValidate(t *testing.T) {
	req := Request{UserID: "u1", Date: "2026-03-01"}
	require.NoError(t, req.Validate())
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Equal(t, ai.ModeTLDR, req.SummaryLength)

	req = Request{UserID: "u1", Date: "2026-03-01", Limit: 1}
	require.NoError(t, req.Validate())
	assert.Equal(t, MinLimit, req.Limit)

	req = Request{UserID: "u1", Date: "2026-03-01", Limit: 500, SummaryLength: ai.ModeDetailed}
	require.NoError(t, req.Validate())
	assert.Equal(t, MaxLimit, req.Limit)

	for _, bad := range []Request{
		{UserID: "u1", Date: "03/01/2026"},
		{UserID: "u1", Date: "2026-02-30"},
		{UserID: "", Date: "2026-03-01"},
		{UserID: "u1", Date: "2026-03-01", SummaryLength: ai.ModeOutline},
	} {
		err := bad.Validate()
		assert.ErrorIs(t, err, ErrInvalidRequest, "%+v", bad)
	}
}

func TestGenerateInvalidRequestHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.builder.Generate(context.Background(), Request{UserID: "u1", Date: "yesterday", Refresh: true})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, env.aggregator.limits)
	assert.Zero(t, env.digests.upserts)
}

func TestGenerateDiversifiesHosts(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 8; i++ {
		env.seed(fmt.Sprintf("a%d", i), "a.com", 3, time.Duration(i)*time.Hour, time.Hour)
		env.seed(fmt.Sprintf("b%d", i), "b.com", 3, time.Duration(i)*time.Hour+30*time.Minute, time.Hour)
	}
	for i := 0; i < 4; i++ {
		env.seed(fmt.Sprintf("c%d", i), "c.com", 3, time.Duration(20+i)*time.Hour, time.Hour)
	}

	digest, err := env.builder.Generate(context.Background(), request(10))
	require.NoError(t, err)
	require.Len(t, digest.Items, 10)

	counts := map[string]int{}
	var fromC []string
	for i, item := range digest.Items {
		counts[item.Source]++
		assert.Equal(t, i+1, item.Rank)
		if item.Source == "c.com" {
			fromC = append(fromC, item.ArticleRef)
		}
	}
	assert.Equal(t, map[string]int{"a.com": 4, "b.com": 4, "c.com": 2}, counts)
	assert.Equal(t, []string{"c0", "c1"}, fromC)

	assert.Equal(t, []string{"a.com", "b.com", "c.com"}, digest.Sources)
	assert.Equal(t, 10, digest.Stats.TotalItems)
	assert.Equal(t, 10, digest.Stats.NewCount)
	assert.Zero(t, digest.Stats.LongReads)
}

func TestGenerateSectionsAndStats(t *testing.T) {
	env := newTestEnv(t)
	minutes := []int{2, 3, 4, 5, 6, 9, 1, 20}
	for i, m := range minutes {
		env.seed(fmt.Sprintf("s%d", i), fmt.Sprintf("host%d.com", i), m, time.Duration(i)*time.Hour, 20*time.Hour)
	}

	digest, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)

	var got []string
	for _, item := range digest.Items {
		got = append(got, item.ArticleRef+":"+string(item.Category))
	}
	assert.Equal(t, []string{
		"s0:top", "s1:top", "s2:top", "s3:top", "s4:top",
		"s6:emerging",
		"s5:long", "s7:long",
	}, got)

	assert.Equal(t, 2, digest.Stats.LongReads)
	assert.Zero(t, digest.Stats.NewCount, "articles seen 20h ago are not new")
}

func TestGenerateUsesFreshWindowFirst(t *testing.T) {
	env := newTestEnv(t)
	env.seed("recent", "a.com", 3, time.Hour, 2*time.Hour)
	env.seed("older", "b.com", 3, time.Hour, 3*24*time.Hour)

	digest, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)

	require.Len(t, env.articles.windows, 1, "7-day window must not be consulted")
	require.NotNil(t, env.articles.windows[0])
	assert.Equal(t, env.now.Add(-36*time.Hour), *env.articles.windows[0])
	require.Len(t, digest.Items, 1)
	assert.Equal(t, "recent", digest.Items[0].ArticleRef)
}

func TestGenerateWidensToSevenDays(t *testing.T) {
	env := newTestEnv(t)
	env.seed("older", "b.com", 3, time.Hour, 3*24*time.Hour)
	env.seed("ancient", "c.com", 3, time.Hour, 30*24*time.Hour)

	digest, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)

	require.Len(t, env.articles.windows, 2)
	assert.Equal(t, env.now.Add(-7*24*time.Hour), *env.articles.windows[1])
	assert.Empty(t, env.aggregator.limits, "no forced refresh when the wide window has articles")
	require.Len(t, digest.Items, 1)
	assert.Equal(t, "older", digest.Items[0].ArticleRef)
}

func TestGenerateForcesRefreshWhenNothingRecent(t *testing.T) {
	env := newTestEnv(t)
	env.aggregator.candidates = []feed.Candidate{
		{URL: "https://www.news.com/story?utm_source=rss", Source: "News"},
		{URL: "https://news.com/story#comments", Source: "News"},
		{URL: "https://broken.com/page", Source: "Broken"},
	}
	env.reader.pages["https://news.com/story"] = &feed.Parsed{
		Title:          "Big story",
		Excerpt:        "Something happened.",
		Content:        "<p>Something happened in detail.</p>",
		ReadingMinutes: 2,
	}

	digest, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)

	assert.Equal(t, []int{24}, env.aggregator.limits)
	assert.ElementsMatch(t, []string{"https://news.com/story", "https://broken.com/page"}, env.reader.called)
	require.Len(t, env.articles.windows, 3)
	assert.Nil(t, env.articles.windows[2], "newest regardless of window")

	require.Len(t, digest.Items, 1)
	item := digest.Items[0]
	assert.Equal(t, "Big story", item.Title)
	assert.Equal(t, "News", item.Source)
	assert.Equal(t, database.CategoryTop, item.Category)
	assert.Equal(t, 1, digest.Stats.NewCount)

	stored := env.articles.byURL("u1", "https://news.com/story")
	require.NotNil(t, stored)
	require.NotNil(t, stored.LastSeenAt)
	assert.Equal(t, env.now, *stored.LastSeenAt)
}

func TestGenerateEmptySentinel(t *testing.T) {
	env := newTestEnv(t)

	digest, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)

	assert.Equal(t, EmptyTLDR, digest.TLDR)
	assert.Empty(t, digest.Items)
	assert.NotNil(t, digest.Items)
	assert.Equal(t, database.DigestStats{}, digest.Stats)

	stored, err := env.digests.GetDigest(context.Background(), "u1", "2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0, stored.Stats.TotalItems)
	assert.NotEmpty(t, stored.TLDR)
}

func TestGenerateRefreshKeepsLastSeenOfKnownArticles(t *testing.T) {
	env := newTestEnv(t)
	seen := env.now.Add(-5 * time.Hour)
	env.articles.add(database.Article{
		ID:             "known",
		UserID:         "u1",
		URL:            "https://known.com/a",
		Title:          "Known",
		ReadingMinutes: 3,
		UpdatedAt:      env.now.Add(-5 * time.Hour),
		LastSeenAt:     &seen,
	})
	env.aggregator.candidates = []feed.Candidate{{URL: "https://www.known.com/a?utm_campaign=x", Source: "Known Times"}}

	req := request(12)
	req.Refresh = true
	_, err := env.builder.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []int{24}, env.aggregator.limits)
	assert.Empty(t, env.reader.called, "known articles are not re-read")

	stored := env.articles.byURL("u1", "https://known.com/a")
	require.NotNil(t, stored)
	assert.Equal(t, "Known Times", stored.Source)
	require.NotNil(t, stored.LastSeenAt)
	assert.Equal(t, seen, *stored.LastSeenAt)
}

func TestGenerateRefreshDoesNotOverwriteSource(t *testing.T) {
	env := newTestEnv(t)
	env.seed("known", "known.com", 3, time.Hour, time.Hour)
	env.aggregator.candidates = []feed.Candidate{{URL: "https://known.com/known", Source: "Other"}}

	req := request(12)
	req.Refresh = true
	_, err := env.builder.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "known.com", env.articles.byURL("u1", "https://known.com/known").Source)
}

func TestGenerateSummaries(t *testing.T) {
	env := newTestEnv(t)
	env.seed("one", "a.com", 3, time.Hour, time.Hour)
	env.seed("two", "b.com", 3, 2*time.Hour, time.Hour)

	req := request(12)
	req.SummaryLength = ai.ModeDetailed
	digest, err := env.builder.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "AI: Headline one. Excerpt for one. Headline two. Excerpt for two.", digest.TLDR)
	assert.Equal(t, []string{"What surprised you today?"}, digest.Topics)
	require.Len(t, digest.Items, 2)
	assert.Equal(t, "AI: Body of one.", digest.Items[0].Summary)
	assert.Equal(t, "AI: Body of two.", digest.Items[1].Summary)

	modes := map[ai.Mode]int{}
	for _, call := range env.summarizer.calls {
		modes[call.mode]++
	}
	assert.Equal(t, map[ai.Mode]int{ai.ModeDetailed: 1, ai.ModeTLDR: 2}, modes)
}

func TestGenerateFallsBackWhenSummarizerFails(t *testing.T) {
	env := newTestEnv(t)
	env.summarizer.prefix = ""
	env.summarizer.topics = nil
	env.seed("one", "a.com", 3, time.Hour, time.Hour)
	env.seed("two", "b.com", 3, 2*time.Hour, time.Hour)

	digest, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)

	require.Len(t, digest.Items, 2)
	assert.Equal(t, "Headline one. Excerpt for one. Headline two.", digest.TLDR)
	assert.Equal(t, []string{"Reflect on: Headline one", "Reflect on: Headline two"}, digest.Topics)
	assert.Equal(t, "Excerpt for one.", digest.Items[0].Summary)
	assert.Equal(t, "Excerpt for two.", digest.Items[1].Summary)
}

func TestGenerateTopicsCappedAtSix(t *testing.T) {
	env := newTestEnv(t)
	env.summarizer.topics = strings.Split("a b c d e f g h", " ")
	env.seed("one", "a.com", 3, time.Hour, time.Hour)

	digest, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)
	assert.Len(t, digest.Topics, 6)
}

func TestGenerateIsIdempotentWithoutRefresh(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 15; i++ {
		env.seed(fmt.Sprintf("x%d", i), fmt.Sprintf("h%d.com", i%5), 2+i, time.Duration(i)*time.Hour, time.Hour)
	}

	first, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)
	second, err := env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)

	type slot struct {
		ref      string
		category database.Category
		rank     int
	}
	slots := func(d *database.Digest) []slot {
		var out []slot
		for _, item := range d.Items {
			out = append(out, slot{item.ArticleRef, item.Category, item.Rank})
		}
		return out
	}
	assert.Equal(t, slots(first), slots(second))

	all, err := env.digests.ListDigests(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 2, env.digests.upserts)
}

func TestGenerateDatastoreFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seed("one", "a.com", 3, time.Hour, time.Hour)
	env.digests.upsertErr = errors.New("disk full")

	_, err := env.builder.Generate(context.Background(), request(12))
	assert.ErrorContains(t, err, "disk full")

	env = newTestEnv(t)
	env.articles.listErr = errors.New("database is locked")

	_, err = env.builder.Generate(context.Background(), request(12))
	assert.ErrorContains(t, err, "database is locked")
	assert.Zero(t, env.digests.upserts)
}

func TestGetByDate(t *testing.T) {
	env := newTestEnv(t)

	missing, err := env.builder.GetByDate(context.Background(), "u1", "2026-03-01")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = env.builder.Generate(context.Background(), request(12))
	require.NoError(t, err)

	found, err := env.builder.GetByDate(context.Background(), "u1", "2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, EmptyTLDR, found.TLDR)
}
