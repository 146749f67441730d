package ai

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSummarizer struct {
	summaries atomic.Int32
	topics    atomic.Int32
	output    string
}

func (c *countingSummarizer) Summarize(ctx context.Context, text string, mode Mode) string {
	c.summaries.Add(1)
	if c.output == "" {
		return ""
	}
	return c.output + " (" + string(mode) + ")"
}

func (c *countingSummarizer) TopicIdeas(ctx context.Context, titles []string) []string {
	c.topics.Add(1)
	if c.output == "" {
		return nil
	}
	return []string{"First idea", "Second idea"}
}

func openTestCache(t *testing.T, next Summarizer) *Cache {
	t.Helper()
	cache, err := OpenCache(next, "", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCacheSummarize(t *testing.T) {
	next := &countingSummarizer{output: "Summary"}
	cache := openTestCache(t, next)
	ctx := context.Background()

	assert.Equal(t, "Summary (tldr)", cache.Summarize(ctx, "text", ModeTLDR))
	assert.Equal(t, "Summary (tldr)", cache.Summarize(ctx, "text", ModeTLDR))
	assert.EqualValues(t, 1, next.summaries.Load())

	assert.Equal(t, "Summary (detailed)", cache.Summarize(ctx, "text", ModeDetailed))
	assert.EqualValues(t, 2, next.summaries.Load())
}

func TestCacheSkipsEmptyResults(t *testing.T) {
	next := &countingSummarizer{}
	cache := openTestCache(t, next)
	ctx := context.Background()

	assert.Empty(t, cache.Summarize(ctx, "text", ModeTLDR))
	assert.Empty(t, cache.Summarize(ctx, "text", ModeTLDR))
	assert.EqualValues(t, 2, next.summaries.Load())

	assert.Nil(t, cache.TopicIdeas(ctx, []string{"a"}))
	assert.Nil(t, cache.TopicIdeas(ctx, []string{"a"}))
	assert.EqualValues(t, 2, next.topics.Load())
}

func TestCacheTopicIdeas(t *testing.T) {
	next := &countingSummarizer{output: "x"}
	cache := openTestCache(t, next)
	ctx := context.Background()

	want := []string{"First idea", "Second idea"}
	assert.Equal(t, want, cache.TopicIdeas(ctx, []string{"a", "b"}))
	assert.Equal(t, want, cache.TopicIdeas(ctx, []string{"a", "b"}))
	assert.EqualValues(t, 1, next.topics.Load())

	cache.TopicIdeas(ctx, []string{"a", "c"})
	assert.EqualValues(t, 2, next.topics.Load())
}

func TestCacheKeyDistinguishesParts(t *testing.T) {
	assert.NotEqual(t, cacheKey("summary", "ab", "c"), cacheKey("summary", "a", "bc"))
	assert.NotEqual(t, cacheKey("summary", "tldr", "x"), cacheKey("topics", "tldr", "x"))
}
