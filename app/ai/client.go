package ai

import (
	"context"
	"log/slog"
	"time"
)

var _ Summarizer = (*Client)(nil)

const maxTopics = 6

// Client implements Summarizer over a text generation Provider. Calls are
// bounded by the configured timeout and are safe for concurrent use when the
// provider is.
type Client struct {
	provider Provider
	cfg      Config
}

func NewClient(provider Provider, cfg Config) *Client {
	defaults := DefaultConfig()
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = defaults.MaxInputChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &Client{provider: provider, cfg: cfg}
}

func (c *Client) Summarize(ctx context.Context, text string, mode Mode) string {
	text = truncate(CleanInput(text), c.cfg.MaxInputChars)
	if text == "" || c.provider == nil {
		return ""
	}

	out, err := c.complete(ctx, summarySystem, buildPrompt(text, mode), mode.maxTokens())
	if err != nil {
		slog.Warn("Summarization failed", "provider", c.provider.Name(), "mode", string(mode), "input_length", len(text), "error", err)
		return ""
	}

	return normalizeOutput(out, mode)
}

func (c *Client) TopicIdeas(ctx context.Context, titles []string) []string {
	var list []string
	for _, title := range titles {
		if title = compress(title); title != "" {
			list = append(list, title)
		}
	}
	if len(list) == 0 || c.provider == nil {
		return nil
	}

	out, err := c.complete(ctx, topicsSystem, buildTopicsPrompt(list), tokensTopics)
	if err != nil {
		slog.Warn("Topic ideas failed", "provider", c.provider.Name(), "headlines", len(list), "error", err)
		return nil
	}

	return parseTopicLines(out, maxTopics)
}

func (c *Client) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := c.provider.Complete(callCtx, system, prompt, maxTokens)
	if err != nil {
		return "", err
	}

	slog.Debug("Provider completed", "provider", c.provider.Name(), "max_tokens", maxTokens, "output_length", len(out), "duration", time.Since(start))
	return out, nil
}
