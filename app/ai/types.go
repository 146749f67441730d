package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeTLDR     Mode = "tldr"
	ModeDetailed Mode = "detailed"
	ModeOutline  Mode = "outline"
)

func ParseMode(s string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ModeTLDR, ModeDetailed, ModeOutline:
		return mode, nil
	case "":
		return ModeTLDR, nil
	default:
		return "", fmt.Errorf("unknown summary mode %q", s)
	}
}

// Summarizer turns text into short summaries. Implementations never fail:
// an empty result means no summary could be produced and the caller should
// fall back to local extraction.
type Summarizer interface {
	Summarize(ctx context.Context, text string, mode Mode) string
	TopicIdeas(ctx context.Context, titles []string) []string
}

// Provider is a text generation backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

type Config struct {
	MaxInputChars int
	Timeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxInputChars: 16000,
		Timeout:       20 * time.Second,
	}
}

const (
	tokensTLDR     = 150
	tokensDetailed = 300
	tokensOutline  = 250
	tokensTopics   = 140
)

func (m Mode) maxTokens() int {
	switch m {
	case ModeDetailed:
		return tokensDetailed
	case ModeOutline:
		return tokensOutline
	default:
		return tokensTLDR
	}
}
