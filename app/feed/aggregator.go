package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myjournal/backend/app/urlutil"
)

type AggregatorConfig struct {
	ProviderTimeout time.Duration // Bound on each provider call
	PerHostCap      int           // Max candidates from one host
	PaidShare       float64       // Paid results alone suffice at this fraction of the limit
}

func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		ProviderTimeout: 15 * time.Second,
		PerHostCap:      3,
		PaidShare:       0.6,
	}
}

// Aggregator merges candidates from every configured provider. Paid
// providers are preferred over the free feed catalog. Provider failures are
// logged and never returned.
type Aggregator struct {
	cfg  AggregatorConfig
	paid []Provider
	free []Provider
}

func NewAggregator(cfg AggregatorConfig, paid, free []Provider) *Aggregator {
	defaults := DefaultAggregatorConfig()
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaults.ProviderTimeout
	}
	if cfg.PerHostCap <= 0 {
		cfg.PerHostCap = defaults.PerHostCap
	}
	if cfg.PaidShare <= 0 {
		cfg.PaidShare = defaults.PaidShare
	}

	return &Aggregator{cfg: cfg, paid: paid, free: free}
}

func (a *Aggregator) Fetch(ctx context.Context, limit int, topics []string) []Candidate {
	if limit <= 0 {
		return nil
	}

	start := time.Now()
	providers := append(append([]Provider{}, a.paid...), a.free...)
	results := a.fetchAll(ctx, providers, limit, topics)

	var paid []Candidate
	for i := range a.paid {
		paid = append(paid, results[i]...)
	}
	paid = capPerHost(dedupe(paid, limit*3), a.cfg.PerHostCap, limit)
	if len(paid) > 0 && float64(len(paid)) >= float64(limit)*a.cfg.PaidShare {
		slog.Info("News aggregated", "candidates", len(paid), "paid_only", true, "duration", time.Since(start))
		return paid
	}

	var all []Candidate
	for _, list := range results {
		all = append(all, list...)
	}

	out := capPerHost(dedupe(all, limit*3), a.cfg.PerHostCap, limit)
	slog.Info("News aggregated", "candidates", len(out), "providers", len(providers), "duration", time.Since(start))

	return out
}

func (a *Aggregator) fetchAll(ctx context.Context, providers []Provider, limit int, topics []string) [][]Candidate {
	results := make([][]Candidate, len(providers))

	var wg sync.WaitGroup
	for i, provider := range providers {
		wg.Add(1)
		go func(i int, provider Provider) {
			defer wg.Done()

			providerCtx, cancel := context.WithTimeout(ctx, a.cfg.ProviderTimeout)
			defer cancel()

			candidates, err := provider.Fetch(providerCtx, limit, topics)
			if err != nil {
				slog.Warn("News provider failed", "provider", provider.Name(), "error", err)
				return
			}
			slog.Debug("News provider fetched", "provider", provider.Name(), "candidates", len(candidates))
			results[i] = candidates
		}(i, provider)
	}
	wg.Wait()

	return results
}

// dedupe keeps the first candidate per case-insensitive origin+path and
// drops URLs without a host.
func dedupe(list []Candidate, limit int) []Candidate {
	seen := make(map[string]bool)
	var out []Candidate
	for _, c := range list {
		if len(out) >= limit {
			break
		}
		if urlutil.Host(c.URL) == "" {
			continue
		}
		key := urlutil.Key(c.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func capPerHost(list []Candidate, perHost, limit int) []Candidate {
	counts := make(map[string]int)
	var out []Candidate
	for _, c := range list {
		if len(out) >= limit {
			break
		}
		host := urlutil.Host(c.URL)
		if counts[host] >= perHost {
			continue
		}
		counts[host]++
		out = append(out, c)
	}
	return out
}
