package feed

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	_ Provider = (*NewsAPIProvider)(nil)
	_ Provider = (*GNewsProvider)(nil)
)

type headlinesResponse struct {
	Articles []struct {
		URL    string `json:"url"`
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (r headlinesResponse) candidates(fallbackSource string, limit int) []Candidate {
	out := make([]Candidate, 0, len(r.Articles))
	for _, article := range r.Articles {
		if article.URL == "" {
			continue
		}
		out = append(out, Candidate{
			URL:    article.URL,
			Source: cmp.Or(strings.TrimSpace(article.Source.Name), fallbackSource),
		})
	}
	return dedupe(out, limit)
}

// NewsAPIProvider reads top headlines from newsapi.org.
type NewsAPIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

func NewNewsAPIProvider(apiKey string, httpClient *http.Client, userAgent string) *NewsAPIProvider {
	return &NewsAPIProvider{
		apiKey:     apiKey,
		baseURL:    "https://newsapi.org",
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (p *NewsAPIProvider) Name() string {
	return "newsapi"
}

func (p *NewsAPIProvider) Fetch(ctx context.Context, limit int, _ []string) ([]Candidate, error) {
	endpoint := fmt.Sprintf("%s/v2/top-headlines?language=en&pageSize=%d", p.baseURL, min(100, limit))

	var resp headlinesResponse
	if err := fetchJSON(ctx, p.httpClient, endpoint, p.userAgent, map[string]string{"X-Api-Key": p.apiKey}, &resp); err != nil {
		return nil, err
	}

	return resp.candidates("NewsAPI", limit), nil
}

// GNewsProvider reads top headlines from gnews.io.
type GNewsProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

func NewGNewsProvider(apiKey string, httpClient *http.Client, userAgent string) *GNewsProvider {
	return &GNewsProvider{
		apiKey:     apiKey,
		baseURL:    "https://gnews.io",
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (p *GNewsProvider) Name() string {
	return "gnews"
}

func (p *GNewsProvider) Fetch(ctx context.Context, limit int, _ []string) ([]Candidate, error) {
	endpoint := fmt.Sprintf("%s/api/v4/top-headlines?lang=en&max=%d&apikey=%s", p.baseURL, min(100, limit), url.QueryEscape(p.apiKey))

	var resp headlinesResponse
	if err := fetchJSON(ctx, p.httpClient, endpoint, p.userAgent, nil, &resp); err != nil {
		return nil, err
	}

	return resp.candidates("GNews", limit), nil
}
