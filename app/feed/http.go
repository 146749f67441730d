package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const maxBodyBytes = 10 << 20

var secretParams = []string{"apikey", "api_key", "key", "token"}

// redactURL renders u with credential query params masked.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	clone := *u
	query := clone.Query()
	changed := false
	for _, param := range secretParams {
		if query.Has(param) {
			query.Set(param, "REDACTED")
			changed = true
		}
	}
	if changed {
		clone.RawQuery = query.Encode()
	}
	return clone.String()
}

func fetchBody(ctx context.Context, client *http.Client, rawURL, userAgent string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.New("failed to create request: invalid url")
	}

	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	safeURL := redactURL(req.URL)

	resp, err := client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = safeURL
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", safeURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, safeURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func fetchJSON(ctx context.Context, client *http.Client, rawURL, userAgent string, headers map[string]string, v any) error {
	data, err := fetchBody(ctx, client, rawURL, userAgent, headers)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		if u, perr := url.Parse(rawURL); perr == nil {
			return fmt.Errorf("failed to decode response from %s: %w", redactURL(u), err)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
