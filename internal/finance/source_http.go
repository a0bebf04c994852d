package finance

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const maxSettingsPayload = 64 << 10

// Doer executes HTTP requests. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPSource reads settings from a remote configuration endpoint.
type HTTPSource struct {
	URL    string
	Client Doer
	Header http.Header
}

// FetchSettings implements Source.
func (s HTTPSource) FetchSettings(ctx context.Context) (Settings, error) {
	if s.Client == nil || s.URL == "" {
		return Settings{}, fmt.Errorf("%w: http source not configured", ErrSourceUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Settings{}, fmt.Errorf("finance: build settings request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, values := range s.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Settings{}, ErrSettingsNotFound
	case resp.StatusCode != http.StatusOK:
		return Settings{}, fmt.Errorf("%w: unexpected status %d", ErrSourceUnavailable, resp.StatusCode)
	}
	return DecodeSettings(io.LimitReader(resp.Body, maxSettingsPayload))
}

// StaticSource always returns the same settings. Used when no backend is configured.
type StaticSource Settings

// FetchSettings implements Source.
func (s StaticSource) FetchSettings(context.Context) (Settings, error) {
	return Settings(s), nil
}
