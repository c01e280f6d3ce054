// Package pchelper implements the three public-cloud settings resolvers:
// latest tools-image lookup, regex-based image lookup and pint-catalog
// lookup. Each satisfies aggregate.SettingsResolver; presence of the
// documented output key is the success signal.
package pchelper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

func newHTTP(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

func newLog(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", url, err)
	}
	return nil
}

func copySettings(settings map[string]string) map[string]string {
	out := make(map[string]string, len(settings)+1)
	for k, v := range settings {
		out[k] = v
	}
	return out
}
