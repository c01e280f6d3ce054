// Package openqa is the test-runner trigger client.
package openqa

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// isosRoute is the openQA scheduling endpoint; the trigger settings are
// posted to it verbatim as form values.
const isosRoute = "/api/v1/isos"

// Client schedules jobs on one openQA instance.
type Client struct {
	instance string
	http     *http.Client
	log      *slog.Logger
}

// New creates a runner client for the given instance URL.
func New(instance string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		instance: strings.TrimSuffix(instance, "/"),
		http:     httpClient,
		log:      log,
	}
}

// Instance returns the instance URL the client posts to.
func (c *Client) Instance() string {
	return c.instance
}

// PostJob triggers one aggregated build with the given settings.
func (c *Client) PostJob(ctx context.Context, settings map[string]string) error {
	form := url.Values{}
	for k, v := range settings {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.instance+isosRoute, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", isosRoute, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: unexpected status %s", isosRoute, resp.Status)
	}

	c.log.Debug("job posted", "instance", c.instance,
		"build", settings["BUILD"], "arch", settings["ARCH"])
	return nil
}
