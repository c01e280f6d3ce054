// Package dashboard is the QEM dashboard client: it loads incidents,
// reads prior build state and writes aggregate records.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/qembot/qembot/internal/aggregate"
)

// Client talks to one QEM dashboard instance. Timeouts and cancellation
// are the injected http.Client's responsibility.
type Client struct {
	base  string
	token string
	http  *http.Client
	log   *slog.Logger
}

// New creates a dashboard client. token is sent on every request as
// "Authorization: Token <token>".
func New(base, token string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		base:  strings.TrimSuffix(base, "/"),
		token: token,
		http:  httpClient,
		log:   log,
	}
}

// incidentDoc is the wire shape of one incident. Channels arrive as
// colon-joined strings ending in ...:<product>:<version>:<arch>.
type incidentDoc struct {
	Number    int      `json:"number"`
	Channels  []string `json:"channels"`
	Livepatch bool     `json:"livepatch"`
	Staging   bool     `json:"staging"`
}

// Incidents loads every active incident from the dashboard.
// A failure here is fatal to the run: without incidents there is nothing
// to decide.
func (c *Client) Incidents(ctx context.Context) ([]aggregate.Incident, error) {
	var docs []incidentDoc
	if err := c.getJSON(ctx, "/api/incidents", nil, &docs); err != nil {
		return nil, fmt.Errorf("loading incidents: %w", err)
	}

	incidents := make([]aggregate.Incident, 0, len(docs))
	for _, doc := range docs {
		inc := aggregate.Incident{
			ID:        doc.Number,
			Livepatch: doc.Livepatch,
			Staging:   doc.Staging,
		}
		for _, raw := range doc.Channels {
			if ch, ok := parseChannel(raw); ok {
				inc.Channels = append(inc.Channels, ch)
			}
		}
		incidents = append(incidents, inc)
	}

	c.log.Info("incidents loaded from qem dashboard", "count", len(incidents))
	return incidents, nil
}

// parseChannel splits a colon-joined channel string from the right:
// the last element is the architecture, the one before it the version,
// everything in front of those the product (products may contain colons).
// Strings with fewer than three elements are not repository channels.
func parseChannel(raw string) (aggregate.Channel, bool) {
	last := strings.LastIndex(raw, ":")
	if last < 0 {
		return aggregate.Channel{}, false
	}
	mid := strings.LastIndex(raw[:last], ":")
	if mid < 0 {
		return aggregate.Channel{}, false
	}

	ch := aggregate.Channel{
		Product: raw[:mid],
		Version: raw[mid+1 : last],
		Arch:    raw[last+1:],
	}
	if ch.Product == "" || ch.Version == "" || ch.Arch == "" {
		return aggregate.Channel{}, false
	}
	return ch, true
}

// priorStateDoc is one element of the update_settings listing.
type priorStateDoc struct {
	Repohash string `json:"repohash"`
	Build    string `json:"build"`
}

// PriorState fetches the last recorded (repohash, build) for one
// (product, arch). An empty listing means no build was ever recorded;
// transport and decoding failures are returned to the caller, which
// treats them as "no prior state" (fail-open).
func (c *Client) PriorState(ctx context.Context, product, arch string) (aggregate.PriorState, error) {
	params := url.Values{}
	params.Set("product", product)
	params.Set("arch", arch)

	var docs []priorStateDoc
	if err := c.getJSON(ctx, "/"+aggregate.APIUpdateSettings, params, &docs); err != nil {
		return aggregate.PriorState{}, err
	}
	if len(docs) == 0 {
		return aggregate.PriorState{}, nil
	}

	return aggregate.PriorState{
		Repohash: docs[0].Repohash,
		Build:    docs[0].Build,
		Known:    true,
	}, nil
}

// PutRecord writes one aggregate record to the dashboard under the route
// the payload assembler selected.
func (c *Client) PutRecord(ctx context.Context, api string, rec aggregate.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+"/"+api, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("PUT %s: unexpected status %s", api, resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return nil
}
