package pchelper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qembot/qembot/internal/aggregate"
)

func imageIndex(t *testing.T, names ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(names)
	}))
}

func TestImageRegexResolver_PicksNewestMatch(t *testing.T) {
	srv := imageIndex(t,
		"sles-15-sp4-v20240101.raw.xz",
		"sles-15-sp4-v20240105.raw.xz",
		"sles-15-sp3-v20240106.raw.xz",
	)
	defer srv.Close()

	r := ImageRegexResolver{HTTP: srv.Client()}
	out, err := r.Resolve(context.Background(), map[string]string{
		aggregate.KeyImageRegex: `sles-15-sp4-v\d+\.raw\.xz`,
		KeyImageBaseURL:         srv.URL,
	})

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/sles-15-sp4-v20240105.raw.xz", out[aggregate.KeyImageLocation])
}

func TestImageRegexResolver_NoMatch(t *testing.T) {
	srv := imageIndex(t, "opensuse-leap.raw.xz")
	defer srv.Close()

	r := ImageRegexResolver{HTTP: srv.Client()}
	out, err := r.Resolve(context.Background(), map[string]string{
		aggregate.KeyImageRegex: `sles-15-sp4-.*`,
		KeyImageBaseURL:         srv.URL,
	})

	require.NoError(t, err)
	assert.NotContains(t, out, aggregate.KeyImageLocation)
}

func TestImageRegexResolver_MissingBaseURL(t *testing.T) {
	r := ImageRegexResolver{}
	_, err := r.Resolve(context.Background(), map[string]string{
		aggregate.KeyImageRegex: `sles-.*`,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyImageBaseURL)
}

func TestImageRegexResolver_BadRegex(t *testing.T) {
	r := ImageRegexResolver{}
	_, err := r.Resolve(context.Background(), map[string]string{
		aggregate.KeyImageRegex: `[unclosed`,
		KeyImageBaseURL:         "https://example",
	})

	assert.Error(t, err)
}
