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

func TestToolsImageResolver_PicksNewestPassingBuild(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"build_results": []map[string]any{
				{"build": "20240105", "failed": 2},
				{"build": "20240104", "failed": 0},
				{"build": "20240103", "failed": 0},
			},
		})
	}))
	defer srv.Close()

	r := ToolsImageResolver{HTTP: srv.Client()}
	out, err := r.Resolve(context.Background(), map[string]string{
		aggregate.KeyToolsImageQuery: srv.URL,
	})

	require.NoError(t, err)
	assert.Equal(t, "publiccloud_tools_20240104.qcow2", out[aggregate.KeyToolsImageBase])
}

func TestToolsImageResolver_NoPassingBuild(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"build_results": []map[string]any{
				{"build": "20240105", "failed": 1},
			},
		})
	}))
	defer srv.Close()

	r := ToolsImageResolver{HTTP: srv.Client()}
	out, err := r.Resolve(context.Background(), map[string]string{
		aggregate.KeyToolsImageQuery: srv.URL,
	})

	require.NoError(t, err)
	assert.NotContains(t, out, aggregate.KeyToolsImageBase,
		"the missing output key is the failure signal")
}

func TestToolsImageResolver_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := ToolsImageResolver{HTTP: srv.Client()}
	_, err := r.Resolve(context.Background(), map[string]string{
		aggregate.KeyToolsImageQuery: srv.URL,
	})

	assert.Error(t, err)
}
