package pchelper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/qembot/qembot/internal/aggregate"
)

// ToolsImageResolver looks up the newest fully-passing public-cloud tools
// image. PUBLIC_CLOUD_TOOLS_IMAGE_QUERY holds a build-overview URL whose
// JSON lists build results, newest first; the first build without
// failures wins and lands in PUBLIC_CLOUD_TOOLS_IMAGE_BASE.
type ToolsImageResolver struct {
	HTTP *http.Client
	Log  *slog.Logger
}

type buildOverview struct {
	BuildResults []buildResult `json:"build_results"`
}

type buildResult struct {
	Build  string `json:"build"`
	Failed int    `json:"failed"`
}

// Resolve implements aggregate.SettingsResolver.
func (r ToolsImageResolver) Resolve(ctx context.Context, settings map[string]string) (map[string]string, error) {
	query := settings[aggregate.KeyToolsImageQuery]

	var overview buildOverview
	if err := getJSON(ctx, newHTTP(r.HTTP), query, &overview); err != nil {
		return nil, err
	}

	out := copySettings(settings)
	for _, res := range overview.BuildResults {
		if res.Failed == 0 && res.Build != "" {
			out[aggregate.KeyToolsImageBase] = fmt.Sprintf("publiccloud_tools_%s.qcow2", res.Build)
			newLog(r.Log).Debug("tools image resolved",
				"build", res.Build, "query", query)
			return out, nil
		}
	}

	// No passing build: return the unchanged copy, the missing output key
	// is the failure signal.
	return out, nil
}
