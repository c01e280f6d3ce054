package pchelper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/qembot/qembot/internal/aggregate"
)

// KeyImageBaseURL names the image index the regex lookup runs against.
const KeyImageBaseURL = "PUBLIC_CLOUD_IMAGE_BASE_URL"

// ImageRegexResolver finds the most recent published image whose name
// matches PUBLIC_CLOUD_IMAGE_REGEX. The index at
// PUBLIC_CLOUD_IMAGE_BASE_URL is a JSON array of image names; the
// lexicographically greatest match wins (image names embed their build
// date) and its full URL lands in PUBLIC_CLOUD_IMAGE_LOCATION.
type ImageRegexResolver struct {
	HTTP *http.Client
	Log  *slog.Logger
}

// Resolve implements aggregate.SettingsResolver.
func (r ImageRegexResolver) Resolve(ctx context.Context, settings map[string]string) (map[string]string, error) {
	pattern, err := regexp.Compile(settings[aggregate.KeyImageRegex])
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", aggregate.KeyImageRegex, err)
	}

	base := settings[KeyImageBaseURL]
	if base == "" {
		return nil, fmt.Errorf("%s requires %s", aggregate.KeyImageRegex, KeyImageBaseURL)
	}

	var names []string
	if err := getJSON(ctx, newHTTP(r.HTTP), base, &names); err != nil {
		return nil, err
	}

	var newest string
	for _, name := range names {
		if pattern.MatchString(name) && name > newest {
			newest = name
		}
	}

	out := copySettings(settings)
	if newest != "" {
		out[aggregate.KeyImageLocation] = strings.TrimSuffix(base, "/") + "/" + newest
		newLog(r.Log).Debug("public cloud image resolved",
			"image", newest, "regex", settings[aggregate.KeyImageRegex])
	}
	return out, nil
}
