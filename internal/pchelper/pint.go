package pchelper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/qembot/qembot/internal/aggregate"
)

// Optional pint lookup refinements.
const (
	// KeyPintName filters catalog entries by image name (regex).
	KeyPintName = "PUBLIC_CLOUD_PINT_NAME"

	// KeyPintField selects which catalog field becomes the image id.
	// Defaults to "id".
	KeyPintField = "PUBLIC_CLOUD_PINT_FIELD"
)

// PintResolver queries a public-cloud information (pint) catalog for the
// newest active image. PUBLIC_CLOUD_PINT_QUERY is the catalog URL; the
// selected entry's id field lands in PUBLIC_CLOUD_IMAGE_ID.
type PintResolver struct {
	HTTP *http.Client
	Log  *slog.Logger
}

type pintCatalog struct {
	Images []pintImage `json:"images"`
}

type pintImage struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	State       string `json:"state"`
	PublishedOn string `json:"publishedon"`
}

// Resolve implements aggregate.SettingsResolver.
func (r PintResolver) Resolve(ctx context.Context, settings map[string]string) (map[string]string, error) {
	query := settings[aggregate.KeyPintQuery]

	namePattern := regexp.MustCompile("")
	if expr := settings[KeyPintName]; expr != "" {
		var err error
		namePattern, err = regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling %s: %w", KeyPintName, err)
		}
	}

	var catalog pintCatalog
	if err := getJSON(ctx, newHTTP(r.HTTP), query, &catalog); err != nil {
		return nil, err
	}

	var newest *pintImage
	for i := range catalog.Images {
		img := &catalog.Images[i]
		if img.State != "active" || !namePattern.MatchString(img.Name) {
			continue
		}
		if newest == nil || img.PublishedOn > newest.PublishedOn {
			newest = img
		}
	}

	out := copySettings(settings)
	if newest != nil {
		out[aggregate.KeyImageID] = newest.field(settings[KeyPintField])
		newLog(r.Log).Debug("pint image resolved",
			"image", newest.Name, "id", out[aggregate.KeyImageID])
	}
	return out, nil
}

func (i pintImage) field(name string) string {
	switch name {
	case "", "id":
		return i.ID
	case "name":
		return i.Name
	default:
		return ""
	}
}
