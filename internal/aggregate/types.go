package aggregate

import (
	"context"
	"strconv"
)

// Channel identifies one repository/test target as a
// (product, version, architecture) triple. Equality is structural:
// two channels are the same channel iff all three fields match.
type Channel struct {
	Product string
	Version string
	Arch    string
}

// TemplateRef names the (product, version) pair a test template tracks.
// The architecture is supplied per decision, not stored here: one template
// covers every architecture the aggregate is configured for.
type TemplateRef struct {
	Product string
	Version string
}

// Incident is a tracked change request loaded from the QEM dashboard.
// Incidents are read-only inside the decision pipeline; the loader owns them.
//
// Livepatch and staging incidents are never matched against templates,
// they live in separate testing queues.
type Incident struct {
	ID        int
	Channels  []Channel
	Livepatch bool
	Staging   bool
}

// String returns the incident identifier as it appears in payloads and URLs.
func (i Incident) String() string {
	return strconv.Itoa(i.ID)
}

// HasChannel reports whether the incident's channel set contains ch.
func (i Incident) HasChannel(ch Channel) bool {
	for _, c := range i.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Config is one aggregate: a product's test configuration across one or
// more architectures. Constructed once from static metadata by the config
// loader and never mutated by the pipeline.
type Config struct {
	Product string
	Flavor  string
	Archs   []string

	// Onetime restricts triggering to the first build of each day.
	Onetime bool

	// TestTemplates maps template-name (an openQA settings key such as
	// OS_TEST_ISSUES) to the channel it tracks.
	TestTemplates map[string]TemplateRef

	// Settings is the base openQA settings block, copied before any
	// per-architecture augmentation.
	Settings map[string]string
}

// PriorState is the previously recorded (repohash, build) pair for one
// (product, architecture), as reported by the dashboard.
//
// Known is false both when no build was ever recorded and when the lookup
// failed; the fetcher logs the difference and the journal records it, but
// the build id decision deliberately treats both as "no prior state"
// (fail-open, see DecideBuild).
type PriorState struct {
	Repohash string
	Build    string
	Known    bool
}

// Merger folds a sorted, deduplicated set of incident identifiers into one
// opaque content hash. Implementations must be deterministic: the same set
// always yields the same value, regardless of anything but the set itself.
type Merger interface {
	Merge(ids []string) string
}

// PriorStateFetcher reads the prior build state for one (product, arch)
// from the dashboard.
type PriorStateFetcher interface {
	PriorState(ctx context.Context, product, arch string) (PriorState, error)
}
