package aggregate

import (
	"context"
	"fmt"
)

// Settings keys the resolver chain reacts to, and the keys each step must
// produce. Presence of the output key is the success signal; there is no
// separate error channel in the settings themselves.
const (
	KeyToolsImageQuery = "PUBLIC_CLOUD_TOOLS_IMAGE_QUERY"
	KeyToolsImageBase  = "PUBLIC_CLOUD_TOOLS_IMAGE_BASE"

	KeyImageRegex    = "PUBLIC_CLOUD_IMAGE_REGEX"
	KeyImageLocation = "PUBLIC_CLOUD_IMAGE_LOCATION"

	KeyPintQuery = "PUBLIC_CLOUD_PINT_QUERY"
	KeyImageID   = "PUBLIC_CLOUD_IMAGE_ID"
)

// SettingsResolver augments a settings mapping with one dynamically
// discovered value. Implementations receive a private copy and return the
// augmented mapping; they must not assume the input outlives the call.
type SettingsResolver interface {
	Resolve(ctx context.Context, settings map[string]string) (map[string]string, error)
}

// ResolverFunc adapts a function to the SettingsResolver interface.
type ResolverFunc func(ctx context.Context, settings map[string]string) (map[string]string, error)

// Resolve implements SettingsResolver.
func (f ResolverFunc) Resolve(ctx context.Context, settings map[string]string) (map[string]string, error) {
	return f(ctx, settings)
}

// ResolverChain applies the three optional public-cloud resolution steps.
// Each step runs at most once, in declaration order, and only when its
// trigger key is present in the settings. Any single failure aborts
// processing for the current architecture.
type ResolverChain struct {
	ToolsImage SettingsResolver
	ImageRegex SettingsResolver
	Pint       SettingsResolver
}

type chainStep struct {
	trigger  string
	output   string
	resolver SettingsResolver
}

func (c ResolverChain) steps() []chainStep {
	return []chainStep{
		{KeyToolsImageQuery, KeyToolsImageBase, c.ToolsImage},
		{KeyImageRegex, KeyImageLocation, c.ImageRegex},
		{KeyPintQuery, KeyImageID, c.Pint},
	}
}

// Apply runs the chain over a copy of settings and returns the augmented
// mapping. The input is never mutated.
//
// A step fails when its resolver returns an error, when no resolver is
// wired for a present trigger key, or when the documented output key is
// absent after resolution. The returned error names the step's trigger key.
func (c ResolverChain) Apply(ctx context.Context, settings map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}

	for _, step := range c.steps() {
		if _, ok := out[step.trigger]; !ok {
			continue
		}
		if step.resolver == nil {
			return nil, fmt.Errorf("no resolver wired for %s", step.trigger)
		}

		resolved, err := step.resolver.Resolve(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", step.trigger, err)
		}
		if resolved[step.output] == "" {
			return nil, fmt.Errorf("resolving %s: no %s produced", step.trigger, step.output)
		}
		out = resolved
	}

	return out, nil
}
