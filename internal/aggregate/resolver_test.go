package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setKey returns a resolver that copies the settings and sets key=value.
func setKey(key, value string) SettingsResolver {
	return ResolverFunc(func(_ context.Context, settings map[string]string) (map[string]string, error) {
		out := make(map[string]string, len(settings)+1)
		for k, v := range settings {
			out[k] = v
		}
		out[key] = value
		return out, nil
	})
}

// passthrough returns the settings unchanged (no output key produced).
func passthrough() SettingsResolver {
	return ResolverFunc(func(_ context.Context, settings map[string]string) (map[string]string, error) {
		return settings, nil
	})
}

func TestResolverChain_NoTriggersIsNoop(t *testing.T) {
	chain := ResolverChain{}
	settings := map[string]string{"DISTRI": "sle"}

	out, err := chain.Apply(context.Background(), settings)

	require.NoError(t, err)
	assert.Equal(t, settings, out)
}

func TestResolverChain_InputNeverMutated(t *testing.T) {
	chain := ResolverChain{ToolsImage: setKey(KeyToolsImageBase, "tools.qcow2")}
	settings := map[string]string{KeyToolsImageQuery: "https://example/query"}

	out, err := chain.Apply(context.Background(), settings)

	require.NoError(t, err)
	assert.Equal(t, "tools.qcow2", out[KeyToolsImageBase])
	assert.NotContains(t, settings, KeyToolsImageBase, "caller's settings must stay untouched")
}

func TestResolverChain_MissingOutputKeyFails(t *testing.T) {
	chain := ResolverChain{ImageRegex: passthrough()}
	settings := map[string]string{KeyImageRegex: "sles-.*"}

	_, err := chain.Apply(context.Background(), settings)

	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyImageLocation)
}

func TestResolverChain_ResolverErrorAborts(t *testing.T) {
	boom := errors.New("catalog unreachable")
	chain := ResolverChain{
		Pint: ResolverFunc(func(context.Context, map[string]string) (map[string]string, error) {
			return nil, boom
		}),
	}
	settings := map[string]string{KeyPintQuery: "https://example/pint"}

	_, err := chain.Apply(context.Background(), settings)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestResolverChain_StepsRunInOrderAndAccumulate(t *testing.T) {
	chain := ResolverChain{
		ToolsImage: setKey(KeyToolsImageBase, "tools.qcow2"),
		ImageRegex: setKey(KeyImageLocation, "https://img/sles.raw.xz"),
		Pint:       setKey(KeyImageID, "ami-1234"),
	}
	settings := map[string]string{
		KeyToolsImageQuery: "q1",
		KeyImageRegex:      "q2",
		KeyPintQuery:       "q3",
	}

	out, err := chain.Apply(context.Background(), settings)

	require.NoError(t, err)
	assert.Equal(t, "tools.qcow2", out[KeyToolsImageBase])
	assert.Equal(t, "https://img/sles.raw.xz", out[KeyImageLocation])
	assert.Equal(t, "ami-1234", out[KeyImageID])
}

func TestResolverChain_StepsAreIndependent(t *testing.T) {
	// Only the pint trigger is present; the other resolvers must not run.
	called := false
	chain := ResolverChain{
		ToolsImage: ResolverFunc(func(context.Context, map[string]string) (map[string]string, error) {
			called = true
			return nil, errors.New("must not run")
		}),
		Pint: setKey(KeyImageID, "ami-1234"),
	}
	settings := map[string]string{KeyPintQuery: "q3"}

	out, err := chain.Apply(context.Background(), settings)

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "ami-1234", out[KeyImageID])
}

func TestResolverChain_MissingResolverForTriggerFails(t *testing.T) {
	chain := ResolverChain{}
	settings := map[string]string{KeyToolsImageQuery: "q"}

	_, err := chain.Apply(context.Background(), settings)

	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyToolsImageQuery)
}
