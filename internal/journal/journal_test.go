package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qembot/qembot/internal/aggregate"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, j.Close()) })
	return j
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j2.Close())
}

func TestRecordAndReadBack(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.BeginRun(ctx, "run-1", false))
	require.NoError(t, j.Record(ctx, "run-1", aggregate.Decision{
		Product:    "SLES-15-SP4",
		Arch:       "x86_64",
		Outcome:    aggregate.OutcomeTriggered,
		Build:      "20240101-1",
		Repohash:   "cafe",
		PriorKnown: true,
	}))
	require.NoError(t, j.Record(ctx, "run-1", aggregate.Decision{
		Product: "SLES-15-SP4",
		Arch:    "aarch64",
		Outcome: aggregate.OutcomeResolverFailed,
		Err:     errors.New("no image found"),
	}))

	entries, err := j.RunDecisions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Ordered by product then arch.
	assert.Equal(t, "aarch64", entries[0].Arch)
	assert.Equal(t, aggregate.OutcomeResolverFailed, entries[0].Outcome)
	assert.Equal(t, "no image found", entries[0].Detail)

	assert.Equal(t, "x86_64", entries[1].Arch)
	assert.Equal(t, aggregate.OutcomeTriggered, entries[1].Outcome)
	assert.Equal(t, "20240101-1", entries[1].Build)
	assert.True(t, entries[1].PriorKnown)
}

func TestRecord_IdempotentPerRun(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.BeginRun(ctx, "run-1", false))
	d := aggregate.Decision{
		Product: "SLES-15-SP4",
		Arch:    "x86_64",
		Outcome: aggregate.OutcomeDuplicate,
	}
	require.NoError(t, j.Record(ctx, "run-1", d))
	require.NoError(t, j.Record(ctx, "run-1", d))

	entries, err := j.RunDecisions(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "re-recording within a run is a no-op")
}

func TestBeginRun_Idempotent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.BeginRun(ctx, "run-1", true))
	require.NoError(t, j.BeginRun(ctx, "run-1", true))
}

func TestLastBuild(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.BeginRun(ctx, "run-1", false))
	require.NoError(t, j.Record(ctx, "run-1", aggregate.Decision{
		Product: "SLES-15-SP4", Arch: "x86_64",
		Outcome: aggregate.OutcomeTriggered, Build: "20240101-1",
	}))

	build, err := j.LastBuild(ctx, "SLES-15-SP4", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, "20240101-1", build)

	build, err = j.LastBuild(ctx, "SLES-15-SP4", "aarch64")
	require.NoError(t, err)
	assert.Empty(t, build)
}

func TestRunDecisions_UnknownRun(t *testing.T) {
	j := openTestJournal(t)

	entries, err := j.RunDecisions(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
