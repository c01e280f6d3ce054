package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/qembot/qembot/internal/aggregate"
)

// Entry is one journaled decision as read back from the database.
type Entry struct {
	RunID      string
	Product    string
	Arch       string
	Outcome    aggregate.Outcome
	Build      string
	Repohash   string
	PriorKnown bool
	Detail     string
	RecordedAt string
}

// RunDecisions returns every decision recorded for one run, in product
// then arch order.
func (j *Journal) RunDecisions(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, product, arch, outcome, build, repohash, prior_known, detail, recorded_at
		FROM decisions
		WHERE run_id = ?
		ORDER BY product, arch
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			outcome    string
			priorKnown int
		)
		if err := rows.Scan(&e.RunID, &e.Product, &e.Arch, &outcome,
			&e.Build, &e.Repohash, &priorKnown, &e.Detail, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("run decisions: %w", err)
		}
		e.Outcome = aggregate.Outcome(outcome)
		e.PriorKnown = priorKnown != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run decisions: %w", err)
	}
	return entries, nil
}

// LastBuild returns the most recently journaled build id for one
// (product, arch), or empty when none was recorded.
func (j *Journal) LastBuild(ctx context.Context, product, arch string) (string, error) {
	var build string
	err := j.db.QueryRowContext(ctx, `
		SELECT build
		FROM decisions
		WHERE product = ? AND arch = ? AND build != ''
		ORDER BY recorded_at DESC
		LIMIT 1
	`, product, arch).Scan(&build)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("last build: %w", err)
	}
	return build, nil
}
