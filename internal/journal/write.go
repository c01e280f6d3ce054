package journal

import (
	"context"
	"fmt"

	"github.com/qembot/qembot/internal/aggregate"
)

// Record inserts one decision. Idempotent per (run, product, arch):
// writing the same decision twice within a run is a silent no-op, other
// constraint violations still return errors.
func (j *Journal) Record(ctx context.Context, runID string, d aggregate.Decision) error {
	detail := ""
	if d.Err != nil {
		detail = d.Err.Error()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO decisions
		(run_id, product, arch, outcome, build, repohash, prior_known, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, product, arch) DO NOTHING
	`,
		runID,
		d.Product,
		d.Arch,
		string(d.Outcome),
		d.Build,
		d.Repohash,
		boolInt(d.PriorKnown),
		detail,
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}
