// Package bot wires the aggregate decision pipeline to the dashboard and
// the test runner and drives one full scheduling run.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qembot/qembot/internal/aggregate"
	"github.com/qembot/qembot/internal/journal"
)

// IncidentLoader loads the tracked incidents a run decides over.
type IncidentLoader interface {
	Incidents(ctx context.Context) ([]aggregate.Incident, error)
}

// RecordWriter writes aggregate records to the dashboard.
type RecordWriter interface {
	PutRecord(ctx context.Context, api string, rec aggregate.Record) error
}

// JobPoster triggers builds on the test runner.
type JobPoster interface {
	PostJob(ctx context.Context, settings map[string]string) error
}

// Bot runs the scheduling loop over every configured aggregate.
// Products are processed sequentially; nothing a single product does is
// fatal to the run.
type Bot struct {
	Log     *slog.Logger
	Configs []aggregate.Config

	Incidents IncidentLoader
	Prior     aggregate.PriorStateFetcher
	Records   RecordWriter
	Runner    JobPoster
	Merger    aggregate.Merger
	Chain     aggregate.ResolverChain

	// Journal is optional; nil disables decision journaling.
	Journal *journal.Journal
	RunIDs  journal.RunIDGenerator

	DryRun        bool
	IgnoreOnetime bool
	CIURL         string

	// Now supplies the invocation date; defaults to time.Now.
	Now func() time.Time
}

// Summary counts the outcomes of one run.
type Summary struct {
	RunID          string `json:"run_id,omitempty"`
	Triggered      int    `json:"triggered"`
	Duplicates     int    `json:"duplicates"`
	Gated          int    `json:"gated"`
	NoIncidents    int    `json:"no_incidents"`
	ResolverFailed int    `json:"resolver_failed"`
	PostFailures   int    `json:"post_failures"`
}

// String renders the summary for text output.
func (s Summary) String() string {
	return fmt.Sprintf("triggered=%d duplicates=%d gated=%d no-incidents=%d resolver-failed=%d post-failures=%d",
		s.Triggered, s.Duplicates, s.Gated, s.NoIncidents, s.ResolverFailed, s.PostFailures)
}

// Run executes one full scheduling pass. The only fatal failure is the
// initial incident load: without incidents there is nothing to decide.
func (b *Bot) Run(ctx context.Context) (Summary, error) {
	log := b.Log
	if log == nil {
		log = slog.Default()
	}

	log.Info("bot schedule starts now")

	incidents, err := b.Incidents.Incidents(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("loading incidents: %w", err)
	}

	var sum Summary
	if b.Journal != nil {
		gen := b.RunIDs
		if gen == nil {
			gen = journal.UUIDv7Generator{}
		}
		sum.RunID = gen.Generate()
		if err := b.Journal.BeginRun(ctx, sum.RunID, b.DryRun); err != nil {
			log.Warn("journal unavailable for this run", "error", err)
		}
	}

	in := aggregate.RunInput{
		Incidents:     incidents,
		CIURL:         b.CIURL,
		IgnoreOnetime: b.IgnoreOnetime,
	}

	var payloads []aggregate.Payload
	for _, cfg := range b.Configs {
		pipeline := aggregate.Pipeline{
			Config: cfg,
			Merger: b.Merger,
			Prior:  b.Prior,
			Chain:  b.Chain,
			Log:    log,
			Now:    b.Now,
		}

		for _, d := range pipeline.Run(ctx, in) {
			b.journal(ctx, log, sum.RunID, d)
			switch d.Outcome {
			case aggregate.OutcomeTriggered:
				sum.Triggered++
				payloads = append(payloads, *d.Payload)
			case aggregate.OutcomeDuplicate:
				sum.Duplicates++
			case aggregate.OutcomeGated:
				sum.Gated++
			case aggregate.OutcomeNoIncidents:
				sum.NoIncidents++
			case aggregate.OutcomeResolverFailed:
				sum.ResolverFailed++
			}
		}
	}

	if b.DryRun {
		log.Info("dry run, nothing posted", "would_trigger", len(payloads))
		for _, p := range payloads {
			log.Info("would trigger",
				"product", p.QEM.Product, "arch", p.QEM.Arch, "build", p.QEM.Build)
		}
		log.Info("end of bot run")
		return sum, nil
	}

	log.Info("triggering products in openqa", "count", len(payloads))
	for _, p := range payloads {
		log.Info("triggering",
			"product", p.QEM.Product, "arch", p.QEM.Arch, "build", p.QEM.Build)

		if err := b.Records.PutRecord(ctx, p.API, p.QEM); err != nil {
			log.Error("dashboard update failed",
				"product", p.QEM.Product, "arch", p.QEM.Arch, "error", err)
			sum.PostFailures++
			continue
		}
		if err := b.Runner.PostJob(ctx, p.OpenQA); err != nil {
			log.Error("openqa trigger failed",
				"product", p.QEM.Product, "arch", p.QEM.Arch, "error", err)
			sum.PostFailures++
		}
	}

	log.Info("end of bot run")
	return sum, nil
}

// journal records one decision; journaling is best effort and never
// interferes with scheduling.
func (b *Bot) journal(ctx context.Context, log *slog.Logger, runID string, d aggregate.Decision) {
	if b.Journal == nil {
		return
	}
	if err := b.Journal.Record(ctx, runID, d); err != nil {
		log.Warn("journal write failed",
			"product", d.Product, "arch", d.Arch, "error", err)
	}
}
