package aggregate

import (
	"context"
	"log/slog"
	"time"
)

// Outcome classifies one architecture's decision.
type Outcome string

const (
	// OutcomeTriggered: a payload was assembled and emitted.
	OutcomeTriggered Outcome = "triggered"

	// OutcomeDuplicate: same day, same repohash; nothing to do.
	OutcomeDuplicate Outcome = "duplicate"

	// OutcomeGated: the onetime gate suppressed a later same-day build.
	OutcomeGated Outcome = "gated"

	// OutcomeNoIncidents: no template matched any incident.
	OutcomeNoIncidents Outcome = "no-incidents"

	// OutcomeResolverFailed: a public-cloud resolver step failed.
	OutcomeResolverFailed Outcome = "resolver-failed"
)

// Decision is the full per-architecture result: the outcome, the inputs
// the build id decision was made from, and the payload when one was
// emitted. Payload is nil for every outcome but OutcomeTriggered.
type Decision struct {
	Product    string
	Arch       string
	Outcome    Outcome
	Build      string
	Repohash   string
	PriorKnown bool
	Payload    *Payload
	Err        error
}

// Pipeline runs the aggregate decision chain for one product.
//
// Architectures are processed sequentially; each decision is an
// independent computation over the immutable config, the read-only
// incident set and one prior-state read. A failure in one architecture
// never affects its siblings.
type Pipeline struct {
	Config  Config
	Merger  Merger
	Prior   PriorStateFetcher
	Chain   ResolverChain
	Log     *slog.Logger

	// Now supplies the invocation date; defaults to time.Now.
	Now func() time.Time
}

// RunInput carries the per-run parameters shared by every architecture.
type RunInput struct {
	Incidents     []Incident
	CIURL         string
	IgnoreOnetime bool
}

// Run produces one Decision per configured architecture.
func (p Pipeline) Run(ctx context.Context, in RunInput) []Decision {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	log := p.Log
	if log == nil {
		log = slog.Default()
	}

	decisions := make([]Decision, 0, len(p.Config.Archs))
	for _, arch := range p.Config.Archs {
		decisions = append(decisions, p.decide(ctx, arch, in, now(), log))
	}
	return decisions
}

func (p Pipeline) decide(ctx context.Context, arch string, in RunInput, today time.Time, log *slog.Logger) Decision {
	d := Decision{Product: p.Config.Product, Arch: arch}

	matched := MatchIncidents(p.Config.TestTemplates, in.Incidents, arch)
	d.Repohash = p.Merger.Merge(IncidentUnion(matched))

	prior, err := p.Prior.PriorState(ctx, p.Config.Product, arch)
	if err != nil {
		// Fail-open: a failed lookup is treated as "no prior state" so a
		// transient dashboard outage still lets a build through. The
		// counter restarts at 1 in that case, which can collide with an
		// existing same-day build; Known stays false so consumers can
		// tell this apart from a genuine first build.
		log.Error("prior state lookup failed",
			"product", p.Config.Product, "arch", arch, "error", err)
		prior = PriorState{}
	}
	d.PriorKnown = prior.Known

	build := DecideBuild(today, d.Repohash, prior)
	if build.Kind == BuildDuplicate {
		log.Info("build already exists",
			"product", p.Config.Product, "arch", arch, "repohash", d.Repohash)
		d.Outcome = OutcomeDuplicate
		return d
	}
	d.Build = build.Build

	if OnetimeSkip(p.Config.Onetime, in.IgnoreOnetime, build.Build) {
		log.Info("onetime aggregate already triggered today",
			"product", p.Config.Product, "arch", arch, "build", build.Build)
		d.Outcome = OutcomeGated
		return d
	}

	settings, err := p.Chain.Apply(ctx, p.Config.Settings)
	if err != nil {
		log.Error("dynamic settings resolution failed",
			"product", p.Config.Product, "arch", arch, "error", err)
		d.Outcome = OutcomeResolverFailed
		d.Err = err
		return d
	}

	payload, ok := Assemble(AssemblerInput{
		Config:   p.Config,
		Arch:     arch,
		Build:    build.Build,
		Repohash: d.Repohash,
		Settings: settings,
		Matched:  matched,
		CIURL:    in.CIURL,
	})
	if !ok {
		log.Info("no incidents matched",
			"product", p.Config.Product, "arch", arch)
		d.Outcome = OutcomeNoIncidents
		return d
	}

	d.Outcome = OutcomeTriggered
	d.Payload = &payload
	return d
}
