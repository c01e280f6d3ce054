package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BuildDateFormat is the date prefix of every build id.
const BuildDateFormat = "20060102"

// BuildDecisionKind tags the outcome of a build id decision.
type BuildDecisionKind int

const (
	// BuildNew means a new build id was generated.
	BuildNew BuildDecisionKind = iota

	// BuildDuplicate means a build with today's date and the same repohash
	// already exists. Expected and frequent, not an error: the caller skips
	// the architecture silently.
	BuildDuplicate
)

// BuildDecision is the tagged result of DecideBuild.
// Build is set only when Kind is BuildNew.
type BuildDecision struct {
	Kind  BuildDecisionKind
	Build string
}

// DecideBuild decides the next build id for one (product, architecture).
//
// today is the invocation date; repohash is the digest of the currently
// matched incident set; prior carries the last recorded state (zero value
// for a first-ever build or a failed lookup).
//
// Rules, in order:
//  1. prior build is from today and repohash is unchanged -> BuildDuplicate
//  2. prior build is from today -> counter = prior counter + 1
//  3. otherwise -> counter = 1
//
// The generator keeps no state across calls; everything comes from its
// arguments. A prior build id whose counter suffix does not parse is
// treated like a build from another day (counter restarts at 1).
func DecideBuild(today time.Time, repohash string, prior PriorState) BuildDecision {
	day := today.Format(BuildDateFormat)

	sameDay := strings.HasPrefix(prior.Build, day)
	if sameDay && repohash == prior.Repohash {
		return BuildDecision{Kind: BuildDuplicate}
	}

	counter := 1
	if sameDay {
		if n, err := strconv.Atoi(prior.Build[strings.LastIndex(prior.Build, "-")+1:]); err == nil {
			counter = n + 1
		}
	}

	return BuildDecision{
		Kind:  BuildNew,
		Build: fmt.Sprintf("%s-%d", day, counter),
	}
}

// buildCounter extracts the numeric counter suffix of a build id.
// Returns 0 when the id has no parseable suffix.
func buildCounter(build string) int {
	idx := strings.LastIndex(build, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(build[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
