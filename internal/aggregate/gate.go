package aggregate

// OnetimeSkip reports whether the onetime gate suppresses this build.
//
// Aggregates configured with onetime test only their first build of the
// day; every later same-day build (counter > 1) is skipped unless the run
// was started with the ignore-onetime override.
func OnetimeSkip(onetime, ignoreOnetime bool, build string) bool {
	if !onetime || ignoreOnetime {
		return false
	}
	return buildCounter(build) != 1
}
