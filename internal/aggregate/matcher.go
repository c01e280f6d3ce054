package aggregate

import "sort"

// MatchIncidents produces, for one architecture, the mapping from
// template-name to the incidents whose channel set contains the template's
// (product, version) pair on that architecture.
//
// Livepatch and staging incidents are excluded up front, even when their
// channels would match. Each template's result list is deduplicated and
// sorted by incident id; downstream consumers treat it as a set, the order
// only keeps payload assembly and golden tests deterministic.
//
// Pure function: no I/O, inputs are never mutated.
func MatchIncidents(templates map[string]TemplateRef, incidents []Incident, arch string) map[string][]Incident {
	matched := make(map[string][]Incident, len(templates))

	for name, tmpl := range templates {
		ch := Channel{Product: tmpl.Product, Version: tmpl.Version, Arch: arch}

		seen := make(map[int]bool)
		var hits []Incident
		for _, inc := range incidents {
			if inc.Livepatch || inc.Staging {
				continue
			}
			if seen[inc.ID] {
				continue
			}
			if inc.HasChannel(ch) {
				seen[inc.ID] = true
				hits = append(hits, inc)
			}
		}

		if len(hits) > 0 {
			sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
			matched[name] = hits
		}
	}

	return matched
}

// IncidentUnion returns the deduplicated, sorted identifiers of every
// incident matched by any template. This is the set the repohash is
// computed over and the set recorded on the dashboard.
func IncidentUnion(matched map[string][]Incident) []string {
	seen := make(map[int]bool)
	for _, incs := range matched {
		for _, inc := range incs {
			seen[inc.ID] = true
		}
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = Incident{ID: id}.String()
	}
	return out
}
