package aggregate

import "strings"

// APIUpdateSettings is the dashboard route aggregate records are written to.
const APIUpdateSettings = "api/update_settings"

// Incident link bases for the convenience URL-list settings.
const (
	dashboardIncidentURL = "https://dashboard.qam.suse.de/incident/"
	smeltIncidentURL     = "https://smelt.suse.de/incident/"
)

// Record is the dashboard-update document for one triggered build.
type Record struct {
	Settings  map[string]string `json:"settings"`
	Repohash  string            `json:"repohash"`
	Build     string            `json:"build"`
	Arch      string            `json:"arch"`
	Product   string            `json:"product"`
	Incidents []string          `json:"incidents"`
}

// Payload is everything one architecture's decision emits: the settings
// the runner is triggered with, the record the dashboard is updated with,
// and the dashboard route to use. Built in one pass and not mutated after.
type Payload struct {
	OpenQA map[string]string `json:"openqa"`
	QEM    Record            `json:"qem"`
	API    string            `json:"api"`
}

// AssemblerInput carries the pre-computed pieces a payload is built from.
type AssemblerInput struct {
	Config   Config
	Arch     string
	Build    string
	Repohash string

	// Settings is the resolver-chain output (already a private copy).
	Settings map[string]string

	// Matched is the channel matcher's output for Arch.
	Matched map[string][]Incident

	// CIURL, when non-empty, is recorded under __CI_JOB_URL.
	CIURL string
}

// Assemble builds the payload for one architecture.
//
// Returns ok=false when no template matched any incident: an aggregate
// with an empty incident union is never triggered and never recorded.
func Assemble(in AssemblerInput) (Payload, bool) {
	ids := IncidentUnion(in.Matched)
	if len(ids) == 0 {
		return Payload{}, false
	}

	openqa := make(map[string]string, len(in.Settings)+8+len(in.Matched))
	for k, v := range in.Settings {
		openqa[k] = v
	}

	openqa["FLAVOR"] = in.Config.Flavor
	openqa["ARCH"] = in.Arch
	openqa["BUILD"] = in.Build
	openqa["REPOHASH"] = in.Repohash
	openqa["_OBSOLETE"] = "1"
	if in.CIURL != "" {
		openqa["__CI_JOB_URL"] = in.CIURL
	}

	for name, incs := range in.Matched {
		joined := make([]string, len(incs))
		for i, inc := range incs {
			joined[i] = inc.String()
		}
		openqa[name] = strings.Join(joined, ",")
	}

	openqa["__DASHBOARD_INCIDENTS_URL"] = joinIncidentURLs(dashboardIncidentURL, ids)
	openqa["__SMELT_INCIDENTS_URL"] = joinIncidentURLs(smeltIncidentURL, ids)

	return Payload{
		OpenQA: openqa,
		QEM: Record{
			Settings:  openqa,
			Repohash:  in.Repohash,
			Build:     in.Build,
			Arch:      in.Arch,
			Product:   in.Config.Product,
			Incidents: ids,
		},
		API: APIUpdateSettings,
	}, true
}

func joinIncidentURLs(base string, ids []string) string {
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = base + id
	}
	return strings.Join(urls, ",")
}
