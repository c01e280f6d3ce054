package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureInput() AssemblerInput {
	return AssemblerInput{
		Config: Config{
			Product: "SLES-15-SP4",
			Flavor:  "Server-DVD-HA-Updates",
		},
		Arch:     "x86_64",
		Build:    "20240101-2",
		Repohash: "cafe1234",
		Settings: map[string]string{
			"DISTRI":  "sle",
			"VERSION": "15-SP4",
		},
		Matched: map[string][]Incident{
			"OS_TEST_ISSUES": {{ID: 100}, {ID: 300}},
			"HA_TEST_ISSUES": {{ID: 300}},
		},
		CIURL: "https://gitlab.example/jobs/42",
	}
}

func TestAssemble_TriggerSettings(t *testing.T) {
	p, ok := Assemble(fixtureInput())
	require.True(t, ok)

	assert.Equal(t, "Server-DVD-HA-Updates", p.OpenQA["FLAVOR"])
	assert.Equal(t, "x86_64", p.OpenQA["ARCH"])
	assert.Equal(t, "20240101-2", p.OpenQA["BUILD"])
	assert.Equal(t, "cafe1234", p.OpenQA["REPOHASH"])
	assert.Equal(t, "1", p.OpenQA["_OBSOLETE"])
	assert.Equal(t, "100,300", p.OpenQA["OS_TEST_ISSUES"])
	assert.Equal(t, "300", p.OpenQA["HA_TEST_ISSUES"])
	assert.Equal(t, "https://gitlab.example/jobs/42", p.OpenQA["__CI_JOB_URL"])
	assert.Equal(t,
		"https://dashboard.qam.suse.de/incident/100,https://dashboard.qam.suse.de/incident/300",
		p.OpenQA["__DASHBOARD_INCIDENTS_URL"])
	assert.Equal(t,
		"https://smelt.suse.de/incident/100,https://smelt.suse.de/incident/300",
		p.OpenQA["__SMELT_INCIDENTS_URL"])
}

func TestAssemble_DashboardRecord(t *testing.T) {
	p, ok := Assemble(fixtureInput())
	require.True(t, ok)

	assert.Equal(t, "SLES-15-SP4", p.QEM.Product)
	assert.Equal(t, "x86_64", p.QEM.Arch)
	assert.Equal(t, "20240101-2", p.QEM.Build)
	assert.Equal(t, "cafe1234", p.QEM.Repohash)
	assert.Equal(t, []string{"100", "300"}, p.QEM.Incidents)
	assert.Equal(t, p.OpenQA, p.QEM.Settings, "record embeds the trigger settings")
	assert.Equal(t, APIUpdateSettings, p.API)
}

func TestAssemble_NoCIURL(t *testing.T) {
	in := fixtureInput()
	in.CIURL = ""

	p, ok := Assemble(in)
	require.True(t, ok)

	assert.NotContains(t, p.OpenQA, "__CI_JOB_URL")
}

func TestAssemble_NoIncidentsNoPayload(t *testing.T) {
	in := fixtureInput()
	in.Matched = map[string][]Incident{}

	_, ok := Assemble(in)

	assert.False(t, ok, "an empty incident union never produces a payload")
}

func TestAssemble_BaseSettingsNotMutated(t *testing.T) {
	in := fixtureInput()

	_, ok := Assemble(in)
	require.True(t, ok)

	assert.Equal(t, map[string]string{"DISTRI": "sle", "VERSION": "15-SP4"}, in.Settings)
}

func TestAssemble_Golden(t *testing.T) {
	p, ok := Assemble(fixtureInput())
	require.True(t, ok)

	data, err := json.MarshalIndent(p, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "aggregate_payload", data)
}
