package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tour-routing-service/internal/adapters/repositories"
	"tour-routing-service/internal/api/dto"
	"tour-routing-service/internal/platform/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostsJSON = `[
	{"id": "h1", "name": "Porch One", "city": "Austin", "state": "TX",
	 "location": {"lon": -97.60, "lat": 30.27}, "capacity": {"min": 20, "max": 60},
	 "genres": ["folk"], "venue_types": ["living_room"],
	 "responsiveness": {"response_rate": 0.9, "median_response_hours": 8, "shows_hosted": 4}},
	{"id": "h2", "name": "Barn Two", "city": "Bastrop", "state": "TX",
	 "location": {"lon": -97.40, "lat": 30.27}, "capacity": {"min": 20, "max": 60},
	 "genres": ["folk"], "venue_types": ["barn"],
	 "responsiveness": {"response_rate": 0.8, "median_response_hours": 20, "shows_hosted": 1}},
	{"id": "h3", "name": "Yard Three", "city": "Smithville", "state": "TX",
	 "location": {"lon": -97.20, "lat": 30.27}, "capacity": {"min": 20, "max": 60},
	 "genres": ["jazz"], "venue_types": ["backyard"],
	 "responsiveness": {"response_rate": 0.75, "median_response_hours": 30, "shows_hosted": 0}},
	{"id": "tiny", "name": "Tiny Flat", "city": "Austin", "state": "TX",
	 "location": {"lon": -97.74, "lat": 30.28}, "capacity": {"min": 5, "max": 10},
	 "genres": ["folk"], "venue_types": ["living_room"],
	 "responsiveness": {"response_rate": 0.95, "median_response_hours": 2, "shows_hosted": 9}}
]`

const tourJSON = `{
	"artist_id": "artist-1",
	"title": "Hill Country Loop",
	"start_date": "2026-06-01",
	"end_date": "2026-06-10",
	"capacity_min": 20,
	"capacity_max": 50,
	"expected_shows": 3,
	"origin": {"lon": -97.74, "lat": 30.27},
	"terms": {"base_guarantee": 200, "revenue_split_pct": 70, "ticket_price": 20}
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlanThenCheck(t *testing.T) {
	dir := t.TempDir()
	hosts := writeFile(t, dir, "hosts.json", hostsJSON)
	tour := writeFile(t, dir, "tour.json", tourJSON)

	out, err := execute(t, "plan", "--tour", tour, "--hosts", hosts)
	require.NoError(t, err, out)

	var plan dto.PlanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.True(t, plan.Feasible)
	assert.Equal(t, 3, plan.ShowCount)
	assert.Equal(t, []string{"h1", "h2", "h3"}, plan.EligibleHostIDs)
	assert.Equal(t, []dto.ExclusionResponse{{HostID: "tiny", Reason: "capacity"}}, plan.Exclusions)
	assert.Equal(t, "16:00", plan.Constraints.PreferredArrival)

	planFile := writeFile(t, dir, "plan.json", out)
	out, err = execute(t, "check", "--plan", planFile)
	require.NoError(t, err, out)
	assert.JSONEq(t, `{"feasible": true, "violations": []}`, out)

	// Shrinking the daily limit below the first leg breaks the plan.
	plan.Constraints.MaxDailyDistance = 1
	raw, err := json.Marshal(plan)
	require.NoError(t, err)
	planFile = writeFile(t, dir, "tight.json", string(raw))

	out, err = execute(t, "check", "--plan", planFile)
	require.ErrorIs(t, err, errInfeasible)
	var check dto.CheckPlanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &check))
	assert.False(t, check.Feasible)
	require.NotEmpty(t, check.Violations)
	assert.Equal(t, "excess_daily_distance", check.Violations[0].Rule)
}

func TestPlanReportsNoEligibleHosts(t *testing.T) {
	dir := t.TempDir()
	hosts := writeFile(t, dir, "hosts.json", hostsJSON)
	tour := writeFile(t, dir, "tour.json", tourJSON[:len(tourJSON)-1]+`, "genres": ["classical"]}`)

	out, err := execute(t, "plan", "--tour", tour, "--hosts", hosts)
	require.ErrorIs(t, err, errInfeasible)

	var plan dto.PlanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Zero(t, plan.ShowCount)
	assert.Empty(t, plan.EligibleHostIDs)
	require.Len(t, plan.Violations, 1)
	assert.Equal(t, "no_feasible_placement", plan.Violations[0].Rule)
	assert.Len(t, plan.Exclusions, 4)
}

func TestPlanRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	hosts := writeFile(t, dir, "hosts.json", hostsJSON)

	_, err := execute(t, "plan", "--hosts", hosts)
	assert.ErrorContains(t, err, `required flag(s) "tour" not set`)

	bad := writeFile(t, dir, "bad.json", `{"artist_id": "a", "title": "t", "start_date": "2026-06-10", "end_date": "2026-06-01",
		"capacity_min": 20, "capacity_max": 50, "expected_shows": 1}`)
	_, err = execute(t, "plan", "--tour", bad, "--hosts", hosts)
	assert.ErrorContains(t, err, "end date is before start date")

	_, err = execute(t, "plan", "--tour", filepath.Join(dir, "missing.json"), "--hosts", hosts)
	assert.ErrorContains(t, err, "read ")
}

func TestPlanHonoursPolicyFile(t *testing.T) {
	dir := t.TempDir()
	hosts := writeFile(t, dir, "hosts.json", hostsJSON)
	tour := writeFile(t, dir, "tour.json", tourJSON)
	policy := writeFile(t, dir, "policy.yaml", "min_response_rate: 0.85\n")

	// Fewer shows than requested is still a feasible plan.
	out, err := execute(t, "plan", "--tour", tour, "--hosts", hosts, "--policy", policy)
	require.NoError(t, err, out)

	var plan dto.PlanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, []string{"h1"}, plan.EligibleHostIDs)
	assert.Equal(t, 1, plan.ShowCount)
	assert.True(t, plan.Feasible)
}

func TestInitAndSeed(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	hosts := writeFile(t, dir, "hosts.json", hostsJSON)

	out, err := execute(t, "init", "--db", dbPath, "--postgres", "")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite schema ready")

	out, err = execute(t, "seed", "--db", dbPath, "--file", hosts)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded hosts=4")

	// Seeding again replaces rather than duplicates.
	_, err = execute(t, "seed", "--db", dbPath, "--file", hosts)
	require.NoError(t, err)

	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer conn.Close()

	pool, err := repositories.NewSqliteHostRepository(conn).ListHosts(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 4)
	assert.Equal(t, "Barn Two", pool[1].Name)
	assert.Equal(t, []string{"barn"}, pool[1].VenueTypes.Strings())
}
