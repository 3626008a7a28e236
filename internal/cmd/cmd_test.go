package cmd

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/runeforge/internal/domain"
	"github.com/felixgeelhaar/runeforge/internal/errors"
	"github.com/felixgeelhaar/runeforge/internal/exitcode"
	"github.com/felixgeelhaar/runeforge/internal/plan"
)

const shopBlueprint = `project_name: Shop Front
goals: [sell things]
constraints: {}
traffic_profile: { rps_peak: 100, global: false, latency_sensitive: false }
`

const tightBlueprint = `project_name: Shop Front
goals: [sell things]
constraints: { monthly_cost_usd_max: 300 }
traffic_profile: { rps_peak: 100, global: false, latency_sensitive: false }
`

// sandbox isolates a test from the user's config, rules and .env files.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(append(args, "--no-color"))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestPlanCommand(t *testing.T) {
	dir := sandbox(t)
	bp := writeFile(t, dir, "shop.yaml", shopBlueprint)

	out, _, err := run(t, "plan", "-f", bp)
	require.NoError(t, err)

	var p plan.StackPlan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Len(t, p.Decisions, 9)
	assert.Equal(t, uint64(42), p.Meta.Seed)
	for _, d := range p.Decisions {
		if d.Topic == "backend" {
			assert.Equal(t, "Actix Web", d.Choice)
		}
	}

	again, _, err := run(t, "plan", "-f", bp)
	require.NoError(t, err)
	assert.Equal(t, out, again, "plans must be byte-identical across runs")
}

func TestPlanCommand_WriteAndValidate(t *testing.T) {
	dir := sandbox(t)
	bp := writeFile(t, dir, "shop.yaml", shopBlueprint)
	out := filepath.Join(dir, "plans", "shop.yaml")

	_, stderr, err := run(t, "plan", "-f", bp, "--out", out, "--seed", "7", "--strict")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Plan written to "+out)

	stdout, _, err := run(t, "validate", "plan", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "valid plan")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), "Actix Web", "Axum", 1)
	require.NotEqual(t, string(data), tampered)
	writeFile(t, dir, "tampered.yaml", tampered)

	_, _, err = run(t, "validate", "plan", filepath.Join(dir, "tampered.yaml"))
	require.Error(t, err)
	assert.Equal(t, exitcode.OutputError, exitcode.DetermineExitCode(err))
}

func TestPlanCommand_ExitCodes(t *testing.T) {
	dir := sandbox(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no eligible candidate", []string{"plan", "-f", writeFile(t, dir, "tight.yaml", tightBlueprint)}, exitcode.NoEligibleCandidate},
		{"missing blueprint", []string{"plan", "-f", filepath.Join(dir, "missing.yaml")}, exitcode.InputError},
		{"invalid blueprint", []string{"plan", "-f", writeFile(t, dir, "bad.yaml", "project_name: x\n")}, exitcode.InputError},
		{"bad format", []string{"plan", "-f", writeFile(t, dir, "ok.yaml", shopBlueprint), "--format", "toml"}, exitcode.InputError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, exitcode.DetermineExitCode(err))
		})
	}
}

func TestExplainCommand(t *testing.T) {
	dir := sandbox(t)
	bp := writeFile(t, dir, "shop.yaml", shopBlueprint)

	out, _, err := run(t, "explain", "-f", bp)
	require.NoError(t, err)
	assert.Contains(t, out, "Stack Selection: Shop Front")
	assert.Contains(t, out, "Actix Web")
	assert.Contains(t, out, "Topics decided:  9/9")

	out, _, err = run(t, "explain", "-f", bp, "--format", "compact")
	require.NoError(t, err)
	assert.Contains(t, out, "Shop Front (seed 42)")

	_, _, err = run(t, "explain", "-f", bp, "--format", "html")
	assert.Error(t, err)
}

func TestExplainCommand_Failure(t *testing.T) {
	dir := sandbox(t)
	bp := writeFile(t, dir, "tight.yaml", tightBlueprint)

	out, _, err := run(t, "explain", "-f", bp)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNoEligibleCandidate))
	assert.Contains(t, out, "No eligible candidate")
	assert.Contains(t, out, "cost_ceiling")
}

func TestValidateBlueprintCommand(t *testing.T) {
	dir := sandbox(t)

	out, _, err := run(t, "validate", "blueprint", writeFile(t, dir, "shop.yaml", shopBlueprint))
	require.NoError(t, err)
	assert.Contains(t, out, `valid blueprint for "Shop Front"`)
	assert.Contains(t, out, "sha256:")

	_, _, err = run(t, "validate", "blueprint", writeFile(t, dir, "bad.yaml", "goals: []\n"))
	require.Error(t, err)
	assert.Equal(t, exitcode.InputError, exitcode.DetermineExitCode(err))
}

func TestRulesCommands(t *testing.T) {
	sandbox(t)

	out, _, err := run(t, "rules", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "builtin: valid")
	assert.Contains(t, out, "fingerprint: blake3:")

	out, _, err = run(t, "rules", "show", "--format", "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# source: builtin\n"))
	assert.Contains(t, out, `"backend"`)

	_, _, err = run(t, "rules", "check", "--rules", "missing.yaml")
	require.Error(t, err)
	assert.Equal(t, exitcode.InputError, exitcode.DetermineExitCode(err))
}

func TestHistoryCommands(t *testing.T) {
	dir := sandbox(t)
	bp := writeFile(t, dir, "shop.yaml", shopBlueprint)
	db := filepath.Join(dir, "plans.db")

	out, _, err := run(t, "history", "--archive", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No archived plans")

	planJSON, _, err := run(t, "plan", "-f", bp, "--archive", db)
	require.NoError(t, err)
	var p plan.StackPlan
	require.NoError(t, json.Unmarshal([]byte(planJSON), &p))

	out, _, err = run(t, "history", "--archive", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Shop Front")
	assert.Contains(t, out, "$675.00")

	shown, _, err := run(t, "history", "show", strings.TrimPrefix(p.Meta.PlanHash, "sha256:")[:16], "--archive", db)
	require.NoError(t, err)
	assert.JSONEq(t, planJSON, shown)

	_, _, err = run(t, "history", "show", "deadbeef", "--archive", db)
	assert.True(t, errors.HasCode(err, errors.ErrCodePlanNotFound))
}

func TestHistoryCommand_NoArchive(t *testing.T) {
	sandbox(t)
	_, _, err := run(t, "history")
	assert.True(t, errors.HasCode(err, errors.ErrCodeArchiveOpen))
}

func TestVersionCommand(t *testing.T) {
	sandbox(t)

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "runeforge "))

	out, _, err = run(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["go_version"])
}

func TestConfigFileSettings(t *testing.T) {
	dir := sandbox(t)
	bp := writeFile(t, dir, "shop.yaml", shopBlueprint)
	cfg := writeFile(t, dir, "runeforge.yaml", "seed: 9\n")

	out, _, err := run(t, "plan", "-f", bp, "--config", cfg)
	require.NoError(t, err)
	var p plan.StackPlan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, uint64(9), p.Meta.Seed)

	t.Setenv("RUNEFORGE_SEED", "11")
	out, _, err = run(t, "plan", "-f", bp, "--seed", "13")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, uint64(13), p.Meta.Seed, "flags take precedence over the environment")
}

func TestBlueprintAnswers_ToBlueprint(t *testing.T) {
	tests := []struct {
		name    string
		ans     blueprintAnswers
		wantErr bool
	}{
		{
			name: "full answers",
			ans: blueprintAnswers{
				ProjectName: " Shop Front ",
				Goals:       "sell things\n\n  ship fast ",
				CostCeiling: "500",
				Persistence: string(domain.PersistenceSQL),
				Regions:     "eu-west-1, us-east-1,",
				Compliance:  []string{string(domain.ComplianceAuditLog)},
				RPSPeak:     "250",
				Global:      true,
				Language:    string(domain.LanguageGo),
			},
		},
		{
			name: "polyglot without ceiling",
			ans:  blueprintAnswers{ProjectName: "x", Goals: "y", RPSPeak: "0", Language: string(domain.LanguageNone)},
		},
		{
			name:    "no goals",
			ans:     blueprintAnswers{ProjectName: "x", Goals: " \n", RPSPeak: "1"},
			wantErr: true,
		},
		{
			name:    "bad rps",
			ans:     blueprintAnswers{ProjectName: "x", Goals: "y", RPSPeak: "lots"},
			wantErr: true,
		},
		{
			name:    "negative ceiling",
			ans:     blueprintAnswers{ProjectName: "x", Goals: "y", RPSPeak: "1", CostCeiling: "-5"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bp, err := tt.ans.toBlueprint()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeBlueprintInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.ans.ProjectName), bp.ProjectName)
			assert.NotEmpty(t, bp.Goals)
		})
	}

	bp, err := tests[0].ans.toBlueprint()
	require.NoError(t, err)
	assert.Equal(t, []string{"sell things", "ship fast"}, bp.Goals)
	assert.Equal(t, []string{"eu-west-1", "us-east-1"}, bp.Constraints.RegionAllow)
	require.NotNil(t, bp.Constraints.MonthlyCostUSDMax)
	assert.Equal(t, 500.0, *bp.Constraints.MonthlyCostUSDMax)
	assert.Equal(t, domain.LanguageGo, bp.LanguageMode())
	assert.True(t, bp.TrafficProfile.Global)

	bp, err = tests[1].ans.toBlueprint()
	require.NoError(t, err)
	assert.True(t, bp.Polyglot())
	assert.False(t, bp.HasCostCeiling())
}

func TestPlanCommand_ArchiveFailureKeepsPlan(t *testing.T) {
	dir := sandbox(t)
	bp := writeFile(t, dir, "shop.yaml", shopBlueprint)
	db := filepath.Join(dir, "plans.db")

	_, _, err := run(t, "plan", "-f", bp, "--archive", db)
	require.NoError(t, err)

	conn, err := sql.Open("sqlite", db)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TRIGGER refuse_plans BEFORE INSERT ON runeforge_plans
BEGIN SELECT RAISE(ABORT, 'archive is read only'); END`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	out, stderr, err := run(t, "plan", "-f", bp, "--archive", db)
	require.NoError(t, err)
	var p plan.StackPlan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Len(t, p.Decisions, 9)
	assert.Contains(t, stderr, "Warning: plan not archived")

	history, _, err := run(t, "history", "--archive", db)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(history, "Shop Front"))
}

func TestPlanCommand_HelpListsExitCodes(t *testing.T) {
	sandbox(t)
	out, _, err := run(t, "plan", "--help")
	require.NoError(t, err)
	for _, code := range []int{exitcode.Success, exitcode.InputError, exitcode.OutputError, exitcode.NoEligibleCandidate} {
		assert.Contains(t, out, exitcode.GetExitCodeDescription(code))
	}
}
