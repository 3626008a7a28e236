package plan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rferrors "github.com/felixgeelhaar/runeforge/internal/errors"
)

const zeroHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

func samplePlan(t *testing.T) *StackPlan {
	t.Helper()
	p := &StackPlan{
		Decisions: []Decision{
			{Topic: "language", Choice: "Rust", Reasons: []string{"fast"}, Alternatives: []string{"Go"}, Score: 0.895},
			{Topic: "backend", Choice: "Actix Web", Reasons: []string{"quality"}, Alternatives: []string{"Axum"}, Score: 0.835},
		},
		Stack: Stack{
			Choices: map[string]string{"language": "Rust", "backend": "Actix Web"},
			Services: []Service{
				{Name: "shop-backend", Kind: "api", Language: "rust", Framework: "Actix Web", Runtime: "tokio"},
			},
		},
		Estimated: Estimated{MonthlyCostUSD: 100},
		Meta:      Meta{Seed: 42, BlueprintHash: zeroHash},
	}
	h, err := p.ComputeHash(false)
	require.NoError(t, err)
	p.Meta.PlanHash = h
	return p
}

func TestStack_JSONIsFlat(t *testing.T) {
	s := Stack{
		Choices:  map[string]string{"backend": "Axum", "database": "PostgreSQL"},
		Services: []Service{{Name: "api", Kind: "api", Language: "rust", Framework: "Axum", Runtime: "tokio"}},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"backend":"Axum","database":"PostgreSQL","services":[{"name":"api","kind":"api","language":"rust","framework":"Axum","runtime":"tokio"}]}`,
		string(data))

	var back Stack
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
	assert.Equal(t, []string{"backend", "database"}, back.Topics())
}

func TestStack_NoServicesOmitted(t *testing.T) {
	data, err := json.Marshal(Stack{Choices: map[string]string{"cache": "Redis"}})
	require.NoError(t, err)
	assert.Equal(t, `{"cache":"Redis"}`, string(data))
}

func TestStack_UnmarshalRejectsNonString(t *testing.T) {
	var s Stack
	err := json.Unmarshal([]byte(`{"backend": 3}`), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stack.backend")
}

func TestStackPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *StackPlan)
		wantErr string
	}{
		{name: "valid", mutate: func(p *StackPlan) {}},
		{
			name:    "no decisions",
			mutate:  func(p *StackPlan) { p.Decisions = nil },
			wantErr: "at least one decision",
		},
		{
			name:    "alternative equals choice",
			mutate:  func(p *StackPlan) { p.Decisions[1].Alternatives = []string{"Actix Web"} },
			wantErr: "alternatives include the choice",
		},
		{
			name:    "duplicate alternative",
			mutate:  func(p *StackPlan) { p.Decisions[1].Alternatives = []string{"Axum", "Axum"} },
			wantErr: "listed more than once",
		},
		{
			name:    "stack mismatch",
			mutate:  func(p *StackPlan) { p.Stack.Choices["backend"] = "Axum" },
			wantErr: "does not match decision choice",
		},
		{
			name:    "extra stack field",
			mutate:  func(p *StackPlan) { p.Stack.Choices["queue"] = "NATS" },
			wantErr: "no matching decision",
		},
		{
			name:    "duplicate topic",
			mutate:  func(p *StackPlan) { p.Decisions = append(p.Decisions, p.Decisions[0]) },
			wantErr: "duplicate decision",
		},
		{
			name:    "service framework not chosen",
			mutate:  func(p *StackPlan) { p.Stack.Services[0].Framework = "Gin" },
			wantErr: "not a chosen candidate",
		},
		{
			name:    "negative cost",
			mutate:  func(p *StackPlan) { p.Estimated.MonthlyCostUSD = -1 },
			wantErr: "monthly_cost_usd",
		},
		{
			name:    "bad hash",
			mutate:  func(p *StackPlan) { p.Meta.PlanHash = "abc" },
			wantErr: "meta.plan_hash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePlan(t)
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStackPlan_ValidateSchema(t *testing.T) {
	p := samplePlan(t)
	require.NoError(t, p.ValidateSchema())

	p.Decisions[0].Score = 1.5
	assert.Error(t, p.ValidateSchema())
}

func TestComputeHash(t *testing.T) {
	p := samplePlan(t)

	unseeded, err := p.ComputeHash(false)
	require.NoError(t, err)
	seeded, err := p.ComputeHash(true)
	require.NoError(t, err)
	assert.NotEqual(t, unseeded, seeded)

	p.Meta.Seed = 7
	unseeded7, err := p.ComputeHash(false)
	require.NoError(t, err)
	seeded7, err := p.ComputeHash(true)
	require.NoError(t, err)
	assert.Equal(t, unseeded, unseeded7, "unseeded hash ignores the seed")
	assert.NotEqual(t, seeded, seeded7)

	// estimate and blueprint hash are not covered
	p.Estimated.MonthlyCostUSD = 999
	again, err := p.ComputeHash(false)
	require.NoError(t, err)
	assert.Equal(t, unseeded, again)
}

func TestVerifyHash(t *testing.T) {
	p := samplePlan(t)
	ok, err := p.VerifyHash()
	require.NoError(t, err)
	assert.True(t, ok)

	seeded, err := p.ComputeHash(true)
	require.NoError(t, err)
	p.Meta.PlanHash = seeded
	ok, err = p.VerifyHash()
	require.NoError(t, err)
	assert.True(t, ok)

	p.Decisions[0].Score = 0.1
	ok, err = p.VerifyHash()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncodeParse_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			p := samplePlan(t)
			p.Meta.Seed = 18446744073709551615

			data, err := Encode(p, format)
			require.NoError(t, err)

			back, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, p, back)
		})
	}
}

func TestEncode_JSONDeterministic(t *testing.T) {
	a, err := Encode(samplePlan(t), FormatJSON)
	require.NoError(t, err)
	b, err := Encode(samplePlan(t), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasSuffix(string(a), "\n"))
}

func TestParse_SchemaFailure(t *testing.T) {
	_, err := Parse([]byte(`{"decisions": []}`))
	require.Error(t, err)
	assert.True(t, rferrors.HasCode(err, rferrors.ErrCodePlanSchema))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"toml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plan.json", "out/plan.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			p := samplePlan(t)
			require.NoError(t, SaveFile(p, path, ""))

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, p, loaded)
		})
	}

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, rferrors.HasCode(err, rferrors.ErrCodeFileNotFound))

	// an explicit format wins over the extension
	path := filepath.Join(dir, "plan.txt")
	require.NoError(t, SaveFile(samplePlan(t), path, FormatYAML))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "decisions:")
}
