package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// createTestRules builds a table with the given number of topics and
// candidates per topic. Every other candidate ties with its neighbour.
func createTestRules(b *testing.B, numTopics, numCandidates int) *rules.Repository {
	b.Helper()

	topics := make([]rules.Topic, numTopics)
	for i := range topics {
		cands := make([]rules.Candidate, numCandidates)
		for j := range cands {
			v := 0.5 + float64(j/2)*0.01
			cands[j] = rules.Candidate{
				Name: fmt.Sprintf("cand-%03d", j),
				Metrics: map[rules.Metric]float64{
					rules.MetricQuality:  v,
					rules.MetricSLO:      v,
					rules.MetricCost:     v,
					rules.MetricSecurity: v,
					rules.MetricOps:      v,
				},
				Regions:        []string{"*"},
				MonthlyCostUSD: float64(j),
			}
		}
		topics[i] = rules.Topic{Name: fmt.Sprintf("topic-%03d", i), Candidates: cands}
	}

	repo, err := rules.Load(rules.Config{
		Version: "bench",
		Weights: map[string]float64{"quality": 0.3, "slo": 0.25, "cost": 0.2, "security": 0.15, "ops": 0.1},
		Topics:  topics,
	})
	if err != nil {
		b.Fatalf("Load() error = %v", err)
	}
	return repo
}

func benchmarkEvaluate(b *testing.B, repo *rules.Repository, opts Options) {
	bp := newBlueprint()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Evaluate(ctx, bp, repo, uint64(i), opts); err != nil {
			b.Fatalf("Evaluate() error = %v", err)
		}
	}
}

// BenchmarkSelect_Builtin benchmarks a selection against the embedded table
func BenchmarkSelect_Builtin(b *testing.B) {
	repo := builtinRules(b)
	benchmarkEvaluate(b, repo, Options{})
}

// BenchmarkSelect_Builtin_Parallel benchmarks the embedded table with parallel topics
func BenchmarkSelect_Builtin_Parallel(b *testing.B) {
	repo := builtinRules(b)
	benchmarkEvaluate(b, repo, Options{Parallel: true})
}

// BenchmarkSelect_LargeTable benchmarks 50 topics of 40 candidates
func BenchmarkSelect_LargeTable(b *testing.B) {
	benchmarkEvaluate(b, createTestRules(b, 50, 40), Options{})
}

// BenchmarkSelect_LargeTable_Parallel benchmarks the large table with parallel topics
func BenchmarkSelect_LargeTable_Parallel(b *testing.B) {
	benchmarkEvaluate(b, createTestRules(b, 50, 40), Options{Parallel: true})
}
