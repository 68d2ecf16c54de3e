package ml

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// identityPipeline scores a vector as its first component, which lets tests
// pick the exact probability the engine sees.
type identityPipeline struct {
	n   int
	err error
}

func (p *identityPipeline) Score(features []float64) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return features[0], nil
}

func (p *identityPipeline) NumFeatures() int { return p.n }

func TestDecideThresholdBoundary(t *testing.T) {
	threshold := 0.2095
	vectors := [][]float64{
		{threshold},
		{math.Nextafter(threshold, 0)},
	}

	decision, err := Decide(&identityPipeline{n: 1}, threshold, vectors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Labels[0] != 1 {
		t.Fatal("probability exactly at threshold must label positive")
	}
	if decision.Labels[1] != 0 {
		t.Fatal("probability one step below threshold must label negative")
	}
}

func TestDecideClampsOutOfRange(t *testing.T) {
	decision, err := Decide(&identityPipeline{n: 1}, 0.5, [][]float64{{1.5}, {-0.25}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Clamped {
		t.Fatal("expected clamp flag")
	}
	if decision.Probabilities[0] != 1 || decision.Probabilities[1] != 0 {
		t.Fatalf("expected clamped probabilities, got %v", decision.Probabilities)
	}
	if decision.Labels[0] != 1 || decision.Labels[1] != 0 {
		t.Fatalf("unexpected labels %v", decision.Labels)
	}
}

func TestDecideEmptyBatch(t *testing.T) {
	decision, err := Decide(&identityPipeline{n: 1}, 0.5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decision.Probabilities) != 0 || len(decision.Labels) != 0 {
		t.Fatal("expected empty parallel sequences")
	}
}

func TestDecidePropagatesPipelineError(t *testing.T) {
	scoreErr := errors.New("boom")
	if _, err := Decide(&identityPipeline{n: 1, err: scoreErr}, 0.5, [][]float64{{0.3}}); !errors.Is(err, scoreErr) {
		t.Fatalf("expected wrapped pipeline error, got %v", err)
	}
}

func TestDecisionConfigValidate(t *testing.T) {
	cases := []DecisionConfig{
		{Threshold: 0, FeatureOrder: []string{"age"}},
		{Threshold: 1, FeatureOrder: []string{"age"}},
		{Threshold: 0.5, FeatureOrder: nil},
		{Threshold: 0.5, FeatureOrder: []string{"age", "age"}},
	}
	for i, config := range cases {
		if err := config.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}

	good := DecisionConfig{Threshold: 0.2095, FeatureOrder: []string{"age", "sex"}}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckArity(t *testing.T) {
	config := &DecisionConfig{Threshold: 0.2095, FeatureOrder: []string{"age", "sex"}}
	if err := config.CheckArity(&identityPipeline{n: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := config.CheckArity(&identityPipeline{n: 11}); err == nil {
		t.Fatal("expected arity mismatch error")
	}
}

func TestLoadDecisionConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decision_config.json")
	payload := `{"threshold": 0.2095, "feature_order": ["age", "sex"]}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadDecisionConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Threshold != 0.2095 {
		t.Fatalf("expected threshold 0.2095, got %v", config.Threshold)
	}
	if len(config.FeatureOrder) != 2 {
		t.Fatalf("unexpected order %v", config.FeatureOrder)
	}
}

func TestLoadDecisionConfigRejectsBadThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decision_config.json")
	payload := `{"threshold": 1.5, "feature_order": ["age"]}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDecisionConfig(path); err == nil {
		t.Fatal("expected error for threshold outside (0,1)")
	}
}
