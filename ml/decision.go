package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DecisionConfig is the offline-tuned operating point. The threshold is never
// recomputed here; it is the recall-first cutoff chosen against the
// out-of-fold precision/recall curve.
type DecisionConfig struct {
	Threshold    float64  `json:"threshold"`
	FeatureOrder []string `json:"feature_order"`
}

func LoadDecisionConfig(path string) (*DecisionConfig, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config DecisionConfig
	if err := json.Unmarshal(payload, &config); err != nil {
		return nil, fmt.Errorf("parse decision config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *DecisionConfig) Validate() error {
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("threshold %v outside (0,1)", c.Threshold)
	}
	if len(c.FeatureOrder) == 0 {
		return errors.New("feature_order is empty")
	}
	seen := make(map[string]bool, len(c.FeatureOrder))
	for _, name := range c.FeatureOrder {
		if seen[name] {
			return fmt.Errorf("feature_order repeats %q", name)
		}
		seen[name] = true
	}
	return nil
}

// CheckArity verifies the pipeline and the decision config agree on the input
// width. A mismatch means the two artifacts come from different training runs
// and the process must not serve.
func (c *DecisionConfig) CheckArity(p Pipeline) error {
	if p.NumFeatures() != len(c.FeatureOrder) {
		return fmt.Errorf("pipeline expects %d features, config declares %d",
			p.NumFeatures(), len(c.FeatureOrder))
	}
	return nil
}

// Decision holds the parallel outputs for one scored batch.
type Decision struct {
	Probabilities []float64
	Labels        []int
	// Clamped is set when a probability fell outside [0,1] and was pulled
	// back in, which points at a corrupted or mismatched artifact.
	Clamped bool
}

// Decide scores each vector and applies the operating threshold. The compare
// is >= so a probability exactly at the threshold resolves to the positive
// label.
func Decide(p Pipeline, threshold float64, vectors [][]float64) (*Decision, error) {
	decision := &Decision{
		Probabilities: make([]float64, len(vectors)),
		Labels:        make([]int, len(vectors)),
	}
	for i, vector := range vectors {
		prob, err := p.Score(vector)
		if err != nil {
			return nil, fmt.Errorf("score instance %d: %w", i, err)
		}
		if prob < 0 {
			prob = 0
			decision.Clamped = true
		} else if prob > 1 {
			prob = 1
			decision.Clamped = true
		}
		decision.Probabilities[i] = prob
		if prob >= threshold {
			decision.Labels[i] = 1
		}
	}
	return decision, nil
}
