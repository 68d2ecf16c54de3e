package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// LogRegPipeline is a standard-scaler + logistic-regression pipeline exported
// by the offline training run. The serving side treats the numbers as opaque
// fitted parameters.
type LogRegPipeline struct {
	mean      []float64
	scale     []float64
	coef      []float64
	intercept float64
}

type logRegArtifact struct {
	Kind      string `json:"kind"`
	NFeatures int    `json:"n_features"`
	Scaler    struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	} `json:"scaler"`
	Classifier struct {
		Coef      []float64 `json:"coef"`
		Intercept float64   `json:"intercept"`
	} `json:"classifier"`
}

func (p *LogRegPipeline) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact logRegArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return fmt.Errorf("parse pipeline artifact: %w", err)
	}
	if artifact.NFeatures <= 0 {
		return errors.New("artifact declares no features")
	}
	if len(artifact.Scaler.Mean) != artifact.NFeatures ||
		len(artifact.Scaler.Scale) != artifact.NFeatures ||
		len(artifact.Classifier.Coef) != artifact.NFeatures {
		return fmt.Errorf("artifact parameter widths disagree with n_features=%d", artifact.NFeatures)
	}
	for i, s := range artifact.Scaler.Scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("scaler scale[%d] is unusable: %v", i, s)
		}
	}
	for i, c := range artifact.Classifier.Coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("classifier coef[%d] is not finite", i)
		}
	}
	p.mean = artifact.Scaler.Mean
	p.scale = artifact.Scaler.Scale
	p.coef = artifact.Classifier.Coef
	p.intercept = artifact.Classifier.Intercept
	return nil
}

func (p *LogRegPipeline) NumFeatures() int {
	return len(p.coef)
}

// Score standardizes the vector and applies the fitted linear model.
func (p *LogRegPipeline) Score(features []float64) (float64, error) {
	if len(p.coef) == 0 {
		return 0, errors.New("pipeline not loaded")
	}
	if len(features) != len(p.coef) {
		return 0, fmt.Errorf("expected %d features, got %d", len(p.coef), len(features))
	}
	z := p.intercept
	for i, v := range features {
		z += p.coef[i] * (v - p.mean[i]) / p.scale[i]
	}
	prob := 1 / (1 + math.Exp(-z))
	if math.IsNaN(prob) {
		return 0, errors.New("pipeline produced a non-finite probability")
	}
	return prob, nil
}
