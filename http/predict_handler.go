package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cardioserve/ml"
	"cardioserve/monitoring"
	"cardioserve/schema"
)

// predictResponse keeps a strict index-for-index correspondence with the
// request batch. Under the annotate policy a failed instance holds null in
// both parallel sequences and an entry in errors.
type predictResponse struct {
	Probabilities []*float64        `json:"probabilities"`
	Labels        []*int            `json:"labels"`
	Threshold     float64           `json:"threshold"`
	Order         []string          `json:"order"`
	Warnings      []instanceWarning `json:"warnings,omitempty"`
	Errors        []instanceError   `json:"errors,omitempty"`
}

type instanceWarning struct {
	Index   int     `json:"index"`
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Reason  string  `json:"reason"`
}

type instanceError struct {
	Index  int    `json:"index"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if servingPipeline == nil || servingConfig == nil {
		http.Error(w, `{"error":"no model loaded"}`, http.StatusServiceUnavailable)
		return
	}
	if metrics != nil {
		metrics.IncrCounter("predict_requests_total", 1)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	var instances []map[string]interface{}
	if err := decoder.Decode(&instances); err != nil {
		respondError(w, http.StatusBadRequest, "request body must be a JSON array of feature mappings")
		return
	}

	order := servingConfig.FeatureOrder
	threshold := servingConfig.Threshold

	response := predictResponse{
		Probabilities: make([]*float64, len(instances)),
		Labels:        make([]*int, len(instances)),
		Threshold:     threshold,
		Order:         order,
	}

	validIdx := make([]int, 0, len(instances))
	vectors := make([][]float64, 0, len(instances))
	for i, instance := range instances {
		vector, warnings, err := schema.BuildVector(instance, order)
		if err != nil {
			if metrics != nil {
				metrics.IncrCounter("validation_failures_total", 1)
			}
			field, reason := validationDetail(err)
			if batchPolicy == RejectBatch {
				respondValidationError(w, i, field, reason)
				return
			}
			response.Errors = append(response.Errors, instanceError{Index: i, Field: field, Reason: reason})
			continue
		}
		for _, warning := range warnings {
			response.Warnings = append(response.Warnings, instanceWarning{
				Index:   i,
				Feature: warning.Feature,
				Value:   warning.Value,
				Reason:  warning.Reason,
			})
		}
		validIdx = append(validIdx, i)
		vectors = append(vectors, vector)
	}

	requestID := GetRequestID(r.Context())
	start := time.Now()
	decision, err := ml.Decide(servingPipeline, threshold, vectors)
	if err != nil {
		// Never default to a label: an uncommunicated false negative is the
		// worst failure mode here.
		logger.Error("pipeline execution failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		if metrics != nil {
			metrics.IncrCounter("pipeline_errors_total", 1)
		}
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if metrics != nil {
		metrics.ObserveLatency(time.Since(start))
		metrics.IncrCounter("instances_scored_total", float64(len(vectors)))
	}
	if decision.Clamped {
		logger.Warn("pipeline emitted probability outside [0,1], clamped",
			zap.String("request_id", requestID))
		if metrics != nil {
			metrics.IncrCounter("probability_clamps_total", 1)
		}
	}

	for j, i := range validIdx {
		prob := decision.Probabilities[j]
		label := decision.Labels[j]
		response.Probabilities[i] = &prob
		response.Labels[i] = &label
	}

	if len(vectors) > 0 {
		if err := saveDecisions(requestID, validIdx, decision.Probabilities, decision.Labels, threshold); err != nil {
			logger.Warn("audit write failed", zap.String("request_id", requestID), zap.Error(err))
		}
		if hub != nil {
			hub.Publish(monitoring.DecisionEvent{
				RequestID:     requestID,
				Count:         len(vectors),
				Threshold:     threshold,
				Probabilities: decision.Probabilities,
				Labels:        decision.Labels,
				Timestamp:     time.Now().UTC(),
			})
		}
	}

	respondJSON(w, response)
}

func validationDetail(err error) (field, reason string) {
	var missing *schema.MissingFeatureError
	if errors.As(err, &missing) {
		return missing.Feature, err.Error()
	}
	var invalid *schema.InvalidTypeError
	if errors.As(err, &invalid) {
		return invalid.Feature, err.Error()
	}
	var nonFinite *schema.NonFiniteError
	if errors.As(err, &nonFinite) {
		return nonFinite.Feature, err.Error()
	}
	return "", err.Error()
}

func respondValidationError(w http.ResponseWriter, index int, field, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  "validation failed",
		"index":  index,
		"field":  field,
		"reason": reason,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
