package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"cardioserve/db"
	"cardioserve/ml"
	"cardioserve/monitoring"
)

// BatchPolicy decides what happens when one instance in a batch fails
// validation.
type BatchPolicy string

const (
	// RejectBatch fails the whole request on the first invalid instance.
	// The safer default: silent partial results in a clinical-risk context
	// are worse than an explicit rejection.
	RejectBatch BatchPolicy = "reject_batch"
	// Annotate scores the valid instances and reports per-instance errors;
	// failed slots are null in the parallel sequences.
	Annotate BatchPolicy = "annotate"
)

var (
	logger = zap.NewNop()

	servingPipeline ml.Pipeline
	servingConfig   *ml.DecisionConfig
	pipelineKind    string
	loadedAt        time.Time

	batchPolicy = RejectBatch

	metrics *monitoring.MetricsCollector
	hub     *monitoring.Hub

	// Injectable for tests.
	saveDecisions  = db.SaveDecisions
	queryDecisions = db.QueryRecent
)

func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// SetArtifact installs the loaded pipeline/config pair. Called once at
// startup, before the server accepts requests; never mutated afterwards.
func SetArtifact(p ml.Pipeline, config *ml.DecisionConfig, kind string) {
	servingPipeline = p
	servingConfig = config
	pipelineKind = kind
	loadedAt = time.Now().UTC()
}

func SetBatchPolicy(policy BatchPolicy) {
	batchPolicy = policy
}

func SetMetrics(mc *monitoring.MetricsCollector) {
	metrics = mc
}

func SetHub(h *monitoring.Hub) {
	hub = h
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", handleModelInfo)
	mux.HandleFunc("GET /api/metrics", handleMetrics)
	mux.HandleFunc("GET /api/decisions", handleRecentDecisions)
	mux.HandleFunc("GET /api/ws/decisions", handleDecisionsWS)
	mux.HandleFunc("POST /api/predict", handlePredict)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if servingPipeline == nil || servingConfig == nil {
		http.Error(w, `{"error":"no model loaded"}`, http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, map[string]interface{}{
		"kind":         pipelineKind,
		"n_features":   servingPipeline.NumFeatures(),
		"order":        servingConfig.FeatureOrder,
		"threshold":    servingConfig.Threshold,
		"batch_policy": batchPolicy,
		"loaded_at":    loadedAt,
	})
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	if metrics == nil {
		http.Error(w, `{"error":"metrics disabled"}`, http.StatusNotFound)
		return
	}
	respondJSON(w, metrics.Snapshot())
}

func handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	records, err := queryDecisions(limit)
	if err != nil {
		logger.Error("query decisions", zap.Error(err))
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"decisions": records,
		"count":     len(records),
	})
}

func handleDecisionsWS(w http.ResponseWriter, r *http.Request) {
	if hub == nil {
		http.Error(w, `{"error":"live feed disabled"}`, http.StatusNotFound)
		return
	}
	hub.HandleWebSocket(w, r)
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
