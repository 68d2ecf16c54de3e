package ml

// Pipeline is the loaded transform+classify artifact. Implementations are
// immutable after load and safe for concurrent use.
type Pipeline interface {
	// Score returns the probability of the positive (high-risk) class.
	Score(features []float64) (float64, error)
	// NumFeatures reports the input width the artifact was fitted on.
	NumFeatures() int
}
