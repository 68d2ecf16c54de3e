package ml

import (
	"errors"
)

func LoadPipeline(kind, path string) (Pipeline, error) {
	switch kind {
	case "logreg":
		pipeline := &LogRegPipeline{}
		if err := pipeline.Load(path); err != nil {
			return nil, err
		}
		return pipeline, nil
	default:
		return nil, errors.New("unsupported pipeline kind")
	}
}
