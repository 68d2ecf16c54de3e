package ml

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedPipeline memoizes scores by exact feature vector. Serving is
// deterministic, so a cache hit is always the same value the pipeline would
// return.
type CachedPipeline struct {
	inner Pipeline
	cache *lru.Cache[string, float64]
}

func NewCachedPipeline(inner Pipeline, size int) (*CachedPipeline, error) {
	cache, err := lru.New[string, float64](size)
	if err != nil {
		return nil, err
	}
	return &CachedPipeline{inner: inner, cache: cache}, nil
}

func (c *CachedPipeline) NumFeatures() int {
	return c.inner.NumFeatures()
}

func (c *CachedPipeline) Score(features []float64) (float64, error) {
	key := vectorKey(features)
	if prob, ok := c.cache.Get(key); ok {
		return prob, nil
	}
	prob, err := c.inner.Score(features)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, prob)
	return prob, nil
}

func vectorKey(features []float64) string {
	var b strings.Builder
	for i, v := range features {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.FormatFloat(v, 'b', -1, 64))
	}
	return b.String()
}
