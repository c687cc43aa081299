package worker

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/riskengine/internal/domain/model"
)

// Collector is a Sink that keeps every result in memory.
type Collector struct {
	mu      sync.Mutex
	results []model.JobResult
}

// NewCollector creates an empty collector.
func NewCollector(capacity int) *Collector {
	return &Collector{results: make([]model.JobResult, 0, capacity)}
}

// Deliver stores r.
func (c *Collector) Deliver(_ context.Context, r model.JobResult) error { //nolint:gocritic // hugeParam: value semantics
	if r.Result.Risks == nil {
		return ErrNilResult
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
	return nil
}

// Results returns collected results ordered by submission sequence.
func (c *Collector) Results() []model.JobResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.JobResult, len(c.results))
	copy(out, c.results)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Job.Seq < out[j].Job.Seq })
	return out
}
