package dataprocessing

import (
	"fmt"
	"sort"
	"sync"
)

// AggregateResult is the finalized mean for one group.
type AggregateResult[V any] struct {
	Key   string
	Value V
	Count int
}

// accumulator is the running state of one group: per-column sums and a row count.
type accumulator struct {
	sum   []float64
	count int
}

// groupAccumulator keeps running sums per key. It is safe for concurrent Add.
type groupAccumulator struct {
	mu        sync.Mutex
	width     int
	groups    map[string]*accumulator
	finalized bool
	err       error
}

func newGroupAccumulator(width int) *groupAccumulator {
	return &groupAccumulator{
		width:  width,
		groups: make(map[string]*accumulator),
	}
}

func (g *groupAccumulator) add(rec Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finalized {
		return fmt.Errorf("%w: add after finalize", ErrPipelineSequence)
	}
	if g.err != nil {
		return g.err
	}
	if g.width == 0 {
		if rec.Width() == 0 {
			return fmt.Errorf("%w: record %q carries no values", ErrSchemaMismatch, rec.Key)
		}
		g.width = rec.Width()
	}
	if rec.Width() != g.width {
		// A mismatched width makes every mean of this instance meaningless.
		g.err = fmt.Errorf("%w: record %q has %d values, expected %d", ErrSchemaMismatch, rec.Key, rec.Width(), g.width)
		return g.err
	}

	acc, ok := g.groups[rec.Key]
	if !ok {
		acc = &accumulator{sum: make([]float64, g.width)}
		g.groups[rec.Key] = acc
	}
	for i, v := range rec.Values {
		acc.sum[i] += v
	}
	acc.count++
	return nil
}

// finalize hands the groups over exactly once and drops the running state.
func (g *groupAccumulator) finalize() (map[string]*accumulator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finalized {
		return nil, fmt.Errorf("%w: finalize called twice", ErrPipelineSequence)
	}
	g.finalized = true
	if g.err != nil {
		return nil, g.err
	}
	groups := g.groups
	g.groups = nil
	return groups, nil
}

func (g *groupAccumulator) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.groups)
}

func sortedKeys(groups map[string]*accumulator) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ScalarAggregator averages a single value per key.
type ScalarAggregator struct {
	acc *groupAccumulator
}

// NewScalarAggregator creates an aggregator for one-value records.
func NewScalarAggregator() *ScalarAggregator {
	return &ScalarAggregator{acc: newGroupAccumulator(1)}
}

// Add folds rec into the group for rec.Key.
func (a *ScalarAggregator) Add(rec Record) error {
	return a.acc.add(rec)
}

// Groups is the number of distinct keys seen so far.
func (a *ScalarAggregator) Groups() int {
	return a.acc.len()
}

// Finalize computes sum/count for every group, ordered by key.
func (a *ScalarAggregator) Finalize() ([]AggregateResult[float64], error) {
	groups, err := a.acc.finalize()
	if err != nil {
		return nil, err
	}
	results := make([]AggregateResult[float64], 0, len(groups))
	for _, key := range sortedKeys(groups) {
		acc := groups[key]
		results = append(results, AggregateResult[float64]{
			Key:   key,
			Value: acc.sum[0] / float64(acc.count),
			Count: acc.count,
		})
	}
	return results, nil
}

// VectorAggregator averages a fixed-width value vector per key, column by column.
type VectorAggregator struct {
	acc *groupAccumulator
}

// NewVectorAggregator creates an aggregator for records of the given width.
// A width of zero adopts the width of the first record added.
func NewVectorAggregator(width int) *VectorAggregator {
	if width < 0 {
		width = 0
	}
	return &VectorAggregator{acc: newGroupAccumulator(width)}
}

// Add folds rec into the group for rec.Key. A record whose width differs
// from the aggregator's fails with ErrSchemaMismatch and poisons the instance.
func (a *VectorAggregator) Add(rec Record) error {
	return a.acc.add(rec)
}

// Groups is the number of distinct keys seen so far.
func (a *VectorAggregator) Groups() int {
	return a.acc.len()
}

// Finalize computes the element-wise mean for every group, ordered by key.
func (a *VectorAggregator) Finalize() ([]AggregateResult[[]float64], error) {
	groups, err := a.acc.finalize()
	if err != nil {
		return nil, err
	}
	results := make([]AggregateResult[[]float64], 0, len(groups))
	for _, key := range sortedKeys(groups) {
		acc := groups[key]
		mean := make([]float64, len(acc.sum))
		for i, s := range acc.sum {
			mean[i] = s / float64(acc.count)
		}
		results = append(results, AggregateResult[[]float64]{Key: key, Value: mean, Count: acc.count})
	}
	return results, nil
}
