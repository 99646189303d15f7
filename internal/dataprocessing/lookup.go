package dataprocessing

import "sort"

// LookupTable is the immutable result of a completed aggregation pass.
// It has no mutating methods and may be shared by any number of readers.
type LookupTable[V any] struct {
	name      string
	entries   map[string]AggregateResult[V]
	keys      []string
	normalize KeyNormalizer
}

// NewLookupTable builds a table from finalized aggregate results. Queries
// are normalized with the same normalizer used at ingest.
func NewLookupTable[V any](name string, results []AggregateResult[V], normalize KeyNormalizer) *LookupTable[V] {
	if normalize == nil {
		normalize = NormalizeKey
	}
	t := &LookupTable[V]{
		name:      name,
		entries:   make(map[string]AggregateResult[V], len(results)),
		keys:      make([]string, 0, len(results)),
		normalize: normalize,
	}
	for _, r := range results {
		if _, dup := t.entries[r.Key]; !dup {
			t.keys = append(t.keys, r.Key)
		}
		t.entries[r.Key] = r
	}
	sort.Strings(t.keys)
	return t
}

// Name identifies the table in logs and metrics.
func (t *LookupTable[V]) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Get returns the mean stored for key. A missing key is not an error.
func (t *LookupTable[V]) Get(key string) (V, bool) {
	r, ok := t.Result(key)
	return r.Value, ok
}

// Result returns the full aggregate, including the contributing row count.
func (t *LookupTable[V]) Result(key string) (AggregateResult[V], bool) {
	if t == nil || t.entries == nil {
		return AggregateResult[V]{}, false
	}
	r, ok := t.entries[t.normalize(key)]
	return r, ok
}

// Len is the number of keys in the table.
func (t *LookupTable[V]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Keys returns the stored keys in ascending order.
func (t *LookupTable[V]) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Entries returns every aggregate in key order.
func (t *LookupTable[V]) Entries() []AggregateResult[V] {
	if t == nil {
		return nil
	}
	out := make([]AggregateResult[V], 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, t.entries[k])
	}
	return out
}

// Lookup is the query used by consumers of a loaded table.
func Lookup[V any](table *LookupTable[V], key string) (V, bool) {
	return table.Get(key)
}
