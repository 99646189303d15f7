package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is a validated row: one key and its numeric values.
// Records are values; code that changes a field builds a new Record.
type Record struct {
	Key    string
	Values []float64
}

// Value returns the i-th numeric field.
func (r Record) Value(i int) float64 {
	return r.Values[i]
}

// Width is the number of numeric fields carried by the record.
func (r Record) Width() int {
	return len(r.Values)
}

func (r Record) clone() Record {
	values := make([]float64, len(r.Values))
	copy(values, r.Values)
	return Record{Key: r.Key, Values: values}
}

// KeyNormalizer maps a raw key to the form stored in, and queried against, a table.
type KeyNormalizer func(string) string

// NormalizeKey trims surrounding whitespace and upper-cases the key.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// PreserveKey only trims surrounding whitespace.
func PreserveKey(key string) string {
	return strings.TrimSpace(key)
}

// NormalizerFor returns the key normalizer for a configured key case.
func NormalizerFor(keyCase string) KeyNormalizer {
	if strings.EqualFold(keyCase, "preserve") {
		return PreserveKey
	}
	return NormalizeKey
}

// Schema describes which columns of a parsed row make up a Record.
type Schema struct {
	KeyColumn    int
	ValueColumns []int
	// MinColumns is the minimum field count; values below the highest
	// referenced column are raised to it.
	MinColumns int
	Normalize  KeyNormalizer
}

// ScalarSchema is the two-column key,value layout.
func ScalarSchema() Schema {
	return Schema{KeyColumn: 0, ValueColumns: []int{1}, MinColumns: 2, Normalize: NormalizeKey}
}

// RangeSchema selects the contiguous value columns [first, last].
func RangeSchema(keyColumn, first, last, minColumns int) Schema {
	cols := make([]int, 0, last-first+1)
	for c := first; c <= last; c++ {
		cols = append(cols, c)
	}
	return Schema{KeyColumn: keyColumn, ValueColumns: cols, MinColumns: minColumns, Normalize: NormalizeKey}
}

// Check reports schema definitions that can never produce a record.
func (s Schema) Check() error {
	if s.KeyColumn < 0 {
		return fmt.Errorf("key column must be non-negative, got %d", s.KeyColumn)
	}
	if len(s.ValueColumns) == 0 {
		return fmt.Errorf("schema needs at least one value column")
	}
	for _, c := range s.ValueColumns {
		if c < 0 {
			return fmt.Errorf("value column must be non-negative, got %d", c)
		}
	}
	return nil
}

func (s Schema) requiredColumns() int {
	required := s.MinColumns
	if s.KeyColumn+1 > required {
		required = s.KeyColumn + 1
	}
	for _, c := range s.ValueColumns {
		if c+1 > required {
			required = c + 1
		}
	}
	return required
}

// Validate projects a parsed row onto the schema.
// It fails with a *RowError wrapping ErrMalformedRow or ErrInvalidNumber.
func (s Schema) Validate(row []string) (Record, error) {
	if need := s.requiredColumns(); len(row) < need {
		return Record{}, &RowError{
			Column: -1,
			Err:    fmt.Errorf("%w: need %d columns, got %d", ErrMalformedRow, need, len(row)),
		}
	}

	normalize := s.Normalize
	if normalize == nil {
		normalize = NormalizeKey
	}
	key := normalize(row[s.KeyColumn])
	if key == "" {
		return Record{}, &RowError{
			Column: s.KeyColumn,
			Err:    fmt.Errorf("%w: empty key", ErrMalformedRow),
		}
	}

	values := make([]float64, len(s.ValueColumns))
	for i, c := range s.ValueColumns {
		v, err := parseNumber(row[c])
		if err != nil {
			return Record{}, &RowError{Column: c, Value: row[c], Err: err}
		}
		values[i] = v
	}

	return Record{Key: key, Values: values}, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidNumber, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite value", ErrInvalidNumber)
	}
	return v, nil
}
