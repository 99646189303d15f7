package comparison

import "errors"

var (
	// ErrStateNotFound means the cost table has no entry for the state.
	ErrStateNotFound = errors.New("state not found")
	// ErrNationalityNotFound means the salary table has no entry for the nationality.
	ErrNationalityNotFound = errors.New("nationality not found")
	// ErrMissingKey is returned for a blank state or nationality.
	ErrMissingKey = errors.New("missing lookup key")
	// ErrInvalidCost guards the ratio against a zero or negative cost.
	ErrInvalidCost = errors.New("cost of living must be positive")
	// ErrDatasetNotLoaded is returned by a Service built without tables.
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
)
