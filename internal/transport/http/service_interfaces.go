package http

import (
	"context"

	"costcompare/internal/comparison"
	"costcompare/internal/store"
)

// ComparisonService defines the comparison operations used by the handlers
type ComparisonService interface {
	Compare(ctx context.Context, state, nationality string) (comparison.Comparison, error)
	CostBreakdown(state string) ([]comparison.CostCategory, error)
	States() []string
	Countries() []string
}

// DatasetProvider exposes the loaded reference tables for health reporting
type DatasetProvider interface {
	Dataset() *comparison.Dataset
}

// LoadLister reads the table load history
type LoadLister interface {
	ListLoads(ctx context.Context, limit int) ([]store.LoadRecord, error)
}
