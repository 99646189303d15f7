// Package dataprocessing turns raw salary and cost-of-living files into
// immutable lookup tables.
//
// # Architecture
//
// A load is a single pass through five stages:
//
//  1. Row parsing: ParseLine splits a line, honouring double-quoted fields
//  2. Validation: Schema.Validate projects a row onto a Record or rejects it
//  3. Conversion: Convert applies a Transform such as MonthlyToYearly
//  4. Aggregation: ScalarAggregator and VectorAggregator keep running sums per key
//  5. Lookup: the finalized means become a read-only LookupTable
//
// # Usage
//
// Loading the salary table from a monthly source:
//
//	src := dataprocessing.OpenSource("data/salaries.csv", ',')
//	table, stats, err := dataprocessing.LoadScalarTable(ctx, src, dataprocessing.ScalarOptions{
//	    LoadOptions: dataprocessing.LoadOptions{Table: "salary", Logger: logger},
//	    Convert:     dataprocessing.MonthlyToYearly,
//	})
//	if err != nil {
//	    return err
//	}
//	salary, ok := dataprocessing.Lookup(table, "Germany")
//
// # Error Handling
//
// Row-level failures (ErrMalformedRow, ErrInvalidNumber) never abort a load;
// they are counted in LoadStats and the first few are logged at WARN.
// ErrSourceUnavailable, ErrSchemaMismatch, and context cancellation abort the
// load and no table is returned.
//
// # Concurrency
//
// With LoadOptions.Workers > 1 rows are validated on several goroutines and
// folded into mutex-guarded aggregators. A finished LookupTable is never
// modified and can be shared freely.
package dataprocessing
