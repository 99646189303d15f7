// Package exporter writes loaded reference tables back to CSV.
//
// CSVWriter resolves relative paths against a base directory and supports
// both one-shot writes and streaming. Scalar tables are written in the
// two-column key,value layout the loader reads, so an exported salary table
// with monthly figures already converted can replace the raw file. Vector
// tables are written with one labelled column per cost category.
//
// Example usage:
//
//	w := exporter.NewCSVWriter("data/exports", logger)
//	n, err := w.ExportScalarTable("salaries.csv", []string{"Country", "Salary"}, ds.Salaries)
package exporter
