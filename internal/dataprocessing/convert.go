package dataprocessing

import (
	"fmt"
	"math"
)

// MonthsPerYear converts monthly figures to yearly ones.
const MonthsPerYear = 12

// Transform is a deterministic scalar conversion.
type Transform func(float64) float64

// Scale multiplies by a constant factor.
func Scale(factor float64) Transform {
	return func(v float64) float64 { return v * factor }
}

// MonthlyToYearly turns a monthly amount into a yearly one.
var MonthlyToYearly = Scale(MonthsPerYear)

// Convert returns a copy of rec with value column col replaced by fn(value).
// rec itself is left untouched.
func Convert(rec Record, col int, fn Transform) (Record, error) {
	if col < 0 || col >= rec.Width() {
		return Record{}, fmt.Errorf("convert: column %d out of range for record %q with %d values", col, rec.Key, rec.Width())
	}
	if fn == nil {
		return rec.clone(), nil
	}

	out := rec.clone()
	v := fn(out.Values[col])
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Record{}, &RowError{Column: col, Err: fmt.Errorf("%w: conversion of %v is not finite", ErrInvalidNumber, rec.Values[col])}
	}
	out.Values[col] = v
	return out, nil
}
