// Package shared holds code used by more than one package that belongs to
// no single layer. Today that is only the testutil subpackage: reference data
// fixtures and a log capturing slog handler for tests.
package shared
