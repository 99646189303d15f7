// Package store persists the history of table loads in a local SQLite
// database (pure Go driver, no cgo). Each startup load of the salary, cost
// and cost detail tables becomes one row, which the /api/loads endpoint
// lists newest first.
package store
