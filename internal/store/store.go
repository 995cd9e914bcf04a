// Package store holds the Postgres repositories for the royalty
// pipeline. Every mutation that depends on a row's current state runs
// inside a transaction with the row locked FOR UPDATE.
package store

import "errors"

var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("RECORD_NOT_FOUND")

	// ErrInvalidTransition indicates a status move the state machine forbids.
	ErrInvalidTransition = errors.New("INVALID_STATUS_TRANSITION")

	// ErrDuplicate indicates a row already exists for a unique key.
	ErrDuplicate = errors.New("DUPLICATE_RECORD")
)
