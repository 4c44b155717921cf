package domain

import "errors"

var (
	// ErrValidation marks requests that cannot be corrected by retrying.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks lookups for unknown leads, emails, entries or tasks.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks state transitions rejected by the current record status.
	ErrConflict = errors.New("conflict")

	// ErrRetryExhausted marks operations that failed permanently after the
	// backoff budget was spent.
	ErrRetryExhausted = errors.New("retry budget exhausted")
)
