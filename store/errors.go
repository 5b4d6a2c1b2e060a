package store

import "github.com/pkg/errors"

// Sentinel errors for the storage and query layer. Callers branch with
// errors.Is; wrapped messages carry the detail.
var (
	// ErrNotFound is returned by point lookups when no record matches.
	// An empty search result is not an error and never maps to ErrNotFound.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidQuery is returned for malformed query input: wrong vector
	// dimensionality, zero-length vectors where one is required, or k < 1.
	// Never retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnavailable is returned when the underlying storage cannot be
	// reached. The store performs no retries; backoff belongs to the caller.
	ErrUnavailable = errors.New("store unavailable")
)
