package ingest

import (
	"errors"
	"fmt"
)

// Terminal rejections. The webhook boundary maps these to "do not retry"
// responses so the provider's bounce semantics apply.
var (
	// ErrMalformedPayload means the adapter output is missing required
	// fields (recipient address, identifier, or received time).
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrScopeNotFound means the recipient does not map to a verified
	// domain.
	ErrScopeNotFound = errors.New("scope not found")

	// ErrScopeDisabled means the recipient maps to an alias that exists
	// but is disabled.
	ErrScopeDisabled = errors.New("scope disabled")
)

// ErrMessageExists is returned by MessageStore.InsertMessage when the
// (scope, normalized ID) pair is already taken. The coordinator treats
// it as "someone else just created it" and re-reads.
var ErrMessageExists = errors.New("message already exists")

// StorageError wraps a transient store failure. The whole ingest call is
// safely retryable end to end, so the webhook boundary maps it to a
// "retry later" response.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is a transient infrastructure
// failure rather than a terminal rejection.
func IsRetryable(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
