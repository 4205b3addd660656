// Package blob stores attachment bytes outside the relational store.
package blob

import (
	"bytes"
	"context"
)

// Store persists raw attachment content under a caller-chosen key and
// returns an opaque storage reference for the metadata row.
type Store interface {
	// Put writes content under key and returns the storage reference.
	Put(ctx context.Context, key, contentType string, content []byte) (string, error)

	// Name returns the human-readable name of this backend.
	Name() string
}

func reader(content []byte) *bytes.Reader {
	return bytes.NewReader(content)
}
