// Package storage defines the byte-oriented key-value store abstraction
// that annotation state is persisted against.
package storage

import "errors"

// ErrKeyNotFound is returned by Get when the key has never been written.
var ErrKeyNotFound = errors.New("storage: key not found")

// Provider is the interface for key-value byte storage.
//
// Set failures are best-effort from the caller's point of view: losing a
// highlight write is preferable to crashing the reader, so callers log
// and carry on with their in-memory state.
type Provider interface {
	// Get returns the bytes stored under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Set writes value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error
	// Keys returns every stored key.
	Keys() ([]string, error)
}
