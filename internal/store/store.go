// Package store provides small byte-oriented key-value stores used for client-side
// persistence. Providers register themselves by name (memory, bolt, redis) and are
// created through New.
package store

import "github.com/rs/zerolog"

// Store is a key-value store holding opaque byte values.
type Store interface {
	// Get retrieves a value by key. Returns the value and true if found, or nil and false if not.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given key, overwriting any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Contains checks whether a key exists without refreshing its recency.
	Contains(key string) bool

	// Len returns the number of entries currently stored.
	Len() int

	// Close releases any resources held by the store (file handles, connections).
	Close() error
}

// Logger receives errors that read paths cannot return to their caller.
type Logger interface {
	Error(msg string, err error)
}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	Logger zerolog.Logger
}

func (l ZerologLogger) Error(msg string, err error) {
	l.Logger.Error().Err(err).Msg(msg)
}
