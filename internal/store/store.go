// Package store persists session credentials across process restarts.
// Exactly two entries are stored: the session token and the serialized
// principal JSON.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no complete credential pair is
// persisted.
var ErrNotFound = errors.New("no stored credentials")

// Store is a durable two-entry credential store.
type Store interface {
	// Save persists the token and principal JSON, replacing any
	// previous pair.
	Save(ctx context.Context, token string, principal []byte) error
	// Load returns the persisted pair, or ErrNotFound when either
	// entry is missing.
	Load(ctx context.Context) (token string, principal []byte, err error)
	// Clear removes both entries. Clearing an empty store is not an
	// error.
	Clear(ctx context.Context) error
}
