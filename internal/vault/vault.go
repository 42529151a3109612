// Package vault abstracts the secret store used to cache resolved discovery
// endpoints. The service only ever needs get/set/exists.
package vault

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested secret does not exist.
var ErrNotFound = errors.New("secret not found")

// SecretStore is the minimal contract for a durable keyed secret backend.
type SecretStore interface {
	// Get returns the secret value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set idempotently upserts key to value.
	Set(ctx context.Context, key, value string) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
