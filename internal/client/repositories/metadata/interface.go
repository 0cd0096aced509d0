// Package metadata is the device-local key/value store. It plays the role
// the mobile app gives to its async storage: the cached session and the
// identity fallbacks live here.
package metadata

import (
	"context"
)

// Repository is a string-keyed byte store.
//
// Get returns (nil, nil) for a missing key. Set upserts. Delete of a missing
// key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
