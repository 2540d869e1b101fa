// Package metadata is the client's durable key/value table. The session
// store keeps the bearer token and the user profile here.
package metadata

import (
	"context"
)

// Repository reads and writes opaque values by key. A missing key is not an
// error: Get returns (nil, nil) and GetMany omits it.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}
