package storage

import "context"

// Store is the durable write-once upload port. Upload persists the bytes
// under the given key and returns a stable public reference for them.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
