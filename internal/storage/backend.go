package storage

import "context"

// ObjectStore captures the minimal object operations the pipeline needs
// against a backend. Keys are slash-separated "<layer>/<filename>" paths
// relative to the backend's data root.
//
// Implementations must be safe for concurrent use; the store issues no
// coordination of its own.
type ObjectStore interface {
	// List returns the keys of all objects whose key starts with prefix.
	// A prefix with no matches yields an empty slice, not an error.
	List(ctx context.Context, prefix string) ([]string, error)

	// Get retrieves the full payload stored at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the payload at key, overwriting any previous object.
	Put(ctx context.Context, key string, data []byte) error

	// Location renders the key as a caller-facing path or URI.
	Location(key string) string
}
