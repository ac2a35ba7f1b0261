package store

import (
	"context"
	"io"
)

// Store persists debug artifacts produced by a comparison run.
type Store interface {
	// Put writes the contents of r under key, a slash separated relative path.
	Put(ctx context.Context, key string, r io.Reader) (Resource, error)
	Cleanup(ctx context.Context) error
}

type Resource interface {
	// Location is a URL or path an operator can use to find the artifact.
	Location() string
	Reader(ctx context.Context) (io.ReadCloser, error)
	MarkForCleanup(ctx context.Context) error
}
