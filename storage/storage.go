package storage

import (
	"context"
	"errors"
	"io"
)

/*
Package storage provides object stores that checkpoint index files are
archived to. Objects are addressed by slash-separated names.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Provider is an object store.
type Provider interface {
	// Put stores the contents of r under id, replacing any existing object.
	Put(ctx context.Context, id string, r io.Reader) error

	// Get returns the object stored under id.
	Get(ctx context.Context, id string) (io.ReadCloser, error)

	// GetRange returns length bytes of the object starting at offset.
	GetRange(ctx context.Context, id string, offset int, length int) (io.ReadSeekCloser, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the names of the objects starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	String() string
}
