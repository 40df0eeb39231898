package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

/*
The catalog records the index pushes made to an object store: which trace
name each push belongs to, where it lives, and a summary of its header. Pulls
resolve a trace name to its latest push through the catalog, so that readers
do not need to list the object store.

The catalog is advisory. The object store remains the source of truth, and a
catalog can be rebuilt from the manifests it holds.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrEntryExists is returned when recording a push twice.
var ErrEntryExists = errors.New("catalog entry already exists")

// Entry describes one push.
type Entry struct {
	Name        string    `json:"name"`
	ID          string    `json:"id"`
	Prefix      string    `json:"prefix"`
	Store       string    `json:"store"`
	Checkpoints int64     `json:"checkpoints"`
	NbEvents    int64     `json:"nbEvents"`
	PushedAt    time.Time `json:"pushedAt"`
}

// Catalog is a record of index pushes.
type Catalog interface {
	// Put records a push.
	Put(ctx context.Context, e Entry) error

	// Get returns the push of name with the given ID.
	Get(ctx context.Context, name string, id string) (Entry, error)

	// Latest returns the most recent push of name.
	Latest(ctx context.Context, name string) (Entry, error)

	// List returns the pushes whose name matches a doublestar glob pattern,
	// ordered by name and then push time. An empty pattern matches all.
	List(ctx context.Context, pattern string) ([]Entry, error)

	// Delete forgets a push.
	Delete(ctx context.Context, name string, id string) error
}

// EntryNotFoundError is returned when no push matches a lookup.
type EntryNotFoundError struct {
	Name string
	ID   string
}

func (e EntryNotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("no pushes of %s", e.Name)
	}
	return fmt.Sprintf("push %s of %s not found", e.ID, e.Name)
}

func (e EntryNotFoundError) Is(target error) bool {
	_, ok := target.(EntryNotFoundError)
	return ok
}

func match(pattern string, name string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return ok, nil
}
