package catalog

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

/*
memCatalog is an in-memory implementation of the catalog interface. It is only
suitable for usage in testing.
*/

////////////////////////////////////////////////////////////////////////////////

type memCatalog struct {
	entries []Entry
	mtx     *sync.RWMutex
}

// NewMemCatalog returns an empty in-memory catalog.
func NewMemCatalog() Catalog {
	return &memCatalog{
		entries: []Entry{},
		mtx:     &sync.RWMutex{},
	}
}

func (c *memCatalog) Put(_ context.Context, e Entry) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, existing := range c.entries {
		if existing.Name == e.Name && existing.ID == e.ID {
			return ErrEntryExists
		}
	}
	c.entries = append(c.entries, e)
	return nil
}

func (c *memCatalog) Get(_ context.Context, name string, id string) (Entry, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	for _, e := range c.entries {
		if e.Name == name && e.ID == id {
			return e, nil
		}
	}
	return Entry{}, EntryNotFoundError{Name: name, ID: id}
}

func (c *memCatalog) Latest(_ context.Context, name string) (Entry, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	var latest *Entry
	for i, e := range c.entries {
		if e.Name == name && (latest == nil || e.PushedAt.After(latest.PushedAt)) {
			latest = &c.entries[i]
		}
	}
	if latest == nil {
		return Entry{}, EntryNotFoundError{Name: name}
	}
	return *latest, nil
}

func (c *memCatalog) List(_ context.Context, pattern string) ([]Entry, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	result := []Entry{}
	for _, e := range c.entries {
		ok, err := match(pattern, e.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, e)
		}
	}
	slices.SortFunc(result, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), a.PushedAt.Compare(b.PushedAt))
	})
	return result, nil
}

func (c *memCatalog) Delete(_ context.Context, name string, id string) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.entries = slices.DeleteFunc(c.entries, func(e Entry) bool {
		return e.Name == name && e.ID == id
	})
	return nil
}
