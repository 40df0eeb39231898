package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/routes"
	"github.com/wkalt/ckpt/util/log"
)

/*
The registry owns the indexes served from a data directory. Every
subdirectory holding a B-tree file is an index, named by its path relative to
the data directory. Indexes are opened on first use and disposed when the
registry is closed, which commits them.
*/

////////////////////////////////////////////////////////////////////////////////

// Registry opens and caches the indexes under a data directory.
type Registry struct {
	dir  string
	tt   *checkpoint.TraceType
	opts []index.Option

	open map[string]index.Index
	mtx  *sync.Mutex
}

// NewRegistry returns a registry over the indexes in dir, all of trace type
// tt.
func NewRegistry(dir string, tt *checkpoint.TraceType, opts ...index.Option) *Registry {
	return &Registry{
		dir:  dir,
		tt:   tt,
		opts: opts,
		open: make(map[string]index.Index),
		mtx:  &sync.Mutex{},
	}
}

// Names lists the indexes on disk, sorted.
func (r *Registry) Names(_ context.Context) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(r.dir), "**/"+index.BTreeFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		if name := path.Dir(match); name != "." {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Get returns the named index, opening it on first use. Names that do not
// refer to an existing index directory return routes.ErrIndexNotFound; the
// registry never creates indexes.
func (r *Registry) Get(ctx context.Context, name string) (index.Index, error) {
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%w: %s", routes.ErrIndexNotFound, name)
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if idx, ok := r.open[name]; ok {
		return idx, nil
	}
	dir := filepath.Join(r.dir, filepath.FromSlash(name))
	if _, err := os.Stat(filepath.Join(dir, index.BTreeFileName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", routes.ErrIndexNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat index: %w", err)
	}
	ctx = log.AddTags(ctx, "index", name)
	idx, err := index.Open(ctx, r.tt, append(r.opts, index.WithDirectory(dir))...)
	if err != nil {
		return nil, err
	}
	if idx.CreatedFromScratch() {
		log.Warnw(ctx, "served index was not committed and has been reset")
	}
	r.open[name] = idx
	log.Infow(ctx, "opened index", "checkpoints", idx.Size())
	return idx, nil
}

// Close disposes every open index.
func (r *Registry) Close(ctx context.Context) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	errs := make([]error, 0, len(r.open))
	for name, idx := range r.open {
		if err := idx.Dispose(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to dispose %s: %w", name, err))
		}
		delete(r.open, name)
	}
	return errors.Join(errs...)
}
