package index

import (
	"context"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util/log"
)

// Open returns the index for a trace of type tt. With a directory and a
// persistable trace type it is a BTreeIndex in that directory; otherwise it
// is a MemoryIndex.
func Open(ctx context.Context, tt *checkpoint.TraceType, opts ...Option) (Index, error) {
	cfg := newConfig(opts)
	if cfg.directory == "" {
		return NewMemoryIndex(), nil
	}
	if !tt.Persistable() {
		log.Infow(ctx, "trace type is not persistable, indexing in memory", "trace_type", tt.Name())
		return NewMemoryIndex(), nil
	}
	return NewBTreeIndex(ctx, cfg.directory, tt, opts...)
}
