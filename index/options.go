package index

/*
Options for opening checkpoint collections.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	// DefaultTargetNodeSize is the on-disk node size the B-tree degree is
	// derived from when no degree is given.
	DefaultTargetNodeSize = 4096

	// DefaultNodeCacheSize is the number of B-tree nodes kept in memory,
	// excluding the root.
	DefaultNodeCacheSize = 64

	// minNodeCacheSize covers the nodes a single insert step holds at once.
	minNodeCacheSize = 4

	minDegree = 2
)

type config struct {
	directory      string
	degree         int
	targetNodeSize int
	nodeCacheSize  int
}

// Option is a function that modifies the collection configuration.
type Option func(*config)

// WithDirectory sets the directory persistent indexes are stored in. Without
// a directory, Open returns an in-memory index.
func WithDirectory(dir string) Option {
	return func(c *config) {
		c.directory = dir
	}
}

// WithDegree fixes the B-tree degree t (nodes hold 2t-1 checkpoints). It
// takes precedence over WithTargetNodeSize. A file written with one degree is
// rebuilt when reopened with another.
func WithDegree(degree int) Option {
	return func(c *config) {
		c.degree = degree
	}
}

// WithTargetNodeSize sets the on-disk node size, in bytes, that the B-tree
// degree is derived from.
func WithTargetNodeSize(size int) Option {
	return func(c *config) {
		c.targetNodeSize = size
	}
}

// WithNodeCacheSize sets the number of B-tree nodes cached in memory.
func WithNodeCacheSize(n int) Option {
	return func(c *config) {
		c.nodeCacheSize = n
	}
}

func newConfig(opts []Option) config {
	c := config{
		targetNodeSize: DefaultTargetNodeSize,
		nodeCacheSize:  DefaultNodeCacheSize,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.nodeCacheSize < minNodeCacheSize {
		c.nodeCacheSize = minNodeCacheSize
	}
	return c
}

// degreeFor returns the configured degree, or the largest degree whose node
// fits in the target node size.
func (c config) degreeFor(checkpointSize int) int {
	if c.degree > 0 {
		return max(c.degree, minDegree)
	}
	// 8*2t child offsets + 4 byte count + (2t-1) checkpoint slots.
	t := (c.targetNodeSize - 4 + checkpointSize) / (16 + 2*checkpointSize)
	return max(t, minDegree)
}
