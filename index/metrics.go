package index

import "github.com/prometheus/client_golang/prometheus"

// nodeCacheMetrics counts B-tree node cache activity across all open trees.
type nodeCacheMetrics struct {
	Hits       prometheus.Counter
	Misses     prometheus.Counter
	NodeReads  prometheus.Counter
	NodeWrites prometheus.Counter
}

func newNodeCacheMetrics() *nodeCacheMetrics {
	const (
		namespace = "ckpt"
		subsystem = "btree"
	)
	return &nodeCacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "node_cache_hits_total",
			Help:      "Count of node lookups served from the node cache",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "node_cache_misses_total",
			Help:      "Count of node lookups that went to disk",
		}),
		NodeReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "node_reads_total",
			Help:      "Count of nodes read from index files",
		}),
		NodeWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "node_writes_total",
			Help:      "Count of nodes written to index files",
		}),
	}
}

var metrics = newNodeCacheMetrics()

// PrometheusCollectors returns the index metrics for registration.
func PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		metrics.Hits,
		metrics.Misses,
		metrics.NodeReads,
		metrics.NodeWrites,
	}
}
