package service

import (
	"log/slog"

	"github.com/wkalt/ckpt/storage"
)

// Option is a functional option for the ckpt service.
type Option func(*Options)

// Options contains options for the ckpt service.
type Options struct {
	DataDir            string
	DatabasePath       string
	Port               int
	LogLevel           slog.Level
	TraceType          string
	CheckpointInterval int64
	NodeCacheSize      int
	AllowedOrigins     []string
	StorageProvider    storage.Provider
}

// WithDataDir sets the directory indexes are served from.
func WithDataDir(dir string) Option {
	return func(opts *Options) {
		opts.DataDir = dir
	}
}

// WithDatabasePath sets the location of the catalog database.
func WithDatabasePath(path string) Option {
	return func(opts *Options) {
		opts.DatabasePath = path
	}
}

// WithPort sets the port to listen on.
func WithPort(port int) Option {
	return func(opts *Options) {
		opts.Port = port
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level slog.Level) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// WithTraceType sets the trace type of the served indexes.
func WithTraceType(name string) Option {
	return func(opts *Options) {
		opts.TraceType = name
	}
}

// WithCheckpointInterval sets the default number of events between
// checkpoints, used when a seek does not specify one.
func WithCheckpointInterval(interval int64) Option {
	return func(opts *Options) {
		opts.CheckpointInterval = interval
	}
}

// WithNodeCacheSize sets the B-tree node cache size of each open index.
func WithNodeCacheSize(n int) Option {
	return func(opts *Options) {
		opts.NodeCacheSize = n
	}
}

// WithAllowedOrigins sets the CORS allowed origins.
func WithAllowedOrigins(origins []string) Option {
	return func(opts *Options) {
		opts.AllowedOrigins = origins
	}
}

// WithStorageProvider sets the object store pushes are pulled from at
// startup.
func WithStorageProvider(store storage.Provider) Option {
	return func(opts *Options) {
		opts.StorageProvider = store
	}
}
