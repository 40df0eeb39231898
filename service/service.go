package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite catalog
	"github.com/wkalt/ckpt/archive"
	"github.com/wkalt/ckpt/catalog"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/routes"
	"github.com/wkalt/ckpt/storage"
	"github.com/wkalt/ckpt/util/log"
)

/*
This file is the main entrypoint for ckpt server startup.
*/

////////////////////////////////////////////////////////////////////////////////

// Ckpt is the seek server.
type Ckpt struct{}

// NewCkptService creates a new ckpt service.
func NewCkptService() *Ckpt {
	return &Ckpt{}
}

// Start starts the service and blocks until it is interrupted.
func (c *Ckpt) Start(ctx context.Context, options ...Option) error { //nolint:funlen
	opts, err := readOpts(options...)
	if err != nil {
		return fmt.Errorf("failed to read options: %w", err)
	}
	slog.SetLogLoggerLevel(opts.LogLevel)
	log.Debugf(ctx, "Debug logging enabled")

	tt, err := checkpoint.LookupTraceType(opts.TraceType)
	if err != nil {
		return err
	}
	dbpath := opts.DatabasePath + "?_journal=WAL&mode=rwc"
	log.Infof(ctx, "Opening catalog at %s", dbpath)
	db, err := sql.Open("sqlite3", dbpath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database at %s: %w", dbpath, err)
	}
	cat, err := catalog.NewSQLCatalog(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	if err := os.MkdirAll(opts.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if opts.StorageProvider != nil {
		if err := SyncPushes(ctx, cat, opts.StorageProvider, opts.DataDir); err != nil {
			return err
		}
	}
	registry := NewRegistry(opts.DataDir, tt, index.WithNodeCacheSize(opts.NodeCacheSize))
	defer func() {
		if err := registry.Close(ctx); err != nil {
			log.Errorw(ctx, "failed to close indexes", "error", err)
		}
	}()

	r := routes.MakeRoutes(routes.Config{
		Indexes:        registry,
		Catalog:        cat,
		Interval:       opts.CheckpointInterval,
		AllowedOrigins: opts.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigint := make(chan os.Signal, 1)
	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)
	signal.Notify(sigterm, syscall.SIGTERM)

	startErr := make(chan error)
	go func() {
		log.Infow(ctx, "Starting server", "port", opts.Port, "data", opts.DataDir, "trace_type", tt)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startErr <- err
		}
	}()

	select {
	case <-sigint:
		log.Infof(ctx, "Received SIGINT")
	case <-sigterm:
		log.Infof(ctx, "Received SIGTERM")
	case err := <-startErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Infof(ctx, "Allowing 10 seconds for existing connections to close")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	errs := make(chan error)
	success := make(chan bool)

	go func() {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs <- err
		} else {
			log.Infof(ctx, "Server stopped")
			success <- true
		}
	}()

	select {
	case <-sigint:
		return errors.New("forceful shutdown on second interrupt")
	case err := <-errs:
		return fmt.Errorf("server shutdown failed: %w", err)
	case <-success:
		return nil
	}
}

// SyncPushes pulls the latest push of every cataloged name that has no local
// index under dir.
func SyncPushes(ctx context.Context, cat catalog.Catalog, store storage.Provider, dir string) error {
	entries, err := cat.List(ctx, "")
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		local := filepath.Join(dir, filepath.FromSlash(e.Name))
		if _, err := os.Stat(filepath.Join(local, index.BTreeFileName)); err == nil {
			continue
		}
		latest, err := cat.Latest(ctx, e.Name)
		if err != nil {
			return err
		}
		if _, err := archive.Pull(ctx, store, latest.Prefix, local); err != nil {
			return fmt.Errorf("failed to pull %s: %w", e.Name, err)
		}
	}
	return nil
}

func readOpts(opts ...Option) (*Options, error) {
	options := Options{
		DataDir:            "data",
		DatabasePath:       "ckpt.db",
		Port:               8089,
		LogLevel:           slog.LevelInfo,
		TraceType:          "long",
		CheckpointInterval: 1000,
		NodeCacheSize:      index.DefaultNodeCacheSize,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8080",
		},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.CheckpointInterval < 1 {
		return nil, fmt.Errorf("invalid checkpoint interval: %d", options.CheckpointInterval)
	}
	return &options, nil
}
