package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wkalt/ckpt/catalog"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/util/mw"
)

/*
Package routes serves seeks against the checkpoint indexes of a data
directory over HTTP. Index names are paths relative to the data directory and
may contain slashes.

	GET /indexes                   summaries of the indexes on disk
	GET /indexes/{name}/seek?q=    resolve a seek request
	GET /pushes?pattern=           catalog entries matching a glob
	GET /metrics                   prometheus metrics
*/

////////////////////////////////////////////////////////////////////////////////

// ErrIndexNotFound is returned by Indexes implementations when no index of the
// requested name exists.
var ErrIndexNotFound = errors.New("index not found")

// Indexes provides the open indexes served by the routes.
type Indexes interface {
	// Names lists the index names available.
	Names(ctx context.Context) ([]string, error)

	// Get returns the index of the given name, opening it if needed.
	Get(ctx context.Context, name string) (index.Index, error)
}

// Config holds the dependencies of the routes.
type Config struct {
	Indexes  Indexes
	Catalog  catalog.Catalog
	Interval int64

	// AllowedOrigins lists the origins allowed by CORS.
	AllowedOrigins []string
}

// MakeRoutes builds the router. Each call registers its metrics with a fresh
// registry, so routers can be built repeatedly in tests.
func MakeRoutes(cfg Config) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(index.PrometheusCollectors()...)
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ckpt",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(duration)

	r := mux.NewRouter()
	timed := func(route string, h http.HandlerFunc) http.Handler {
		return mw.WithRequestDuration(duration, route)(h)
	}
	r.Handle("/indexes", timed("indexes", newIndexesHandler(cfg.Indexes))).Methods("GET")
	r.Handle("/indexes/{name:.+}/seek", timed("seek", newSeekHandler(cfg.Indexes, cfg.Interval))).Methods("GET")
	r.Handle("/pushes", timed("pushes", newPushesHandler(cfg.Catalog))).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
	r.Use(mw.WithRequestID)
	return mw.WithCORSAllowedOrigins(cfg.AllowedOrigins)(r)
}
