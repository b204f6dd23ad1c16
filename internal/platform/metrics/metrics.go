// Package metrics owns the process-wide Prometheus registry and the
// /metrics handler.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is a private registry so tests and multiple servers in one
// process never collide on the global default.
type Registry struct {
	*prometheus.Registry
}

// New creates a registry preloaded with Go runtime and process collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{Registry: reg}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// RegisterDB exports connection pool statistics for db under dbName.
func (r *Registry) RegisterDB(db *sql.DB, dbName string) error {
	return r.Register(collectors.NewDBStatsCollector(db, dbName))
}
