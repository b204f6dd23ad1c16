package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authHandler "adminconsole/internal/auth/handler"
	"adminconsole/internal/platform/health"
	"adminconsole/pkg/platform/middleware/request"
)

// corsMaxAge is how long browsers may cache a preflight answer, in seconds.
const corsMaxAge = 300

// Deps collects what the router mounts. Health, Metrics, RequestMetrics and
// CORSAllowedOrigins are optional.
type Deps struct {
	Auth           *authHandler.Handler
	Health         *health.Handler
	Metrics        http.Handler
	RequestMetrics *request.Metrics
	Logger         *slog.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64

	CORSAllowedOrigins []string
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	if len(d.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(d.CORSAllowedOrigins)))
	}
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(request.Latency(d.RequestMetrics, routePattern))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(chimw.Timeout(d.RequestTimeout))
		}
		r.Use(request.BodyLimit(d.MaxBodyBytes))
		r.Use(request.ContentTypeJSON)
		d.Auth.Register(r)
	})

	return r
}

// corsOptions lets a browser console on another origin call the API with
// its cookies and read the request id.
func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
