package request

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"adminconsole/internal/platform/privacy"
	"adminconsole/pkg/platform/httputil"
	"adminconsole/pkg/requestcontext"
)

// DefaultMaxClients bounds how many client addresses a RateLimiter tracks.
// The least recently seen address is forgotten first.
const DefaultMaxClients = 10_000

// RateLimiter throttles requests per client address with a token bucket.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	logger  *slog.Logger
	mu      sync.Mutex
	clients *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter allows requestsPerMinute per client address with a burst of
// a tenth of that (at least 1). It returns nil when requestsPerMinute <= 0,
// and a nil limiter lets everything through.
func NewRateLimiter(requestsPerMinute, maxClients int, logger *slog.Logger) (*RateLimiter, error) {
	if requestsPerMinute <= 0 {
		return nil, nil
	}
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	if logger == nil {
		logger = slog.Default()
	}
	clients, err := lru.New[string, *rate.Limiter](maxClients)
	if err != nil {
		return nil, fmt.Errorf("rate limiter cache: %w", err)
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   max(requestsPerMinute/10, 1),
		logger:  logger,
		clients: clients,
	}, nil
}

// Allow reports whether key may make another request now.
func (l *RateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.limiterFor(key).Allow()
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.clients.Get(key); ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.clients.Add(key, limiter)
	return limiter
}

// Middleware answers 429 once the caller's address is over budget. It keys
// on the client address stored by RequestID.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := requestcontext.ClientIP(ctx)
		if key == "" {
			key = clientIP(r)
		}
		if !l.Allow(key) {
			l.logger.WarnContext(ctx, "request rate limited",
				"path", r.URL.Path,
				"remote_addr_prefix", privacy.AnonymizeIP(key),
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limited",
				"error_description": "too many requests, slow down",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) retryAfterSeconds() int {
	if l.limit <= 0 {
		return 60
	}
	return max(int(1/float64(l.limit)), 1)
}
