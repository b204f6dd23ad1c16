// Package tracer provides a lightweight tracing abstraction for the console.
//
// Services depend on the Tracer interface rather than OpenTelemetry directly,
// so tests can run with NoopTracer and production wires OTelTracer.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context carries the span and should be passed to child operations.
	//
	// Example:
	//   ctx, span := t.Start(ctx, tracer.SpanFetchProfile,
	//       tracer.String(tracer.AttrIdentityID, id),
	//   )
	//   defer span.End(nil)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashEmail returns a short SHA-256 digest of a normalized email address so
// sign-in spans can be correlated without carrying the address itself.
func HashEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the auth service.
const (
	SpanSignIn           = "auth.sign_in"
	SpanSignOut          = "auth.sign_out"
	SpanPersistedSession = "auth.persisted_session"
	SpanFetchProfile     = "auth.fetch_profile"
	SpanCheckAdmin       = "auth.check_admin"
)

// Attribute keys used by the auth service.
const (
	AttrIdentityID   = "identity.id"
	AttrEmailHash    = "identity.email_hash"
	AttrProfileFound = "profile.found"
	AttrIsAdmin      = "profile.is_admin"
	AttrPrivileged   = "identity.privileged"
	AttrDecision     = "admin.decision"
)

// Event names used by the auth service.
const (
	EventProfileCreated  = "profile.created"
	EventProfilePromoted = "profile.promoted"
	EventAdminRetry      = "admin.retry"
)
