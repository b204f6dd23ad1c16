package authctx

import "adminconsole/internal/auth/models"

// Phase is the position of a Context in its lifecycle.
type Phase int

const (
	// PhaseUninitialized is the state before Start.
	PhaseUninitialized Phase = iota
	// PhaseRestoring means the persisted-session lookup is in flight.
	PhaseRestoring
	// PhaseSignedOut is ready with no identity.
	PhaseSignedOut
	// PhaseResolving is ready with an identity whose profile is not loaded yet.
	PhaseResolving
	// PhaseReady is ready with an identity and its resolved profile. The
	// profile may still be nil if resolution failed, which denies admin access.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseRestoring:
		return "restoring"
	case PhaseSignedOut:
		return "signed_out"
	case PhaseResolving:
		return "resolving"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the authorization state.
type State struct {
	Phase    Phase
	Identity *models.Identity
	Profile  *models.Profile
	Session  *models.Session

	// Loading is true until the first resolution finishes. It never turns
	// true again.
	Loading bool

	// SessionChecked turns true once the startup session lookup returned,
	// regardless of profile resolution. Rendering is gated on it.
	SessionChecked bool
}

// SignedIn reports whether the snapshot carries an identity.
func (s State) SignedIn() bool {
	return s.Identity != nil
}

// IdentityID returns the current identity id or "".
func (s State) IdentityID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

func (s State) clone() State {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	return out
}
