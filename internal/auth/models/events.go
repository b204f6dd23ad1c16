package models

// ChangeEventType names an authentication state change emitted by the
// identity service. Values match the identity service's wire names.
type ChangeEventType string

const (
	EventInitialSession ChangeEventType = "INITIAL_SESSION"
	EventSignedIn       ChangeEventType = "SIGNED_IN"
	EventSignedOut      ChangeEventType = "SIGNED_OUT"
	EventTokenRefreshed ChangeEventType = "TOKEN_REFRESHED"
	EventUserUpdated    ChangeEventType = "USER_UPDATED"
)

func (t ChangeEventType) String() string {
	return string(t)
}

// ChangeEvent carries the session that resulted from the change. Session is
// nil for SIGNED_OUT.
type ChangeEvent struct {
	Type    ChangeEventType
	Session *Session
}

// ClearsState reports whether the event leaves the console without a session.
// A session that names no identity counts as none.
func (e ChangeEvent) ClearsState() bool {
	return e.Type == EventSignedOut || e.Session.IdentityID() == ""
}
