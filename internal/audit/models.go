package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email,omitempty"`
	Action     string    `json:"action"`
	Decision   string    `json:"decision,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventSignInSucceeded AuditEvent = "sign_in_succeeded"
	EventSignInFailed    AuditEvent = "sign_in_failed"
	EventSignedOut       AuditEvent = "signed_out"
	EventProfileCreated  AuditEvent = "profile_created"
	EventProfilePromoted AuditEvent = "profile_promoted"
	EventAdminGranted    AuditEvent = "admin_granted_on_sign_in"
)

func (e AuditEvent) String() string {
	return string(e)
}
