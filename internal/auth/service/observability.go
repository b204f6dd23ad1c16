package service

import (
	"context"

	"adminconsole/internal/audit"
	"adminconsole/internal/platform/privacy"
	"adminconsole/pkg/requestcontext"
)

// Observability helpers for logging, auditing, and metrics.
// These methods are on *Service to access logger, auditPublisher, and metrics.

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := make([]any, 0, len(attributes)+4)
	for i := 0; i < len(attributes); i++ {
		args = append(args, attributes[i])
		if k, ok := attributes[i].(string); ok && k == "email" && i+1 < len(attributes) {
			email, _ := attributes[i+1].(string)
			args = append(args, privacy.MaskEmail(email))
			i++
		}
	}
	args = append(args, "event", event.String(), "log_type", "audit")
	s.logger.InfoContext(ctx, event.String(), args...)

	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		IdentityID: extractString(attributes, "identity_id"),
		Email:      extractString(attributes, "email"),
		Action:     event.String(),
		Decision:   extractString(attributes, "decision"),
		Reason:     extractString(attributes, "reason"),
		RequestID:  requestID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "event", event.String())
	}
}

// extractString returns the string value following key in a slog-style
// key/value list.
func extractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			if v, ok := attributes[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

func (s *Service) incrementSignIns(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementSignIns(outcome)
	}
}

func (s *Service) incrementSignOuts() {
	if s.metrics != nil {
		s.metrics.IncrementSignOuts()
	}
}

func (s *Service) incrementSessionRestores(result string) {
	if s.metrics != nil {
		s.metrics.IncrementSessionRestores(result)
	}
}

func (s *Service) incrementProfilesCreated() {
	if s.metrics != nil {
		s.metrics.IncrementProfilesCreated()
	}
}

func (s *Service) incrementProfilesPromoted() {
	if s.metrics != nil {
		s.metrics.IncrementProfilesPromoted()
	}
}

func (s *Service) incrementProfileResolveFailures() {
	if s.metrics != nil {
		s.metrics.IncrementProfileResolveFailures()
	}
}

func (s *Service) observeProfileFetchDuration(durationMs float64) {
	if s.metrics != nil {
		s.metrics.ObserveProfileFetchDuration(durationMs)
	}
}

func (s *Service) incrementAdminChecks(source string, isAdmin bool) {
	if s.metrics != nil {
		s.metrics.IncrementAdminChecks(source, isAdmin)
	}
}

func (s *Service) incrementAdminCheckRetries() {
	if s.metrics != nil {
		s.metrics.IncrementAdminCheckRetries()
	}
}
