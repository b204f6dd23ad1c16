package service

import (
	"context"

	"adminconsole/internal/audit"
	"adminconsole/internal/auth/models"
	"adminconsole/pkg/platform/tracer"
)

const (
	signInSucceeded = "success"
	signInFailed    = "failure"
)

// SignIn exchanges an email/password pair for a session. The identity
// service persists the session and emits SIGNED_IN itself; SignIn only
// reports the outcome. It never returns an error: failures become
// SignInResult{Success: false, Error: message}.
func (s *Service) SignIn(ctx context.Context, email, password string) models.SignInResult {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSignIn,
		tracer.String(tracer.AttrEmailHash, tracer.HashEmail(email)),
	)

	session, err := s.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		span.End(err)
		s.incrementSignIns(signInFailed)
		s.logAudit(ctx, audit.EventSignInFailed,
			"email", email,
			"decision", "denied",
			"reason", signInReason(err),
		)
		return models.SignInResult{Error: signInMessage(err)}
	}
	if session == nil {
		span.End(nil)
		s.incrementSignIns(signInFailed)
		s.logger.WarnContext(ctx, "identity service returned no session for successful sign in")
		return models.SignInResult{Error: "sign in failed"}
	}

	identityID := session.IdentityID()
	span.SetAttributes(tracer.String(tracer.AttrIdentityID, identityID))
	s.incrementSignIns(signInSucceeded)
	s.logAudit(ctx, audit.EventSignInSucceeded,
		"identity_id", identityID,
		"email", email,
		"decision", "granted",
	)

	if s.cfg.GrantAdminOnSignIn && identityID != "" {
		s.grantAdminOnSignIn(ctx, identityID, email)
	}
	span.End(nil)
	return models.SignInResult{Success: true}
}

// grantAdminOnSignIn marks the signed-in identity as admin. A failed write
// is logged and does not fail the sign-in.
func (s *Service) grantAdminOnSignIn(ctx context.Context, identityID, email string) {
	grant := models.NewDefaultProfile(identityID, true, s.clock.Now())
	var err error
	s.writes.With(identityID, func() {
		_, err = s.profiles.Upsert(ctx, grant)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to grant admin on sign in",
			"identity_id", identityID,
			"error", err,
		)
		return
	}
	s.logAudit(ctx, audit.EventAdminGranted,
		"identity_id", identityID,
		"email", email,
		"decision", "granted",
	)
}

// PersistedSession returns the session restored by the identity service, or
// nil when there is none. Lookup failures are logged and treated as
// "signed out" so startup never hangs on them.
func (s *Service) PersistedSession(ctx context.Context) *models.Session {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPersistedSession)

	session, err := s.identity.GetSession(ctx)
	if err != nil {
		span.End(err)
		s.incrementSessionRestores("error")
		s.logger.WarnContext(ctx, "failed to restore persisted session", "error", err)
		return nil
	}
	span.End(nil)
	if session == nil {
		s.incrementSessionRestores("none")
		return nil
	}
	s.incrementSessionRestores("found")
	s.logger.DebugContext(ctx, "persisted session restored", "identity_id", session.IdentityID())
	return session
}

// OnChange registers fn for identity change events, delivered in emission
// order and never concurrently. The returned function unsubscribes.
func (s *Service) OnChange(fn func(models.ChangeEvent)) func() {
	return s.identity.OnAuthStateChange(fn)
}

// SignOut ends the session at the identity service. The error is returned for
// logging only; callers clear local state regardless.
func (s *Service) SignOut(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSignOut)

	err := s.identity.SignOut(ctx)
	span.End(err)
	s.incrementSignOuts()
	if err != nil {
		s.logger.WarnContext(ctx, "remote sign out failed", "error", err)
	}
	s.logAudit(ctx, audit.EventSignedOut, "decision", "signed_out")
	return err
}
