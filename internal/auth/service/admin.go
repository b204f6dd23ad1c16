package service

import (
	"context"
	"fmt"

	"adminconsole/internal/auth/metrics"
	"adminconsole/internal/auth/models"
	"adminconsole/pkg/platform/retry"
	"adminconsole/pkg/platform/sentinel"
	"adminconsole/pkg/platform/tracer"
)

// CheckAdminStatus answers whether identity is an admin. First match wins:
//
//  1. no identity: false
//  2. privileged identity: true, with a best-effort background write of is_admin=true
//  3. cached profile for this identity: its is_admin, with no store call
//  4. store read, retried once after AdminRetryDelay; false if both fail
//
// The answer may be stale relative to out-of-band changes to the store.
func (s *Service) CheckAdminStatus(ctx context.Context, identity *models.Identity, cached *models.Profile) bool {
	if identity == nil || identity.ID == "" {
		s.incrementAdminChecks(metrics.AdminSourceNoIdentity, false)
		return false
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanCheckAdmin,
		tracer.String(tracer.AttrIdentityID, identity.ID),
	)

	if s.IsPrivileged(identity.ID) {
		s.ensureAdmin(ctx, identity.ID)
		span.SetAttributes(tracer.String(tracer.AttrDecision, metrics.AdminSourcePrivileged))
		span.End(nil)
		s.incrementAdminChecks(metrics.AdminSourcePrivileged, true)
		return true
	}

	if cached != nil && cached.ID == identity.ID {
		span.SetAttributes(tracer.String(tracer.AttrDecision, metrics.AdminSourceCached))
		span.End(nil)
		s.incrementAdminChecks(metrics.AdminSourceCached, cached.IsAdmin)
		return cached.IsAdmin
	}

	attempt := 0
	policy := retry.Once(s.cfg.AdminRetryDelay).WithClock(s.clock)
	isAdmin, err := retry.Do(ctx, policy, func(ctx context.Context) (bool, error) {
		attempt++
		if attempt > 1 {
			span.AddEvent(tracer.EventAdminRetry)
			s.incrementAdminCheckRetries()
		}
		profile, err := s.profiles.FindByID(ctx, identity.ID)
		if err != nil {
			return false, err
		}
		if profile == nil {
			return false, fmt.Errorf("profile %s: %w", identity.ID, sentinel.ErrNotFound)
		}
		return profile.IsAdmin, nil
	})
	if err != nil {
		span.End(err)
		s.logger.WarnContext(ctx, "admin status unavailable, denying",
			"identity_id", identity.ID,
			"attempts", attempt,
			"reason", readFailureReason(err),
			"error", err,
		)
		s.incrementAdminChecks(metrics.AdminSourceFailed, false)
		return false
	}

	span.SetAttributes(
		tracer.String(tracer.AttrDecision, metrics.AdminSourceStore),
		tracer.Bool(tracer.AttrIsAdmin, isAdmin),
	)
	span.End(nil)
	s.incrementAdminChecks(metrics.AdminSourceStore, isAdmin)
	return isAdmin
}

// ensureAdmin writes is_admin=true for a privileged identity without making
// the caller wait. The write outlives the caller's context; failures are
// logged and do not affect the answer already given.
func (s *Service) ensureAdmin(ctx context.Context, identityID string) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundWriteTimeout)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		var err error
		s.writes.With(identityID, func() {
			_, err = s.profiles.Upsert(bg, models.NewDefaultProfile(identityID, true, s.clock.Now()))
		})
		if err != nil {
			s.logger.WarnContext(bg, "failed to persist privileged admin flag",
				"identity_id", identityID,
				"error", err,
			)
		}
	}()
}
