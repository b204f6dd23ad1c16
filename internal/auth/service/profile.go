package service

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"adminconsole/internal/audit"
	"adminconsole/internal/auth/models"
	"adminconsole/pkg/platform/sentinel"
	"adminconsole/pkg/platform/tracer"
)

// FetchProfile resolves identityID to its profile, creating a default one
// when none exists and healing privileged identities back to admin. It
// returns nil only when the profile could neither be read nor created, or
// when ctx ends first.
//
// Concurrent calls for the same identity share one resolution, so a burst of
// change events creates at most one row. The shared resolution is detached
// from every caller's cancellation; each caller stops waiting on its own ctx.
func (s *Service) FetchProfile(ctx context.Context, identityID string) *models.Profile {
	if identityID == "" {
		return nil
	}
	s.background.Add(1)
	ch := s.resolving.DoChan(identityID, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), profileResolveTimeout)
		defer cancel()
		var profile *models.Profile
		s.writes.With(identityID, func() {
			profile = s.resolveProfile(flightCtx, identityID)
		})
		return profile, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
		s.background.Done()
	case <-ctx.Done():
		go func() {
			<-ch
			s.background.Done()
		}()
		return nil
	}
	profile, _ := res.Val.(*models.Profile)
	if profile == nil {
		return nil
	}
	// Callers sharing a flight must not alias each other's copy.
	cp := *profile
	return &cp
}

func (s *Service) resolveProfile(ctx context.Context, identityID string) *models.Profile {
	start := s.clock.Now()
	privileged := s.IsPrivileged(identityID)
	ctx, span := s.tracer.Start(ctx, tracer.SpanFetchProfile,
		tracer.String(tracer.AttrIdentityID, identityID),
		tracer.Bool(tracer.AttrPrivileged, privileged),
	)
	defer func() {
		s.observeProfileFetchDuration(float64(s.clock.Now().Sub(start).Milliseconds()))
	}()

	existing, err := s.profiles.FindByID(ctx, identityID)
	if err == nil && existing != nil {
		span.SetAttributes(tracer.Bool(tracer.AttrProfileFound, true))
		if privileged && !existing.IsAdmin {
			existing = s.promote(ctx, span, existing)
		}
		span.SetAttributes(tracer.Bool(tracer.AttrIsAdmin, existing.IsAdmin))
		span.End(nil)
		return existing
	}
	span.SetAttributes(tracer.Bool(tracer.AttrProfileFound, false))

	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "profile read failed, creating default profile",
			"identity_id", identityID,
			"reason", readFailureReason(err),
			"error", err,
		)
	}

	created, err := s.createDefault(ctx, span, identityID, privileged)
	if err != nil {
		span.End(err)
		s.incrementProfileResolveFailures()
		return nil
	}
	span.SetAttributes(tracer.Bool(tracer.AttrIsAdmin, created.IsAdmin))
	span.End(nil)
	return created
}

// promote sets is_admin=true on a privileged profile. If the write fails the
// row as read is returned unchanged.
func (s *Service) promote(ctx context.Context, span tracer.Span, existing *models.Profile) *models.Profile {
	updated, err := s.profiles.SetAdmin(ctx, existing.ID, true)
	if err != nil || updated == nil {
		s.logger.WarnContext(ctx, "failed to promote privileged profile",
			"identity_id", existing.ID,
			"error", err,
		)
		return existing
	}
	span.AddEvent(tracer.EventProfilePromoted)
	s.incrementProfilesPromoted()
	s.logAudit(ctx, audit.EventProfilePromoted,
		"identity_id", existing.ID,
		"decision", "granted",
		"reason", "privileged_identity",
	)
	return updated
}

// createDefault inserts {id, is_admin: privileged, name: nil, avatar_url: nil,
// updated_at: now}. A conflicting insert means another writer created the
// row first, in which case that row is read back instead.
func (s *Service) createDefault(ctx context.Context, span tracer.Span, identityID string, privileged bool) (*models.Profile, error) {
	inserted, err := s.profiles.Insert(ctx, models.NewDefaultProfile(identityID, privileged, s.clock.Now()))
	if err == nil && inserted != nil {
		span.AddEvent(tracer.EventProfileCreated)
		s.incrementProfilesCreated()
		s.logAudit(ctx, audit.EventProfileCreated,
			"identity_id", identityID,
			"decision", adminDecision(inserted.IsAdmin),
		)
		return inserted, nil
	}
	if err == nil {
		err = errors.New("insert returned no profile")
	}

	if errors.Is(err, sentinel.ErrConflict) {
		if winner, readErr := s.profiles.FindByID(ctx, identityID); readErr == nil && winner != nil {
			s.logger.DebugContext(ctx, "profile created concurrently, using stored row", "identity_id", identityID)
			if privileged && !winner.IsAdmin {
				return s.promote(ctx, span, winner), nil
			}
			return winner, nil
		}
	}

	s.logger.ErrorContext(ctx, "failed to create default profile",
		"identity_id", identityID,
		"error", err,
	)
	return nil, err
}

func adminDecision(isAdmin bool) string {
	if isAdmin {
		return "admin"
	}
	return "member"
}
