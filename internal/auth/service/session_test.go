package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"adminconsole/internal/audit"
	"adminconsole/internal/auth/models"
	"adminconsole/internal/auth/service/mocks"
	dErrors "adminconsole/pkg/domain-errors"
	"adminconsole/pkg/platform/sentinel"
)

func (s *ServiceSuite) session(identityID string) *models.Session {
	return &models.Session{
		AccessToken:  "access-" + identityID,
		RefreshToken: "refresh-" + identityID,
		TokenType:    "bearer",
		User:         models.Identity{ID: identityID, Email: identityID + "@example.com"},
	}
}

func (s *ServiceSuite) TestSignIn() {
	ctx := context.Background()

	s.Run("success grants admin when the compatibility flag is on", func() {
		s.allowAudit()
		s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), "u1@example.com", "pw").Return(s.session("u1"), nil)
		s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *models.Profile) (*models.Profile, error) {
				s.Equal("u1", p.ID)
				s.True(p.IsAdmin)
				s.Nil(p.Name)
				s.Equal(suiteEpoch, p.UpdatedAt)
				return p, nil
			})

		result := s.service.SignIn(ctx, "u1@example.com", "pw")

		s.Equal(models.SignInResult{Success: true}, result)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.SignIns.WithLabelValues(signInSucceeded)))
	})

	s.Run("success without grant leaves profiles alone", func() {
		s.allowAudit()
		cfg := DefaultConfig()
		cfg.GrantAdminOnSignIn = false
		s.withConfig(cfg)
		s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), "u1@example.com", "pw").Return(s.session("u1"), nil)
		s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(0)

		result := s.service.SignIn(ctx, "u1@example.com", "pw")

		s.True(result.Success)
	})

	s.Run("grant failure does not fail sign in", func() {
		s.allowAudit()
		s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.session("u1"), nil)
		s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

		result := s.service.SignIn(ctx, "u1@example.com", "pw")

		s.True(result.Success)
		s.Empty(result.Error)
	})

	s.Run("invalid credentials become an inline message", func() {
		s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid login credentials"))
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.EventSignInFailed.String(), e.Action)
				s.Equal("denied", e.Decision)
				s.Equal(string(dErrors.CodeUnauthorized), e.Reason)
				s.Equal("bad@example.com", e.Email)
				return nil
			})

		result := s.service.SignIn(ctx, "bad@example.com", "nope")

		s.Equal(models.SignInResult{Success: false, Error: "Invalid login credentials"}, result)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.SignIns.WithLabelValues(signInFailed)))
	})

	s.Run("transport failure is reported, not raised", func() {
		s.allowAudit()
		s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("dial tcp: %w", sentinel.ErrUnavailable))

		result := s.service.SignIn(ctx, "u1@example.com", "pw")

		s.False(result.Success)
		s.Equal("identity service unavailable", result.Error)
	})

	s.Run("deadline exceeded is reported as timeout", func() {
		s.allowAudit()
		s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, context.DeadlineExceeded)

		result := s.service.SignIn(ctx, "u1@example.com", "pw")

		s.Equal("sign in timed out", result.Error)
	})

	s.Run("missing session on success is a failure", func() {
		s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

		result := s.service.SignIn(ctx, "u1@example.com", "pw")

		s.False(result.Success)
		s.Equal("sign in failed", result.Error)
	})

	s.Run("audit failure does not change the result", func() {
		s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.session("u1"), nil)
		s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(&models.Profile{ID: "u1", IsAdmin: true}, nil)
		s.mockAuditPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit down")).AnyTimes()

		s.True(s.service.SignIn(ctx, "u1@example.com", "pw").Success)
	})
}

func (s *ServiceSuite) TestPersistedSession() {
	ctx := context.Background()

	s.Run("returns the restored session", func() {
		restored := s.session("u2")
		s.mockIdentity.EXPECT().GetSession(gomock.Any()).Return(restored, nil)

		s.Equal(restored, s.service.PersistedSession(ctx))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionRestores.WithLabelValues("found")))
	})

	s.Run("no session", func() {
		s.mockIdentity.EXPECT().GetSession(gomock.Any()).Return(nil, nil)

		s.Nil(s.service.PersistedSession(ctx))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionRestores.WithLabelValues("none")))
	})

	s.Run("lookup failure resolves to signed out", func() {
		s.mockIdentity.EXPECT().GetSession(gomock.Any()).Return(nil, fmt.Errorf("read session: %w", sentinel.ErrUnavailable))

		s.Nil(s.service.PersistedSession(ctx))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionRestores.WithLabelValues("error")))
	})
}

func (s *ServiceSuite) TestOnChange() {
	unsubscribed := false
	var registered func(models.ChangeEvent)
	s.mockIdentity.EXPECT().OnAuthStateChange(gomock.Any()).DoAndReturn(
		func(fn func(models.ChangeEvent)) func() {
			registered = fn
			return func() { unsubscribed = true }
		})

	var got []models.ChangeEventType
	unsubscribe := s.service.OnChange(func(e models.ChangeEvent) {
		got = append(got, e.Type)
	})
	registered(models.ChangeEvent{Type: models.EventSignedIn})
	unsubscribe()

	s.Equal([]models.ChangeEventType{models.EventSignedIn}, got)
	s.True(unsubscribed)
}

func (s *ServiceSuite) TestSignOut() {
	ctx := context.Background()

	s.Run("success", func() {
		s.allowAudit()
		s.mockIdentity.EXPECT().SignOut(gomock.Any()).Return(nil)

		s.NoError(s.service.SignOut(ctx))
	})

	s.Run("remote failure is returned for logging", func() {
		s.allowAudit()
		remote := dErrors.New(dErrors.CodeUnavailable, "identity service unavailable")
		s.mockIdentity.EXPECT().SignOut(gomock.Any()).Return(remote)

		err := s.service.SignOut(ctx)

		s.ErrorIs(err, remote)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.SignOuts))
	})
}

func (s *ServiceSuite) TestWithIdentityBindsOnlyTheIdentityProvider() {
	ctx := context.Background()
	s.allowAudit()
	cfg := DefaultConfig()
	cfg.GrantAdminOnSignIn = false
	s.withConfig(cfg)

	other := mocks.NewMockIdentityProvider(s.ctrl)
	bound := s.service.WithIdentity(other)

	other.EXPECT().SignInWithPassword(gomock.Any(), "u2@example.com", "pw").Return(s.session("u2"), nil)
	s.mockIdentity.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.True(bound.SignIn(ctx, "u2@example.com", "pw").Success)

	s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u2").Return(&models.Profile{ID: "u2"}, nil)
	s.Require().NotNil(bound.FetchProfile(ctx, "u2"))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SignIns.WithLabelValues(signInSucceeded)), "metrics are shared")
	s.Equal(s.service.Config(), bound.Config())
}

func (s *ServiceSuite) TestWithProfileStoreBindsOnlyTheStore() {
	ctx := context.Background()
	store := mocks.NewMockProfileStore(s.ctrl)
	bound := s.service.WithProfileStore(store)

	store.EXPECT().FindByID(gomock.Any(), "u2").Return(&models.Profile{ID: "u2"}, nil)
	s.mockProfiles.EXPECT().FindByID(gomock.Any(), gomock.Any()).Times(0)
	s.Require().NotNil(bound.FetchProfile(ctx, "u2"))

	s.mockIdentity.EXPECT().GetSession(gomock.Any()).Return(s.session("u2"), nil)
	s.Equal("u2", bound.PersistedSession(ctx).IdentityID())
}
