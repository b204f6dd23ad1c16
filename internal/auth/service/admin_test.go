package service

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"adminconsole/internal/auth/metrics"
	"adminconsole/internal/auth/models"
)

func (s *ServiceSuite) TestCheckAdminStatus() {
	ctx := context.Background()
	identity := &models.Identity{ID: "u1", Email: "u1@example.com"}

	s.Run("no identity is never admin, whatever is cached", func() {
		for _, cached := range []*models.Profile{nil, {ID: "u1", IsAdmin: true}, {ID: "u1"}} {
			s.False(s.service.CheckAdminStatus(ctx, nil, cached))
			s.False(s.service.CheckAdminStatus(ctx, &models.Identity{}, cached))
		}
		s.Equal(6.0, testutil.ToFloat64(s.metrics.AdminChecks.WithLabelValues(metrics.AdminSourceNoIdentity, "denied")))
	})

	s.Run("privileged identity is admin and the flag is written in the background", func() {
		s.withConfig(privilegedConfig("root"))
		written := make(chan *models.Profile, 1)
		s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *models.Profile) (*models.Profile, error) {
				written <- p
				return p, nil
			})

		s.True(s.service.CheckAdminStatus(ctx, &models.Identity{ID: "root"}, &models.Profile{ID: "root", IsAdmin: false}))

		s.service.Wait()
		p := <-written
		s.Equal("root", p.ID)
		s.True(p.IsAdmin)
	})

	s.Run("privileged answer survives a failed write", func() {
		s.withConfig(privilegedConfig("root"))
		s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil, errors.New("read-only replica"))

		s.True(s.service.CheckAdminStatus(ctx, &models.Identity{ID: "root"}, nil))
		s.service.Wait()
	})

	s.Run("privileged write outlives a canceled caller", func() {
		s.withConfig(privilegedConfig("root"))
		done := make(chan error, 1)
		s.mockProfiles.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, p *models.Profile) (*models.Profile, error) {
				done <- ctx.Err()
				return p, nil
			})
		callerCtx, cancel := context.WithCancel(ctx)
		cancel()

		s.True(s.service.CheckAdminStatus(callerCtx, &models.Identity{ID: "root"}, nil))
		s.service.Wait()
		s.NoError(<-done)
	})

	s.Run("cached profile answers without touching the store", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), gomock.Any()).Times(0)

		s.True(s.service.CheckAdminStatus(ctx, identity, &models.Profile{ID: "u1", IsAdmin: true}))
		s.False(s.service.CheckAdminStatus(ctx, identity, &models.Profile{ID: "u1", IsAdmin: false}))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AdminChecks.WithLabelValues(metrics.AdminSourceCached, "granted")))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AdminChecks.WithLabelValues(metrics.AdminSourceCached, "denied")))
	})

	s.Run("profile cached for another identity is ignored", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(&models.Profile{ID: "u1", IsAdmin: false}, nil)

		s.False(s.service.CheckAdminStatus(ctx, identity, &models.Profile{ID: "someone-else", IsAdmin: true}))
	})

	s.Run("store read answers when nothing is cached", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(&models.Profile{ID: "u1", IsAdmin: true}, nil).Times(1)

		s.True(s.service.CheckAdminStatus(ctx, identity, nil))
		s.Zero(testutil.ToFloat64(s.metrics.AdminCheckRetries))
	})
}

func (s *ServiceSuite) TestCheckAdminStatusRetry() {
	ctx := context.Background()
	identity := &models.Identity{ID: "u1"}
	delay := s.service.Config().AdminRetryDelay

	s.Run("two failed reads resolve to false after one retry delay", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, errors.New("connection refused")).Times(2)

		result := make(chan bool, 1)
		go func() { result <- s.service.CheckAdminStatus(ctx, identity, nil) }()

		s.clock.BlockUntil(1)
		s.Equal(1, s.clock.Pending(), "exactly one retry is scheduled")
		s.clock.Advance(delay)

		select {
		case got := <-result:
			s.False(got)
		case <-time.After(time.Second):
			s.Fail("CheckAdminStatus did not resolve after the retry delay")
		}
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AdminCheckRetries))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AdminChecks.WithLabelValues(metrics.AdminSourceFailed, "denied")))
	})

	s.Run("missing row then success", func() {
		gomock.InOrder(
			s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, notFound("u1")),
			s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(&models.Profile{ID: "u1", IsAdmin: true}, nil),
		)

		result := make(chan bool, 1)
		go func() { result <- s.service.CheckAdminStatus(ctx, identity, nil) }()

		s.clock.BlockUntil(1)
		s.clock.Advance(delay)
		s.True(<-result)
	})

	s.Run("nil row without error counts as missing", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, nil).Times(2)

		result := make(chan bool, 1)
		go func() { result <- s.service.CheckAdminStatus(ctx, identity, nil) }()

		s.clock.BlockUntil(1)
		s.clock.Advance(delay)
		s.False(<-result)
	})

	s.Run("canceled caller stops waiting for the retry", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, errors.New("connection refused")).Times(1)
		callerCtx, cancel := context.WithCancel(ctx)

		result := make(chan bool, 1)
		go func() { result <- s.service.CheckAdminStatus(callerCtx, identity, nil) }()

		s.clock.BlockUntil(1)
		cancel()
		s.False(<-result)
	})
}
