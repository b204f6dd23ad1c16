package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"adminconsole/internal/auth/models"
	profileStore "adminconsole/internal/auth/store/profile"
	"adminconsole/pkg/platform/sentinel"
)

func notFound(id string) error {
	return fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
}

func privilegedConfig(ids ...string) Config {
	cfg := DefaultConfig()
	cfg.PrivilegedIDs = models.PrivilegedIdentities(ids)
	return cfg
}

func (s *ServiceSuite) TestFetchProfileCreatesMissingProfiles() {
	ctx := context.Background()
	s.allowAudit()
	store := profileStore.NewInMemory()
	svc := s.newService(store, privilegedConfig("root"))

	for _, id := range []string{"u1", "u2", "u3", "root"} {
		profile := svc.FetchProfile(ctx, id)
		s.Require().NotNil(profile, id)
		s.Equal(id, profile.ID)
		s.Equal(id == "root", profile.IsAdmin, id)
		s.Nil(profile.Name)
		s.Nil(profile.AvatarURL)
		s.Equal(suiteEpoch, profile.UpdatedAt)
	}
	s.Equal(4, store.Len(), "exactly one row per identity")

	// A second resolution reads the stored row and creates nothing.
	again := svc.FetchProfile(ctx, "u1")
	s.Require().NotNil(again)
	s.False(again.IsAdmin)
	s.Equal(4, store.Len())
	s.Equal(4.0, testutil.ToFloat64(s.metrics.ProfilesCreated))
}

func (s *ServiceSuite) TestFetchProfileHealsPrivilegedIdentity() {
	ctx := context.Background()

	s.Run("promotes and stays idempotent over repeated calls", func() {
		s.allowAudit()
		store := profileStore.NewInMemory()
		_, err := store.Insert(ctx, models.NewDefaultProfile("root", false, suiteEpoch))
		s.Require().NoError(err)
		svc := s.newService(store, privilegedConfig("root"))

		for range 3 {
			profile := svc.FetchProfile(ctx, "root")
			s.Require().NotNil(profile)
			s.True(profile.IsAdmin)
		}
		stored, err := store.FindByID(ctx, "root")
		s.Require().NoError(err)
		s.True(stored.IsAdmin)
		s.Equal(1, store.Len())
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ProfilesPromoted), "only the first call writes")
	})

	s.Run("second call skips the write once healed", func() {
		s.allowAudit()
		s.withConfig(privilegedConfig("root"))
		demoted := &models.Profile{ID: "root", IsAdmin: false}
		healed := &models.Profile{ID: "root", IsAdmin: true}
		gomock.InOrder(
			s.mockProfiles.EXPECT().FindByID(gomock.Any(), "root").Return(demoted, nil),
			s.mockProfiles.EXPECT().SetAdmin(gomock.Any(), "root", true).Return(healed, nil),
			s.mockProfiles.EXPECT().FindByID(gomock.Any(), "root").Return(healed, nil),
		)

		s.True(s.service.FetchProfile(ctx, "root").IsAdmin)
		s.True(s.service.FetchProfile(ctx, "root").IsAdmin)
	})

	s.Run("failed promotion returns the row as read", func() {
		s.withConfig(privilegedConfig("root"))
		name := "Root"
		demoted := &models.Profile{ID: "root", IsAdmin: false, Name: &name}
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "root").Return(demoted, nil)
		s.mockProfiles.EXPECT().SetAdmin(gomock.Any(), "root", true).Return(nil, errors.New("permission denied"))

		profile := s.service.FetchProfile(ctx, "root")

		s.Require().NotNil(profile)
		s.False(profile.IsAdmin)
		s.Equal("Root", profile.DisplayName())
	})

	s.Run("non-privileged admin flag is left as stored", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(&models.Profile{ID: "u1"}, nil)

		profile := s.service.FetchProfile(ctx, "u1")

		s.Require().NotNil(profile)
		s.False(profile.IsAdmin)
	})
}

func (s *ServiceSuite) TestFetchProfileFailurePaths() {
	ctx := context.Background()

	s.Run("read error falls through to creating a default", func() {
		s.allowAudit()
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, errors.New("timeout"))
		s.mockProfiles.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *models.Profile) (*models.Profile, error) {
				s.Equal("u1", p.ID)
				s.False(p.IsAdmin)
				return p, nil
			})

		profile := s.service.FetchProfile(ctx, "u1")

		s.Require().NotNil(profile)
		s.Equal("u1", profile.ID)
	})

	s.Run("insert failure resolves to nil", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, notFound("u1"))
		s.mockProfiles.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, errors.New("permission denied for table profiles"))

		s.Nil(s.service.FetchProfile(ctx, "u1"))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ProfileResolveFailures))
	})

	s.Run("insert conflict reads back the concurrent row", func() {
		winner := &models.Profile{ID: "u1", IsAdmin: true}
		gomock.InOrder(
			s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, notFound("u1")),
			s.mockProfiles.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("profile u1: %w", sentinel.ErrConflict)),
			s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(winner, nil),
		)

		profile := s.service.FetchProfile(ctx, "u1")

		s.Require().NotNil(profile)
		s.True(profile.IsAdmin)
	})

	s.Run("insert conflict with unreadable row resolves to nil", func() {
		s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, notFound("u1")).Times(2)
		s.mockProfiles.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("profile u1: %w", sentinel.ErrConflict))

		s.Nil(s.service.FetchProfile(ctx, "u1"))
	})

	s.Run("empty identity resolves to nil without store calls", func() {
		s.Nil(s.service.FetchProfile(ctx, ""))
	})
}

func (s *ServiceSuite) TestFetchProfileCoalescesConcurrentCalls() {
	ctx := context.Background()
	s.allowAudit()
	store := profileStore.NewInMemory()
	svc := s.newService(store, DefaultConfig())

	const callers = 16
	results := make([]*models.Profile, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.FetchProfile(ctx, "burst")
		}()
	}
	wg.Wait()

	s.Equal(1, store.Len())
	for i, p := range results {
		s.Require().NotNil(p, "caller %d", i)
		s.Equal("burst", p.ID)
	}
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProfilesCreated))

	results[0].IsAdmin = true
	s.False(results[1].IsAdmin, "callers receive independent copies")
}

func (s *ServiceSuite) TestFetchProfileSharedResolutionOutlivesCanceledCaller() {
	stored := &models.Profile{ID: "u1", IsAdmin: true}
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	s.mockProfiles.EXPECT().FindByID(gomock.Any(), "u1").
		DoAndReturn(func(ctx context.Context, _ string) (*models.Profile, error) {
			if calls.Add(1) == 1 {
				close(entered)
			}
			select {
			case <-release:
				return stored, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}).MinTimes(1).MaxTimes(2)

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan *models.Profile, 1)
	go func() { first <- s.service.FetchProfile(firstCtx, "u1") }()
	<-entered

	second := make(chan *models.Profile, 1)
	go func() { second <- s.service.FetchProfile(context.Background(), "u1") }()

	cancel()
	s.Nil(<-first, "a canceled caller stops waiting")

	close(release)
	got := <-second
	s.Require().NotNil(got, "a live caller still gets the profile")
	s.Equal("u1", got.ID)
	s.True(got.IsAdmin)
}
