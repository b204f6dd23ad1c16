package authctx

import (
	"context"
	"sync"

	"adminconsole/internal/auth/models"
)

// fakeService is a controllable Service. Gates let a test hold the startup
// lookup or a profile fetch open until it releases them.
type fakeService struct {
	mu sync.Mutex

	session     *models.Session
	sessionGate chan struct{}

	subs       map[int]func(models.ChangeEvent)
	nextSubID  int
	dispatchMu sync.Mutex

	profiles   map[string]*models.Profile
	fetchGates map[string]chan struct{}
	fetchCalls []string

	adminCalls    int
	adminIdentity *models.Identity
	adminCached   *models.Profile

	signIn       func(email string) models.SignInResult
	signOutErr   error
	signOutCalls int
}

func newFakeService() *fakeService {
	return &fakeService{
		subs:       make(map[int]func(models.ChangeEvent)),
		profiles:   make(map[string]*models.Profile),
		fetchGates: make(map[string]chan struct{}),
	}
}

func (f *fakeService) PersistedSession(ctx context.Context) *models.Session {
	f.mu.Lock()
	gate := f.sessionGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeService) OnChange(fn func(models.ChangeEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSubID++
	id := f.nextSubID
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// emit delivers event to subscribers one at a time, like the identity client.
func (f *fakeService) emit(event models.ChangeEvent) {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()
	f.mu.Lock()
	fns := make([]func(models.ChangeEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(event)
	}
}

func (f *fakeService) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeService) FetchProfile(ctx context.Context, identityID string) *models.Profile {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, identityID)
	gate := f.fetchGates[identityID]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[identityID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (f *fakeService) CheckAdminStatus(_ context.Context, identity *models.Identity, cached *models.Profile) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminCalls++
	f.adminIdentity = identity
	f.adminCached = cached
	return cached != nil && cached.IsAdmin
}

func (f *fakeService) SignIn(_ context.Context, email, _ string) models.SignInResult {
	if f.signIn == nil {
		return models.SignInResult{Error: "Invalid login credentials"}
	}
	return f.signIn(email)
}

func (f *fakeService) SignOut(_ context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	err := f.signOutErr
	f.mu.Unlock()
	f.emit(models.ChangeEvent{Type: models.EventSignedOut})
	return err
}

func (f *fakeService) setProfile(p *models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

// gate holds FetchProfile for id until the returned func is called.
func (f *fakeService) gate(id string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.fetchGates[id] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeService) fetchCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.fetchCalls {
		if v == id {
			n++
		}
	}
	return n
}

func sessionFor(id string) *models.Session {
	return &models.Session{
		AccessToken:  "access-" + id,
		RefreshToken: "refresh-" + id,
		User:         models.Identity{ID: id, Email: id + "@example.com"},
	}
}

var _ Service = (*fakeService)(nil)
