package console

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	AddIdentity(email, password string)
	AddPrivilegedIdentity(email, password string) error
	SetGrantAdminOnSignIn(enabled bool) error
	SetIdentityServiceDown(down bool)
	IdentityID(email string) (string, error)
	Restart() error
	UseBrowser(name string) error
	CurrentBrowser() string
	Logouts() int
}

// RegisterSteps registers sign-in, session and admin step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consoleSteps{tc: tc}

	// Setup steps
	ctx.Step(`^an identity "([^"]*)" with password "([^"]*)"$`, steps.anIdentity)
	ctx.Step(`^a privileged identity "([^"]*)" with password "([^"]*)"$`, steps.aPrivilegedIdentity)
	ctx.Step(`^admin is granted on sign-in$`, steps.adminGrantedOnSignIn)
	ctx.Step(`^the identity service is down$`, steps.identityServiceDown)
	ctx.Step(`^the identity service is back up$`, steps.identityServiceUp)

	// Session steps
	ctx.Step(`^I sign in as "([^"]*)" with password "([^"]*)"$`, steps.signIn)
	ctx.Step(`^I am signed in as "([^"]*)" with password "([^"]*)"$`, steps.signedIn)
	ctx.Step(`^I sign out$`, steps.signOut)
	ctx.Step(`^the console restarts$`, steps.restart)
	ctx.Step(`^I request the session$`, steps.requestSession)
	ctx.Step(`^I check my admin status$`, steps.checkAdminStatus)

	// Browser steps
	ctx.Step(`^I switch to another browser$`, steps.switchToAnotherBrowser)
	ctx.Step(`^I switch back to my first browser$`, steps.switchToFirstBrowser)
	ctx.Step(`^"([^"]*)" with password "([^"]*)" has signed in elsewhere$`, steps.signedInElsewhere)

	// Admin steps
	ctx.Step(`^I look up the profile of "([^"]*)"$`, steps.lookUpProfile)
	ctx.Step(`^I list the audit events of "([^"]*)"$`, steps.listAuditEvents)

	// Identity service assertions
	ctx.Step(`^the identity service should have recorded (\d+) sign-outs?$`, steps.logoutsRecorded)
}

type consoleSteps struct {
	tc TestContext
}

func (s *consoleSteps) anIdentity(ctx context.Context, email, password string) error {
	s.tc.AddIdentity(email, password)
	return nil
}

func (s *consoleSteps) aPrivilegedIdentity(ctx context.Context, email, password string) error {
	return s.tc.AddPrivilegedIdentity(email, password)
}

func (s *consoleSteps) adminGrantedOnSignIn(ctx context.Context) error {
	return s.tc.SetGrantAdminOnSignIn(true)
}

func (s *consoleSteps) identityServiceDown(ctx context.Context) error {
	s.tc.SetIdentityServiceDown(true)
	return nil
}

func (s *consoleSteps) identityServiceUp(ctx context.Context) error {
	s.tc.SetIdentityServiceDown(false)
	return nil
}

func (s *consoleSteps) signIn(ctx context.Context, email, password string) error {
	return s.tc.POST("/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (s *consoleSteps) signedIn(ctx context.Context, email, password string) error {
	if err := s.signIn(ctx, email, password); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("sign-in as %s returned status %d", email, status)
	}
	return nil
}

func (s *consoleSteps) signOut(ctx context.Context) error {
	return s.tc.POST("/auth/logout", map[string]string{})
}

func (s *consoleSteps) restart(ctx context.Context) error {
	return s.tc.Restart()
}

func (s *consoleSteps) switchToAnotherBrowser(ctx context.Context) error {
	return s.tc.UseBrowser("second")
}

func (s *consoleSteps) switchToFirstBrowser(ctx context.Context) error {
	return s.tc.UseBrowser("first")
}

// signedInElsewhere signs email in from a browser of its own, then returns
// to the current one.
func (s *consoleSteps) signedInElsewhere(ctx context.Context, email, password string) error {
	current := s.tc.CurrentBrowser()
	if err := s.tc.UseBrowser(email); err != nil {
		return err
	}
	err := s.signedIn(ctx, email, password)
	if useErr := s.tc.UseBrowser(current); useErr != nil {
		return useErr
	}
	return err
}

func (s *consoleSteps) requestSession(ctx context.Context) error {
	return s.tc.GET("/auth/session", map[string]string{"Accept": "application/json"})
}

func (s *consoleSteps) checkAdminStatus(ctx context.Context) error {
	return s.tc.GET("/auth/admin", map[string]string{"Accept": "application/json"})
}

func (s *consoleSteps) lookUpProfile(ctx context.Context, email string) error {
	id, err := s.tc.IdentityID(email)
	if err != nil {
		return err
	}
	return s.tc.GET("/console/admin/profiles/"+id, map[string]string{"Accept": "application/json"})
}

func (s *consoleSteps) listAuditEvents(ctx context.Context, email string) error {
	id, err := s.tc.IdentityID(email)
	if err != nil {
		return err
	}
	return s.tc.GET("/console/admin/audit/"+id, map[string]string{"Accept": "application/json"})
}

func (s *consoleSteps) logoutsRecorded(ctx context.Context, expected int) error {
	if got := s.tc.Logouts(); got != expected {
		return fmt.Errorf("expected %d sign-outs at the identity service but got %d", expected, got)
	}
	return nil
}
