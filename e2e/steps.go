package e2e

import (
	"github.com/cucumber/godog"

	"adminconsole/e2e/steps/common"
	"adminconsole/e2e/steps/console"
)

// scenarioContext forwards to the TestContext of the running scenario. Step
// packages are bound once, before the Before hook creates the context.
type scenarioContext struct {
	tc *TestContext
}

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, s *scenarioContext) {
	common.RegisterSteps(ctx, s)
	console.RegisterSteps(ctx, s)
}

func (s *scenarioContext) POST(path string, body interface{}) error { return s.tc.POST(path, body) }
func (s *scenarioContext) GET(path string, headers map[string]string) error {
	return s.tc.GET(path, headers)
}
func (s *scenarioContext) GetResponseField(field string) (interface{}, error) {
	return s.tc.GetResponseField(field)
}
func (s *scenarioContext) ResponseContains(text string) bool { return s.tc.ResponseContains(text) }
func (s *scenarioContext) GetLastResponseStatus() int        { return s.tc.GetLastResponseStatus() }
func (s *scenarioContext) GetLastResponseHeader(name string) string {
	return s.tc.GetLastResponseHeader(name)
}
func (s *scenarioContext) GetLastResponseBody() []byte { return s.tc.GetLastResponseBody() }

func (s *scenarioContext) AddIdentity(email, password string) { s.tc.AddIdentity(email, password) }
func (s *scenarioContext) AddPrivilegedIdentity(email, password string) error {
	return s.tc.AddPrivilegedIdentity(email, password)
}
func (s *scenarioContext) SetGrantAdminOnSignIn(enabled bool) error {
	return s.tc.SetGrantAdminOnSignIn(enabled)
}
func (s *scenarioContext) SetIdentityServiceDown(down bool) { s.tc.SetIdentityServiceDown(down) }
func (s *scenarioContext) IdentityID(email string) (string, error) {
	return s.tc.IdentityID(email)
}
func (s *scenarioContext) Restart() error               { return s.tc.Restart() }
func (s *scenarioContext) UseBrowser(name string) error { return s.tc.UseBrowser(name) }
func (s *scenarioContext) CurrentBrowser() string       { return s.tc.CurrentBrowser() }
func (s *scenarioContext) Logouts() int                 { return s.tc.Identity.Logouts() }

// Compile-time checks that the forwarder satisfies every step package.
var (
	_ common.TestContext  = (*scenarioContext)(nil)
	_ console.TestContext = (*scenarioContext)(nil)
)
