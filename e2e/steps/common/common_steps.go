package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	ResponseContains(field string) bool
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
	GetLastResponseBody() []byte
}

// RegisterSteps registers request and response steps shared by all features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Generic request steps
	ctx.Step(`^I GET "([^"]*)" as an API client$`, steps.getAsAPIClient)
	ctx.Step(`^I GET "([^"]*)" from a browser$`, steps.getFromBrowser)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.responseFieldShouldBeBool)
	ctx.Step(`^the response field "([^"]*)" should be null$`, steps.responseFieldShouldBeNull)
	ctx.Step(`^I should be redirected to "([^"]*)"$`, steps.shouldBeRedirectedTo)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) getAsAPIClient(ctx context.Context, path string) error {
	return s.tc.GET(path, map[string]string{"Accept": "application/json"})
}

func (s *commonSteps) getFromBrowser(ctx context.Context, path string) error {
	return s.tc.GET(path, map[string]string{"Accept": "text/html"})
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, actualStatus, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if actual := fmt.Sprint(value); actual != expectedValue {
		return fmt.Errorf("expected field %s to equal %q but got %q", field, expectedValue, actual)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeBool(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("field %s is %T, not a boolean", field, value)
	}
	if fmt.Sprint(b) != expected {
		return fmt.Errorf("expected field %s to be %s but got %t", field, expected, b)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeNull(ctx context.Context, field string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if value != nil {
		return fmt.Errorf("expected field %s to be null but got %v", field, value)
	}
	return nil
}

func (s *commonSteps) shouldBeRedirectedTo(ctx context.Context, location string) error {
	if status := s.tc.GetLastResponseStatus(); status < 300 || status >= 400 {
		return fmt.Errorf("expected a redirect but got status %d", status)
	}
	if got := s.tc.GetLastResponseHeader("Location"); got != location {
		return fmt.Errorf("expected redirect to %q but got %q", location, got)
	}
	return nil
}
