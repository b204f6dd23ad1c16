package identity

import (
	"context"
	"errors"
	"net/http"

	"adminconsole/internal/platform/baas"
	dErrors "adminconsole/pkg/domain-errors"
	"adminconsole/pkg/platform/sentinel"
)

const (
	msgInvalidCredentials = "Invalid login credentials"
	msgUnavailable        = "identity service unavailable"
	msgRateLimited        = "too many requests, try again later"
	msgTimeout            = "identity service timed out"
)

// translateError maps a backend failure to a domain error carrying a message
// that is safe to show on the sign-in form.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := baas.AsAPIError(err); ok {
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			msg := apiErr.Description()
			if msg == "" || msg == http.StatusText(apiErr.Status) {
				msg = msgInvalidCredentials
			}
			return dErrors.Wrap(err, dErrors.CodeUnauthorized, msg)
		case http.StatusTooManyRequests:
			return dErrors.Wrap(err, dErrors.CodeUnavailable, msgRateLimited)
		case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			return dErrors.Wrap(err, dErrors.CodeUnavailable, msgUnavailable)
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msgTimeout)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msgUnavailable)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
	}
}
