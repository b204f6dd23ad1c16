package service

import (
	"context"
	"errors"

	dErrors "adminconsole/pkg/domain-errors"
	"adminconsole/pkg/platform/sentinel"
)

// signInMessage turns an identity service failure into the inline message
// shown next to the login form.
func signInMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "sign in timed out"
	case errors.Is(err, sentinel.ErrUnavailable):
		return "identity service unavailable"
	default:
		return "sign in failed"
	}
}

// signInReason is the low-cardinality reason recorded for a failed sign-in.
func signInReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return string(dErrors.CodeTimeout)
	case errors.Is(err, sentinel.ErrUnavailable):
		return string(dErrors.CodeUnavailable)
	default:
		return string(dErrors.CodeOf(err))
	}
}

// readFailureReason labels a failed profile read in logs.
func readFailureReason(err error) string {
	if errors.Is(err, sentinel.ErrNotFound) {
		return "not_found"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "read_failed"
}
