package authctx

import (
	"context"

	"adminconsole/internal/auth/models"
)

// SignIn passes credentials to the service. State changes arrive through the
// SIGNED_IN event; on success the profile is resolved once more so a grant
// written during sign-in is reflected in the state.
func (c *Context) SignIn(ctx context.Context, email, password string) models.SignInResult {
	result := c.svc.SignIn(ctx, email, password)
	if result.Success {
		c.Refresh()
	}
	return result
}

// SignOut signs out at the identity service, then clears local state
// whatever the remote outcome. The remote error is returned for logging.
func (c *Context) SignOut(ctx context.Context) error {
	err := c.svc.SignOut(ctx)

	c.mu.Lock()
	c.generation++
	c.setSignedOutLocked()
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.logger.WarnContext(ctx, "sign out failed remotely, local state cleared", "error", err)
	}
	return err
}

// CheckAdminStatus asks the service oracle about the current identity, using
// the cached profile when one is loaded.
func (c *Context) CheckAdminStatus(ctx context.Context) bool {
	snap := c.Snapshot()
	return c.svc.CheckAdminStatus(ctx, snap.Identity, snap.Profile)
}
