package flows

import (
	"context"

	"github.com/MrEthical07/storegate/session"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Backend Backend
	Store   session.Store
	// Notify controls whether the backend is told about the logout.
	Notify bool
	// Warn receives best-effort failures; it may be nil.
	Warn func(msg string, err error)
}

// LogoutResult reports what the best-effort parts of logout did.
type LogoutResult struct {
	NotifyErr error
	ClearErr  error
}

// RunLogout tells the backend (when asked and a token exists) and then
// clears the store unconditionally. Neither failure stops the other step.
func RunLogout(ctx context.Context, current session.Record, deps LogoutDeps) LogoutResult {
	var res LogoutResult

	if deps.Notify && deps.Backend != nil && current.AccessToken != "" {
		if err := deps.Backend.Logout(ctx, current.AccessToken, current.RefreshToken); err != nil {
			res.NotifyErr = err
			if deps.Warn != nil {
				deps.Warn("backend logout notify failed", err)
			}
		}
	}

	// the clear must run even when the caller's context is already done
	if err := deps.Store.Clear(context.WithoutCancel(ctx)); err != nil {
		res.ClearErr = err
		if deps.Warn != nil {
			deps.Warn("session store clear failed", err)
		}
	}
	return res
}
