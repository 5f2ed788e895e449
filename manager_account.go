package storegate

import (
	"context"
	"strings"

	"github.com/MrEthical07/storegate/internal/api"
	"github.com/MrEthical07/storegate/internal/audit"
)

// UpdateProfile changes profile fields and replaces the session's user with
// the backend's answer. A user record that no longer validates is refused and
// the session keeps the previous one.
func (m *Manager) UpdateProfile(ctx context.Context, in ProfileUpdate) (*User, error) {
	const op = "profile_update"
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	req := api.ProfileRequest{
		FirstName: trimPtr(in.FirstName),
		LastName:  trimPtr(in.LastName),
		Phone:     trimPtr(in.Phone),
		Email:     trimPtr(in.Email),
	}
	if req.Email != nil {
		e := strings.ToLower(*req.Email)
		req.Email = &e
	}

	var raw []byte
	err := m.withBearer(ctx, op, func(ctx context.Context, access string) error {
		var err error
		raw, err = m.api.UpdateProfile(ctx, access, req)
		return err
	})
	if err != nil {
		_, prev, _ := m.snapshot()
		m.emitAudit(ctx, audit.EventProfileUpdate, prev, err, nil)
		return nil, err
	}

	user, canonical, err := normalizeUser(raw)
	if err != nil {
		return nil, newError(op, KindNetwork, msgBadUserRecord, err)
	}

	rec, prev, epoch := m.snapshot()
	if prev != nil && prev.ID != user.ID {
		return nil, newError(op, KindNetwork, msgBadUserRecord, nil)
	}
	rec.User = canonical
	if err := m.commit(ctx, op, epoch, rec, user); err != nil {
		return nil, err
	}

	m.metrics.Inc(MetricProfileUpdate)
	m.emitAudit(ctx, audit.EventProfileUpdate, user, nil, nil)
	if prev != nil && prev.Role != user.Role {
		m.syncRoute()
	}
	return cloneUser(user), nil
}

// LogoutAllSessions revokes every session of the user on the backend and
// then logs this client out.
func (m *Manager) LogoutAllSessions(ctx context.Context) error {
	const op = "logout_all"
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	_, user, _ := m.snapshot()
	if user == nil {
		return newError(op, KindAuthentication, msgSignInRequired, ErrNotAuthenticated)
	}

	err := m.withBearer(ctx, op, func(ctx context.Context, access string) error {
		return m.api.LogoutAll(ctx, access, user.ID)
	})
	m.emitAudit(ctx, audit.EventLogoutAll, user, err, nil)
	if err != nil {
		return err
	}
	m.metrics.Inc(MetricLogoutAll)
	// the server side is gone already
	return m.logout(ctx, op, false)
}

// ListSessions returns the user's server-side sessions.
func (m *Manager) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	const op = "list_sessions"
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	var got []api.SessionInfo
	err := m.withBearer(ctx, op, func(ctx context.Context, access string) error {
		var err error
		got, err = m.api.ListSessions(ctx, access)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]SessionInfo, 0, len(got))
	for _, s := range got {
		out = append(out, SessionInfo{
			ID:         s.ID,
			Device:     s.Device,
			IP:         s.IP,
			CreatedAt:  s.CreatedAt,
			LastSeenAt: s.LastSeenAt,
			Current:    s.Current,
		})
	}
	return out, nil
}

// RevokeSession ends one server-side session. Revoking the current session
// logs this client out.
func (m *Manager) RevokeSession(ctx context.Context, sessionID string, current bool) error {
	const op = "revoke_session"
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return &Error{Kind: KindValidation, Op: op, Message: "Session id is required.", Fields: map[string]string{"sessionId": "required"}}
	}

	err := m.withBearer(ctx, op, func(ctx context.Context, access string) error {
		return m.api.RevokeSession(ctx, access, sessionID)
	})
	_, user, _ := m.snapshot()
	m.emitAudit(ctx, audit.EventSessionRevoke, user, err, map[string]string{"session_id": sessionID})
	if err != nil {
		return err
	}
	m.metrics.Inc(MetricSessionRevoked)
	if current {
		return m.logout(ctx, op, false)
	}
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
