package storegate

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/storegate/internal/api"
	"github.com/MrEthical07/storegate/internal/audit"
	"github.com/MrEthical07/storegate/internal/flows"
	"github.com/MrEthical07/storegate/internal/logger"
	"github.com/MrEthical07/storegate/permission"
)

const (
	msgSessionExpired   = "Your session has expired. Please sign in again."
	msgSignInRequired   = "Please sign in to continue."
	msgUnknownRole      = "Your account role is not recognized. Contact an administrator."
	msgBadUserRecord    = "The server returned an invalid user record."
	msgNoTokens         = "The server did not return a session."
	msgCorruptSession   = "The saved session could not be read and was cleared."
	msgStoreUnavailable = "The saved session could not be loaded."
	msgRegistered       = "Registration successful. Please check your email to verify your account."
)

func canonicalUser(raw []byte) ([]byte, error) {
	_, b, err := normalizeUser(raw)
	return b, err
}

/*
====================================
REHYDRATE
====================================
*/

// Rehydrate resolves the persisted session. Until it returns, State reports
// Loading. A record that cannot be trusted is cleared like a logout and a
// KindCorruptState error is returned; the manager is then Anonymous.
func (m *Manager) Rehydrate(ctx context.Context) error {
	const op = "rehydrate"
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	epoch := m.currentEpoch()
	res := flows.RunRehydrate(ctx, flows.RehydrateDeps{Store: m.store, Normalize: canonicalUser})

	switch res.Outcome {
	case flows.RehydrateRestored:
		user, _, err := normalizeUser(res.Record.User)
		if err != nil {
			// RunRehydrate already normalized it
			return newError(op, KindCorruptState, msgCorruptSession, err)
		}
		m.mu.Lock()
		if m.epoch == epoch {
			m.rec = res.Record
			m.user = user
			m.resolved = true
		}
		m.mu.Unlock()
		m.metrics.Inc(MetricRehydrateRestored)
		m.log.Debug("session restored", logger.UserID(user.ID), logger.Role(user.Role))
		m.syncRoute()
		return nil

	case flows.RehydrateCorrupt:
		m.clearLocal()
		flows.RunLogout(ctx, res.Record, flows.LogoutDeps{Store: m.store, Warn: m.warn(op)})
		m.metrics.Inc(MetricCorruptState)
		m.log.Warn("persisted session corrupt, cleared", logger.Op(op), logger.Err(res.Err))
		e := newError(op, KindCorruptState, msgCorruptSession, res.Err)
		m.emitAudit(ctx, audit.EventCorruptState, nil, e, nil)
		m.syncRoute()
		return e

	case flows.RehydrateUnavailable:
		m.mu.Lock()
		m.resolved = true
		m.mu.Unlock()
		m.log.Warn("session store unavailable", logger.Op(op), logger.Err(res.Err))
		m.syncRoute()
		return newError(op, KindNetwork, msgStoreUnavailable, res.Err)

	default:
		m.mu.Lock()
		m.resolved = true
		m.mu.Unlock()
		m.syncRoute()
		return nil
	}
}

/*
====================================
LOGIN
====================================
*/

// Login exchanges credentials for a session. The returned role is checked
// strictly: a user whose role is not recognized is refused and nothing is
// persisted. On success the client is sent to the pending redirect target
// when its role may open it, and to the authenticated home otherwise.
func (m *Manager) Login(ctx context.Context, email, password string) (*User, error) {
	const op = "login"
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	epoch := m.currentEpoch()
	var res flows.EstablishResult
	_ = m.callBackend(ctx, func(ctx context.Context) error {
		res = flows.RunLogin(ctx, strings.TrimSpace(email), password, flows.LoginDeps{
			Backend:   m.api,
			Normalize: canonicalUser,
		})
		return res.Err
	})

	user, err := m.establish(ctx, op, epoch, res)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, audit.EventLogin, nil, err, map[string]string{"email": strings.ToLower(strings.TrimSpace(email))})
		return nil, err
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.emitAudit(ctx, audit.EventLogin, user, nil, nil)
	m.log.Info("signed in", logger.UserID(user.ID), logger.Role(user.Role))
	m.navigateAfterSignIn(user.Role)
	return cloneUser(user), nil
}

// establish maps a flow result onto an error or commits its record.
func (m *Manager) establish(ctx context.Context, op string, epoch uint64, res flows.EstablishResult) (*User, error) {
	switch res.Failure {
	case flows.EstablishFailureNone:
	case flows.EstablishFailureBackend:
		return nil, classify(op, res.Err)
	case flows.EstablishFailureNoTokens:
		return nil, newError(op, KindAuthentication, msgNoTokens, res.Err)
	default:
		if errors.Is(res.Err, permission.ErrUnknownRole) {
			return nil, newError(op, KindAuthentication, msgUnknownRole, res.Err)
		}
		return nil, newError(op, KindAuthentication, msgBadUserRecord, res.Err)
	}

	user, _, err := normalizeUser(res.Record.User)
	if err != nil {
		return nil, newError(op, KindAuthentication, msgBadUserRecord, err)
	}
	if err := m.commit(ctx, op, epoch, res.Record, user); err != nil {
		return nil, err
	}
	return user, nil
}

/*
====================================
LOGOUT
====================================
*/

// Logout ends the session. The backend is told on a best-effort basis and
// its failure is only logged; the store and memory are cleared regardless
// and the client is sent to sign-in. Logging out without a session is a
// no-op apart from the navigation. The only error returned is a failure to
// clear the store.
func (m *Manager) Logout(ctx context.Context) error {
	return m.logout(ctx, "logout", true)
}

func (m *Manager) logout(ctx context.Context, op string, notify bool) error {
	rec, user := m.clearLocal()

	ctx, cancel := context.WithTimeout(ctx, m.config.RequestTimeout)
	defer cancel()
	res := flows.RunLogout(ctx, rec, flows.LogoutDeps{
		Backend: m.api,
		Store:   m.store,
		Notify:  notify,
		Warn:    m.warn(op),
	})

	if user != nil {
		m.metrics.Inc(MetricLogout)
		m.emitAudit(ctx, audit.EventLogout, user, res.ClearErr, map[string]string{"reason": op})
	}
	m.navigateToSignIn()

	if res.ClearErr != nil {
		return newError(op, KindUnknown, "Unable to clear the saved session.", res.ClearErr)
	}
	return nil
}

/*
====================================
REGISTER / VERIFY
====================================
*/

// Register creates an account. When the backend signs the user in straight
// away the session is established like a login; otherwise the result carries
// the backend's instructions and the manager stays anonymous.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	const op = "register"
	if err := m.begin(); err != nil {
		return RegisterResult{}, err
	}
	defer m.end()

	req := api.RegisterRequest{
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  in.Password,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      in.Role,
		StoreID:   strings.TrimSpace(in.StoreID),
	}
	if in.Role != "" {
		if _, err := permission.ParseRole(in.Role); err != nil {
			return RegisterResult{}, &Error{Kind: KindValidation, Op: op, Message: "Unknown role.", Fields: map[string]string{"role": "unknown role"}, Err: err}
		}
	}

	epoch := m.currentEpoch()
	var payload *api.AuthPayload
	err := m.callBackend(ctx, func(ctx context.Context) error {
		var err error
		payload, err = m.api.Register(ctx, req)
		return err
	})
	if err != nil {
		err = classify(op, err)
		m.emitAudit(ctx, audit.EventRegister, nil, err, map[string]string{"email": req.Email})
		return RegisterResult{}, err
	}
	m.metrics.Inc(MetricRegister)

	if !payload.HasTokens() {
		m.emitAudit(ctx, audit.EventRegister, nil, nil, map[string]string{"email": req.Email})
		return RegisterResult{Message: messageOr(payload.Message, msgRegistered)}, nil
	}

	user, err := m.establish(ctx, op, epoch, flows.RunEstablish(payload, canonicalUser))
	m.emitAudit(ctx, audit.EventRegister, user, err, map[string]string{"email": req.Email})
	if err != nil {
		return RegisterResult{}, err
	}
	m.navigate(m.matrix.Routes().Home)
	return RegisterResult{SignedIn: true, Message: payload.Message}, nil
}

// VerifyAccount confirms an account with the code from the verification
// email. A backend that answers with a token pair signs the user in.
func (m *Manager) VerifyAccount(ctx context.Context, email, code string) (RegisterResult, error) {
	const op = "verify"
	if err := m.begin(); err != nil {
		return RegisterResult{}, err
	}
	defer m.end()

	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "required"
	}
	if code == "" {
		fields["code"] = "required"
	}
	if len(fields) > 0 {
		return RegisterResult{}, &Error{Kind: KindValidation, Op: op, Message: "Email and verification code are required.", Fields: fields}
	}

	epoch := m.currentEpoch()
	var payload *api.AuthPayload
	err := m.callBackend(ctx, func(ctx context.Context) error {
		var err error
		payload, err = m.api.Verify(ctx, email, code)
		return err
	})
	if err != nil {
		err = classify(op, err)
		m.metrics.Inc(MetricVerifyFailure)
		m.emitAudit(ctx, audit.EventVerify, nil, err, nil)
		return RegisterResult{}, err
	}

	if !payload.HasTokens() {
		m.metrics.Inc(MetricVerifySuccess)
		m.emitAudit(ctx, audit.EventVerify, nil, nil, nil)
		return RegisterResult{Message: payload.Message}, nil
	}

	user, err := m.establish(ctx, op, epoch, flows.RunEstablish(payload, canonicalUser))
	m.emitAudit(ctx, audit.EventVerify, user, err, nil)
	if err != nil {
		m.metrics.Inc(MetricVerifyFailure)
		return RegisterResult{}, err
	}
	m.metrics.Inc(MetricVerifySuccess)
	m.navigate(m.matrix.Routes().Home)
	return RegisterResult{SignedIn: true, Message: payload.Message}, nil
}

/*
====================================
REFRESH
====================================
*/

// RefreshAccessToken exchanges the refresh token for a new access token.
// Without a refresh token the user is logged out and nil is returned. A
// rejection by the backend also logs the user out and returns a
// KindAuthentication error. A network failure returns KindNetwork and leaves
// the session as it was.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	err := m.refresh(ctx, "refresh")
	if errors.Is(err, flows.ErrMissingRefreshToken) {
		return nil
	}
	return err
}

func (m *Manager) refresh(ctx context.Context, op string) error {
	rec, user, epoch := m.snapshot()

	var res flows.RefreshResult
	_ = m.callBackend(ctx, func(ctx context.Context) error {
		res = flows.RunRefresh(ctx, rec, flows.RefreshDeps{Backend: m.api})
		return res.Err
	})

	switch res.Failure {
	case flows.RefreshFailureNone:
		if err := m.commit(ctx, op, epoch, res.Record, user); err != nil {
			return err
		}
		m.metrics.Inc(MetricRefreshSuccess)
		return nil

	case flows.RefreshFailureNetwork:
		m.metrics.Inc(MetricRefreshNetworkFailure)
		m.log.Warn("refresh failed, keeping session", logger.Op(op), logger.Err(res.Err))
		return classify(op, res.Err)

	default:
		m.metrics.Inc(MetricRefreshFailure)
		e := newError(op, KindAuthentication, msgSessionExpired, res.Err)
		m.emitAudit(ctx, audit.EventRefresh, user, e, nil)
		if err := m.logout(ctx, op, res.Failure == flows.RefreshFailureRejected); err != nil {
			m.log.Warn("logout after refresh failure", logger.Op(op), logger.Err(err))
		}
		return e
	}
}

// withBearer runs call with the current access token. A 401 answer triggers
// one refresh and one retry; a refresh that fails for any reason other than
// the network has already logged the user out.
func (m *Manager) withBearer(ctx context.Context, op string, call func(ctx context.Context, accessToken string) error) error {
	rec, _, _ := m.snapshot()
	if !rec.Complete() {
		return newError(op, KindAuthentication, msgSignInRequired, ErrNotAuthenticated)
	}

	err := m.callBackend(ctx, func(ctx context.Context) error { return call(ctx, rec.AccessToken) })
	if !api.IsUnauthorized(err) {
		return classify(op, err)
	}

	m.metrics.Inc(MetricBearerRetry)
	if rerr := m.refresh(ctx, op); rerr != nil {
		return rerr
	}
	rec, _, _ = m.snapshot()
	err = m.callBackend(ctx, func(ctx context.Context) error { return call(ctx, rec.AccessToken) })
	return classify(op, err)
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
