package flows

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/storegate/internal/api"
	"github.com/MrEthical07/storegate/session"
)

type stubBackend struct {
	login     *api.AuthPayload
	loginErr  error
	pair      *api.TokenPair
	refresh   error
	logoutErr error

	refreshed []string
	loggedOut int
}

func (s *stubBackend) Login(context.Context, string, string) (*api.AuthPayload, error) {
	return s.login, s.loginErr
}

func (s *stubBackend) Refresh(_ context.Context, token string) (*api.TokenPair, error) {
	s.refreshed = append(s.refreshed, token)
	return s.pair, s.refresh
}

func (s *stubBackend) Logout(context.Context, string, string) error {
	s.loggedOut++
	return s.logoutErr
}

func passthrough(raw []byte) ([]byte, error) { return raw, nil }

func TestRunLogin(t *testing.T) {
	ok := &api.AuthPayload{AccessToken: "a", RefreshToken: "r", User: []byte(`{"id":"u1"}`)}

	res := RunLogin(context.Background(), "e", "p", LoginDeps{Backend: &stubBackend{login: ok}, Normalize: passthrough})
	require.Equal(t, EstablishFailureNone, res.Failure)
	assert.True(t, res.Record.Complete())

	res = RunLogin(context.Background(), "e", "p", LoginDeps{
		Backend:   &stubBackend{loginErr: &api.Error{Status: http.StatusUnauthorized}},
		Normalize: passthrough,
	})
	assert.Equal(t, EstablishFailureBackend, res.Failure)

	res = RunLogin(context.Background(), "e", "p", LoginDeps{
		Backend:   &stubBackend{login: &api.AuthPayload{AccessToken: "a", User: ok.User}},
		Normalize: passthrough,
	})
	assert.Equal(t, EstablishFailureNoTokens, res.Failure)

	bad := errors.New("bad role")
	res = RunLogin(context.Background(), "e", "p", LoginDeps{
		Backend:   &stubBackend{login: ok},
		Normalize: func([]byte) ([]byte, error) { return nil, bad },
	})
	assert.Equal(t, EstablishFailureInvalidUser, res.Failure)
	assert.ErrorIs(t, res.Err, bad)
}

func TestRunRefresh(t *testing.T) {
	current := session.Record{AccessToken: "a1", RefreshToken: "r1", User: []byte(`{}`)}

	res := RunRefresh(context.Background(), session.Record{}, RefreshDeps{Backend: &stubBackend{}})
	assert.Equal(t, RefreshFailureMissingToken, res.Failure)
	assert.ErrorIs(t, res.Err, ErrMissingRefreshToken)

	b := &stubBackend{pair: &api.TokenPair{AccessToken: "a2"}}
	res = RunRefresh(context.Background(), current, RefreshDeps{Backend: b})
	require.Equal(t, RefreshFailureNone, res.Failure)
	assert.Equal(t, "a2", res.Record.AccessToken)
	assert.Equal(t, "r1", res.Record.RefreshToken)
	assert.False(t, res.Rotated)
	assert.Equal(t, []string{"r1"}, b.refreshed)

	res = RunRefresh(context.Background(), current, RefreshDeps{Backend: &stubBackend{pair: &api.TokenPair{AccessToken: "a2", RefreshToken: "r2"}}})
	assert.True(t, res.Rotated)
	assert.Equal(t, "r2", res.Record.RefreshToken)

	res = RunRefresh(context.Background(), current, RefreshDeps{Backend: &stubBackend{refresh: &api.Error{Network: true}}})
	assert.Equal(t, RefreshFailureNetwork, res.Failure)

	res = RunRefresh(context.Background(), current, RefreshDeps{Backend: &stubBackend{refresh: context.DeadlineExceeded}})
	assert.Equal(t, RefreshFailureNetwork, res.Failure)

	res = RunRefresh(context.Background(), current, RefreshDeps{Backend: &stubBackend{refresh: &api.Error{Status: http.StatusUnauthorized}}})
	assert.Equal(t, RefreshFailureRejected, res.Failure)
}

func TestRunLogoutClearsDespiteNotifyFailure(t *testing.T) {
	store := session.NewMemoryStore()
	rec := session.Record{AccessToken: "a", RefreshToken: "r", User: []byte(`{}`)}
	require.NoError(t, store.Save(context.Background(), rec))

	var warned []string
	b := &stubBackend{logoutErr: errors.New("down")}
	res := RunLogout(context.Background(), rec, LogoutDeps{
		Backend: b,
		Store:   store,
		Notify:  true,
		Warn:    func(msg string, _ error) { warned = append(warned, msg) },
	})
	assert.Error(t, res.NotifyErr)
	assert.NoError(t, res.ClearErr)
	assert.Equal(t, 1, b.loggedOut)
	assert.Len(t, warned, 1)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRunLogoutSkipsNotifyWithoutToken(t *testing.T) {
	b := &stubBackend{}
	res := RunLogout(context.Background(), session.Record{}, LogoutDeps{Backend: b, Store: session.NewMemoryStore(), Notify: true})
	assert.NoError(t, res.ClearErr)
	assert.Zero(t, b.loggedOut)
}

func TestRunLogoutClearsOnCanceledContext(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), session.Record{AccessToken: "a", RefreshToken: "r", User: []byte(`{}`)}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := RunLogout(ctx, session.Record{}, LogoutDeps{Store: store})
	assert.NoError(t, res.ClearErr)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRunRehydrate(t *testing.T) {
	store := session.NewMemoryStore()
	deps := RehydrateDeps{Store: store, Normalize: passthrough}

	assert.Equal(t, RehydrateAbsent, RunRehydrate(context.Background(), deps).Outcome)

	store.Put(session.Record{AccessToken: "a"})
	assert.Equal(t, RehydrateCorrupt, RunRehydrate(context.Background(), deps).Outcome)

	store.Put(session.Record{AccessToken: "a", RefreshToken: "r", User: []byte(`{"id":"u1"}`)})
	res := RunRehydrate(context.Background(), deps)
	require.Equal(t, RehydrateRestored, res.Outcome)
	assert.Equal(t, "a", res.Record.AccessToken)

	res = RunRehydrate(context.Background(), RehydrateDeps{
		Store:     store,
		Normalize: func([]byte) ([]byte, error) { return nil, errors.New("no role") },
	})
	assert.Equal(t, RehydrateCorrupt, res.Outcome)
	assert.ErrorIs(t, res.Err, session.ErrCorrupt)
}
