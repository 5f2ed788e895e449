//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/jwt"
	"github.com/MrEthical07/storegate/middleware"
	"github.com/MrEthical07/storegate/session"
)

func newGuard(t *testing.T, cfg storegate.Config, c *clock) (http.Handler, *storegate.Metrics) {
	t.Helper()
	v, err := jwt.NewVerifier(jwt.Config{Secret: []byte(testSecret), Now: c.Now})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	refresher, err := storegate.NewBackendRefresher(cfg, nil)
	if err != nil {
		t.Fatalf("refresher: %v", err)
	}
	matrix, err := storegate.LoadMatrix("")
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	metrics := storegate.NewMetrics(cfg.Metrics)
	g, err := middleware.NewGate(cfg, middleware.GateDeps{
		Verifier:  v,
		Matrix:    matrix,
		Refresher: refresher,
		Metrics:   metrics,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	return middleware.Guard(g)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})), metrics
}

func browse(h http.Handler, path string, s storegate.Session) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.AddCookie(&http.Cookie{Name: "access_token", Value: s.AccessToken})
	r.AddCookie(&http.Cookie{Name: "refresh_token", Value: s.RefreshToken})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestSignedInSessionPassesTheEdge(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	b := newBackend(t, c)
	cfg := testConfig(b.srv.URL)
	rdb := newRedis(t)
	ctx := context.Background()

	m := newManager(t, cfg, rdb)
	if err := m.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate failed: %v", err)
	}
	if _, err := m.Login(ctx, "cash@store.test", "correct horse"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	guard, metrics := newGuard(t, cfg, c)
	s := m.Session()

	if rec := browse(guard, "/sales/new", s); rec.Code != http.StatusOK {
		t.Fatalf("expected cashier to reach /sales/new, got %d", rec.Code)
	}
	rec := browse(guard, "/employees", s)
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect home, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	// inside the refresh threshold the edge renews the access cookie
	c.Advance(6 * time.Minute)
	rec = browse(guard, "/sales", s)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected request to continue during refresh, got %d", rec.Code)
	}
	if b.refreshN.Load() != 1 {
		t.Fatalf("expected one refresh exchange, got %d", b.refreshN.Load())
	}
	var renewed bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "access_token" && ck.Value != "" && ck.Value != s.AccessToken {
			renewed = true
		}
	}
	if !renewed {
		t.Fatal("expected a renewed access cookie")
	}
	if metrics.Value(storegate.MetricGateRefreshSuccess) != 1 {
		t.Fatalf("expected refresh success metric, got %d", metrics.Value(storegate.MetricGateRefreshSuccess))
	}

	// past expiry the old cookie is rejected and cleared
	c.Advance(5 * time.Minute)
	rec = browse(guard, "/sales", s)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected sign-in redirect for expired token, got %d", rec.Code)
	}
}

func TestSessionIsSharedThroughRedis(t *testing.T) {
	c := &clock{now: time.Now()}
	b := newBackend(t, c)
	cfg := testConfig(b.srv.URL)
	rdb := newRedis(t)
	ctx := context.Background()

	first := newManager(t, cfg, rdb)
	_ = first.Rehydrate(ctx)
	if _, err := first.Login(ctx, "cash@store.test", "correct horse"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	second := newManager(t, cfg, rdb)
	if err := second.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate failed: %v", err)
	}
	if !second.Session().IsAuthenticated {
		t.Fatal("expected second manager to restore the session")
	}
	if got := second.Session().Role(); got != "CASHIER" {
		t.Fatalf("expected CASHIER, got %q", got)
	}

	if err := first.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if b.logoutN.Load() != 1 {
		t.Fatalf("expected backend logout, got %d", b.logoutN.Load())
	}
	if _, err := redisStore(rdb, cfg).Load(ctx); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected cleared store, got %v", err)
	}

	third := newManager(t, cfg, rdb)
	if err := third.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate failed: %v", err)
	}
	if third.Session().IsAuthenticated {
		t.Fatal("expected anonymous state after logout elsewhere")
	}
}

func TestPartialRedisRecordIsDiscarded(t *testing.T) {
	c := &clock{now: time.Now()}
	b := newBackend(t, c)
	cfg := testConfig(b.srv.URL)
	rdb := newRedis(t)
	ctx := context.Background()

	access := cfg.Store.RedisPrefix + ":" + cfg.Store.RedisNamespace + ":access"
	if err := rdb.Set(ctx, access, "T-orphan", 0).Err(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	m := newManager(t, cfg, rdb)
	err := m.Rehydrate(ctx)
	if storegate.KindOf(err) != storegate.KindCorruptState {
		t.Fatalf("expected corrupt state, got %v", err)
	}
	if n, _ := rdb.Exists(ctx, access).Result(); n != 0 {
		t.Fatal("expected orphan key to be cleared")
	}
}
