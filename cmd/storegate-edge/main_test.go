package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/jwt"
	"github.com/MrEthical07/storegate/middleware"
	"github.com/MrEthical07/storegate/permission"
)

func newTestEdge(t *testing.T) (http.Handler, *jwt.Verifier, *http.Header) {
	t.Helper()
	var seen http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)
	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	v, err := jwt.NewVerifier(jwt.Config{Secret: []byte("edge-test-secret-0123456789abcdef"), TTL: 10 * time.Minute})
	require.NoError(t, err)

	cfg := storegate.DefaultConfig()
	metrics := storegate.NewMetrics(cfg.Metrics)
	gate, err := middleware.NewGate(cfg, middleware.GateDeps{
		Verifier: v,
		Matrix:   permission.DefaultMatrix(),
		Metrics:  metrics,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return newRouter(gate, metrics, u), v, &seen
}

func issue(t *testing.T, v *jwt.Verifier, role string) string {
	t.Helper()
	tok, err := v.Issue(jwt.Claims{UID: "u9", Email: "m@x.com", Role: role, StoreID: "s2"})
	require.NoError(t, err)
	return tok
}

func TestEdgeProxiesWithIdentity(t *testing.T) {
	h, v, seen := newTestEdge(t)

	r := httptest.NewRequest(http.MethodGet, "/reports/daily", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, v, "MANAGER"))
	r.Header.Set(middleware.HeaderRole, "ADMIN")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MANAGER", seen.Get(middleware.HeaderRole))
	assert.Equal(t, "u9", seen.Get(middleware.HeaderUserID))
	assert.Equal(t, "s2", seen.Get(middleware.HeaderStoreID))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestEdgeRedirectsAnonymous(t *testing.T) {
	h, _, _ := newTestEdge(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/sign-in?redirect=%2Freports", rec.Header().Get("Location"))
}

func TestEdgeOperationalRoutes(t *testing.T) {
	h, v, _ := newTestEdge(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storegate_gate_allow_total")

	r := httptest.NewRequest(http.MethodGet, "/_storegate/stats", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, v, "CASHIER"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/_storegate/stats", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, v, "ADMIN"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/_storegate/me", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, v, "CASHIER"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"CASHIER"`)
}
