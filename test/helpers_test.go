//go:build integration
// +build integration

package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/jwt"
	"github.com/MrEthical07/storegate/session"
)

const testSecret = "integration-secret-0123456789abcdef"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// backend is a minimal stand-in for the retail REST API that signs real
// access tokens.
type backend struct {
	srv      *httptest.Server
	issuer   *jwt.Verifier
	refreshN atomic.Int32
	logoutN  atomic.Int32
}

func newBackend(t *testing.T, c *clock) *backend {
	t.Helper()
	issuer, err := jwt.NewVerifier(jwt.Config{Secret: []byte(testSecret), TTL: 10 * time.Minute, Now: c.Now})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	b := &backend{issuer: issuer}

	user := map[string]any{"id": "u1", "email": "cash@store.test", "role": "CASHIER", "storeId": "s1"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "correct horse" {
			reply(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid credentials"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"accessToken":  b.token(t),
			"refreshToken": "R1",
			"user":         user,
		}})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshN.Add(1)
		reply(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"accessToken": b.token(t),
		}})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutN.Add(1)
		reply(w, http.StatusOK, map[string]any{"success": true})
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) token(t *testing.T) string {
	tok, err := b.issuer.Issue(jwt.Claims{UID: "u1", Email: "cash@store.test", Role: "CASHIER", StoreID: "s1"})
	if err != nil {
		t.Errorf("issue: %v", err)
	}
	return tok
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb
}

func testConfig(backendURL string) storegate.Config {
	cfg := storegate.DefaultConfig()
	cfg.BackendURL = backendURL
	cfg.RequestTimeout = 2 * time.Second
	cfg.JWT.Secret = testSecret
	cfg.Store.Kind = "redis"
	return cfg
}

func newManager(t *testing.T, cfg storegate.Config, rdb redis.UniversalClient) *storegate.Manager {
	t.Helper()
	m, err := storegate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(zap.NewNop()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func redisStore(rdb redis.UniversalClient, cfg storegate.Config) *session.RedisStore {
	return session.NewRedisStore(rdb, cfg.Store.RedisPrefix, cfg.Store.RedisNamespace, cfg.Store.RedisTTL)
}
