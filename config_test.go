package storegate

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "access_token", cfg.Cookie.AccessName)
	assert.Equal(t, "refresh_token", cfg.Cookie.RefreshName)
	assert.Equal(t, 5*time.Minute, cfg.Gate.RefreshThreshold)
	assert.Equal(t, "/api/", cfg.Gate.APIPrefix)
	assert.Equal(t, "file", cfg.Store.Kind)
	assert.False(t, cfg.CookieSecure())
	assert.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("STOREGATE_BACKEND_URL", "https://api.store.test/v1")
	t.Setenv("STOREGATE_REQUEST_TIMEOUT", "3s")
	t.Setenv("STOREGATE_GATE_REFRESH_THRESHOLD", "2m")
	t.Setenv("STOREGATE_STORE", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.store.test/v1", cfg.BackendURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Gate.RefreshThreshold)
	assert.Equal(t, "memory", cfg.Store.Kind)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	t.Setenv("STOREGATE_REQUEST_TIMEOUT", "soon")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigValidateProductionSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AppEnv = "prod"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")

	cfg.JWT.Secret = "too-short"
	require.Error(t, cfg.Validate())

	cfg.JWT.Secret = strings.Repeat("k", 32)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.CookieSecure())
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"backend scheme":   func(c *Config) { c.BackendURL = "ftp://x" },
		"zero timeout":     func(c *Config) { c.RequestTimeout = 0 },
		"signing method":   func(c *Config) { c.JWT.SigningMethod = "rs512" },
		"ed25519 no key":   func(c *Config) { c.JWT.SigningMethod = "ed25519" },
		"leeway":           func(c *Config) { c.JWT.Leeway = 5 * time.Minute },
		"same cookie name": func(c *Config) { c.Cookie.RefreshName = c.Cookie.AccessName },
		"same-site value":  func(c *Config) { c.Cookie.SameSite = "sometimes" },
		"none insecure":    func(c *Config) { c.Cookie.SameSite = "none"; c.Cookie.Secure = "false" },
		"threshold":        func(c *Config) { c.Gate.RefreshThreshold = 0 },
		"api prefix":       func(c *Config) { c.Gate.APIPrefix = "api" },
		"store kind":       func(c *Config) { c.Store.Kind = "sqlite" },
		"redis addr":       func(c *Config) { c.Store.Kind = "redis" },
		"audit buffer":     func(c *Config) { c.Audit.BufferSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigNewVerifierEd25519ReadsKeyFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "ed25519"
	cfg.JWT.PublicKeyFile = filepath.Join(t.TempDir(), "missing.pem")
	_, err := cfg.NewVerifier()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigNewVerifierHS256(t *testing.T) {
	cfg := DefaultConfig()
	v, err := cfg.NewVerifier()
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestLintDefaults(t *testing.T) {
	cfg := DefaultConfig()
	ws := cfg.Lint()
	assert.Contains(t, ws.Codes(), "signing_hs256")
	assert.NotContains(t, ws.Codes(), "cookie_insecure")
	assert.NoError(t, ws.AsError(LintHigh))
}

func TestLintProductionOverHTTP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AppEnv = "prod"
	cfg.Cookie.Secure = "false"
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	assert.ElementsMatch(t, []string{"cookie_insecure", "backend_plain_http"}, high.Codes())
	assert.Error(t, ws.AsError(LintHigh))
}

func TestLintRefreshThresholdAboveTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gate.RefreshThreshold = 20 * time.Minute
	assert.Contains(t, cfg.Lint().Codes(), "refresh_threshold_exceeds_ttl")
}
