package storegate

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MrEthical07/storegate/jwt"
)

// PlaceholderSecret is the development signing secret. Validate refuses it
// in production.
const PlaceholderSecret = "dev-only-insecure-secret-change-me"

// Config holds every setting of the session manager and the edge gate. It is
// read once at startup and never mutated afterwards.
type Config struct {
	// AppEnv is "dev" or "prod".
	AppEnv string `env:"STOREGATE_ENV" envDefault:"dev"`
	// BackendURL is the REST API root the auth endpoints hang off.
	BackendURL     string        `env:"STOREGATE_BACKEND_URL"     envDefault:"http://localhost:4000/api"`
	RequestTimeout time.Duration `env:"STOREGATE_REQUEST_TIMEOUT" envDefault:"10s"`
	// MatrixFile optionally replaces the built-in permission matrix.
	MatrixFile string `env:"STOREGATE_MATRIX_FILE"`

	JWT     JWTConfig
	Cookie  CookieConfig
	Gate    GateConfig
	Store   StoreConfig
	Log     LogConfig
	Metrics MetricsConfig
	Audit   AuditConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access-token verification.
type JWTConfig struct {
	SigningMethod string `env:"STOREGATE_JWT_SIGNING_METHOD" envDefault:"hs256"`
	Secret        string `env:"STOREGATE_JWT_SECRET"         envDefault:"dev-only-insecure-secret-change-me"`
	// PublicKeyFile holds the Ed25519 verification key (PEM).
	PublicKeyFile string        `env:"STOREGATE_JWT_PUBLIC_KEY_FILE"`
	Issuer        string        `env:"STOREGATE_JWT_ISSUER"`
	Audience      string        `env:"STOREGATE_JWT_AUDIENCE"`
	Leeway        time.Duration `env:"STOREGATE_JWT_LEEWAY" envDefault:"0s"`
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the credential cookies the edge gate reads and writes.
type CookieConfig struct {
	AccessName  string `env:"STOREGATE_COOKIE_ACCESS_NAME"  envDefault:"access_token"`
	RefreshName string `env:"STOREGATE_COOKIE_REFRESH_NAME" envDefault:"refresh_token"`
	Domain      string `env:"STOREGATE_COOKIE_DOMAIN"`
	Path        string `env:"STOREGATE_COOKIE_PATH" envDefault:"/"`
	// Secure is "auto" (on in prod), "true" or "false".
	Secure   string `env:"STOREGATE_COOKIE_SECURE"    envDefault:"auto"`
	SameSite string `env:"STOREGATE_COOKIE_SAME_SITE" envDefault:"lax"`
	// AccessMaxAge is the lifetime of a refreshed access cookie.
	AccessMaxAge time.Duration `env:"STOREGATE_COOKIE_ACCESS_MAX_AGE" envDefault:"15m"`
	// RefreshMaxAge is the lifetime of a rotated refresh cookie.
	RefreshMaxAge time.Duration `env:"STOREGATE_COOKIE_REFRESH_MAX_AGE" envDefault:"168h"`
}

/*
====================================
GATE CONFIG
====================================
*/

// GateConfig tunes the edge gate.
type GateConfig struct {
	// RefreshThreshold triggers a refresh exchange when a valid token has
	// less remaining lifetime than this.
	RefreshThreshold time.Duration `env:"STOREGATE_GATE_REFRESH_THRESHOLD" envDefault:"5m"`
	// RefreshReuseWindow is how long a refresh result is reused for the
	// same refresh token.
	RefreshReuseWindow time.Duration `env:"STOREGATE_GATE_REFRESH_REUSE_WINDOW" envDefault:"30s"`
	// APIPrefix marks requests answered with JSON instead of redirects.
	APIPrefix string `env:"STOREGATE_GATE_API_PREFIX" envDefault:"/api/"`
	// APIPublicPrefixes are API paths reachable without a session, such as
	// the backend's own auth endpoints.
	APIPublicPrefixes []string `env:"STOREGATE_GATE_API_PUBLIC" envSeparator:"," envDefault:"/api/auth/"`
	RefreshHeader     string   `env:"STOREGATE_GATE_REFRESH_HEADER" envDefault:"X-Refresh-Token"`
	// Upstream is the application the edge binary proxies to.
	Upstream   string `env:"STOREGATE_GATE_UPSTREAM" envDefault:"http://localhost:3000"`
	ListenAddr string `env:"STOREGATE_GATE_LISTEN"   envDefault:":8080"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig selects the session store of the CLI client.
type StoreConfig struct {
	// Kind is "file", "redis" or "memory".
	Kind string `env:"STOREGATE_STORE" envDefault:"file"`
	// Path is the file store location; empty means the user config dir.
	Path           string        `env:"STOREGATE_STORE_PATH"`
	RedisAddr      string        `env:"STOREGATE_REDIS_ADDR"`
	RedisPassword  string        `env:"STOREGATE_REDIS_PASSWORD"`
	RedisDB        int           `env:"STOREGATE_REDIS_DB" envDefault:"0"`
	RedisPrefix    string        `env:"STOREGATE_REDIS_PREFIX"    envDefault:"sg"`
	RedisNamespace string        `env:"STOREGATE_REDIS_NAMESPACE" envDefault:"default"`
	RedisTTL       time.Duration `env:"STOREGATE_REDIS_TTL"       envDefault:"0s"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type LogConfig struct {
	Level string `env:"STOREGATE_LOG_LEVEL" envDefault:"info"`
}

type MetricsConfig struct {
	Enabled                 bool `env:"STOREGATE_METRICS_ENABLED" envDefault:"true"`
	EnableLatencyHistograms bool `env:"STOREGATE_METRICS_LATENCY" envDefault:"true"`
}

type AuditConfig struct {
	Enabled    bool `env:"STOREGATE_AUDIT_ENABLED"     envDefault:"true"`
	BufferSize int  `env:"STOREGATE_AUDIT_BUFFER_SIZE" envDefault:"256"`
	DropIfFull bool `env:"STOREGATE_AUDIT_DROP_IF_FULL" envDefault:"true"`
}

// DefaultConfig returns the configuration with every default applied and no
// environment read.
func DefaultConfig() Config {
	var cfg Config
	// defaults are literals above; parsing an empty environment cannot fail
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// LoadConfig reads the process environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProd reports whether AppEnv is production.
func (c *Config) IsProd() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "prod", "production":
		return true
	}
	return false
}

// CookieSecure resolves the Secure setting.
func (c *Config) CookieSecure() bool {
	switch strings.ToLower(c.Cookie.Secure) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return c.IsProd()
	}
}

// CookieSameSite maps the SameSite setting to net/http's constant.
func (c *Config) CookieSameSite() http.SameSite {
	s, _ := parseSameSite(c.Cookie.SameSite)
	return s
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return http.SameSiteDefaultMode, fmt.Errorf("invalid same-site value %q", v)
	}
}

// NewVerifier builds the token verifier described by the JWT section.
func (c *Config) NewVerifier() (*jwt.Verifier, error) {
	method, err := jwt.ParseSigningMethod(c.JWT.SigningMethod)
	if err != nil {
		return nil, err
	}
	jc := jwt.Config{
		SigningMethod: method,
		Issuer:        c.JWT.Issuer,
		Audience:      c.JWT.Audience,
		Leeway:        c.JWT.Leeway,
	}
	switch method {
	case jwt.MethodEd25519:
		pem, err := os.ReadFile(c.JWT.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt public key: %w", err)
		}
		jc.PublicKey = pem
	default:
		jc.Secret = []byte(c.JWT.Secret)
	}
	return jwt.NewVerifier(jc)
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for unusable or unsafe values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend url %q", c.BackendURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}

	method, err := jwt.ParseSigningMethod(c.JWT.SigningMethod)
	if err != nil {
		return err
	}
	switch method {
	case jwt.MethodHS256:
		if c.JWT.Secret == "" {
			return errors.New("jwt secret required for hs256")
		}
		if c.IsProd() {
			if c.JWT.Secret == PlaceholderSecret {
				return errors.New("jwt secret is the development placeholder; set STOREGATE_JWT_SECRET")
			}
			if len(c.JWT.Secret) < 32 {
				return errors.New("jwt secret must be at least 32 bytes in production")
			}
		}
	case jwt.MethodEd25519:
		if c.JWT.PublicKeyFile == "" {
			return errors.New("jwt public key file required for ed25519")
		}
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("jwt leeway must be between 0 and 2m")
	}

	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("cookie names must be set")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName {
		return errors.New("access and refresh cookie names must differ")
	}
	sameSite, err := parseSameSite(c.Cookie.SameSite)
	if err != nil {
		return err
	}
	if sameSite == http.SameSiteNoneMode && !c.CookieSecure() {
		return errors.New("same-site none requires secure cookies")
	}
	if c.Cookie.AccessMaxAge <= 0 || c.Cookie.RefreshMaxAge <= 0 {
		return errors.New("cookie max age must be positive")
	}

	if c.Gate.RefreshThreshold <= 0 {
		return errors.New("gate refresh threshold must be positive")
	}
	if c.Gate.RefreshReuseWindow < 0 {
		return errors.New("gate refresh reuse window must not be negative")
	}
	if !strings.HasPrefix(c.Gate.APIPrefix, "/") {
		return errors.New("gate api prefix must start with /")
	}
	for _, p := range c.Gate.APIPublicPrefixes {
		if !strings.HasPrefix(p, c.Gate.APIPrefix) {
			return fmt.Errorf("public api prefix %q is outside %q", p, c.Gate.APIPrefix)
		}
	}

	switch c.Store.Kind {
	case "file", "memory":
	case "redis":
		if c.Store.RedisAddr == "" {
			return errors.New("redis store requires STOREGATE_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Store.Kind)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
