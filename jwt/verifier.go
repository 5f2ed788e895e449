package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, wrong algorithms
	// and issuer or audience mismatches.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrNoSigningKey is returned by Issue on a verify-only configuration.
	ErrNoSigningKey = errors.New("verifier has no signing key")
)

// SigningMethod selects the token algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// ParseSigningMethod maps a configuration string to a SigningMethod.
func ParseSigningMethod(s string) (SigningMethod, error) {
	switch SigningMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodHS256, "":
		return MethodHS256, nil
	case MethodEd25519:
		return MethodEd25519, nil
	default:
		return "", fmt.Errorf("unsupported signing method %q", s)
	}
}

// Config configures a Verifier.
type Config struct {
	SigningMethod SigningMethod
	// Secret is the shared HS256 key.
	Secret []byte
	// PublicKey verifies Ed25519 tokens; raw 32 bytes or PEM.
	PublicKey []byte
	// PrivateKey is optional and only used by Issue; raw 64 bytes or PEM.
	PrivateKey []byte

	Issuer   string
	Audience string
	Leeway   time.Duration

	// TTL is the lifetime Issue stamps on tokens without an explicit expiry.
	TTL time.Duration
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Claims are the identity claims carried by an access token. The backend
// puts the user id in "id"; tokens that only set "sub" are accepted too.
type Claims struct {
	UID     string `json:"id,omitempty"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	StoreID string `json:"storeId,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject id.
func (c *Claims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Expiry returns the expiry instant, or the zero time when unset.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Remaining returns how long the token stays valid after now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	return c.Expiry().Sub(now)
}

// Verifier validates signed access tokens.
type Verifier struct {
	config    Config
	method    jwt.SigningMethod
	verifyKey any
	signKey   any
	parser    *jwt.Parser
}

// NewVerifier validates cfg and builds a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.TTL == 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	v := &Verifier{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires a secret")
		}
		v.method = jwt.SigningMethodHS256
		v.verifyKey = cfg.Secret
		v.signKey = cfg.Secret
	case MethodEd25519:
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires a public key")
		}
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		v.method = jwt.SigningMethodEdDSA
		v.verifyKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			v.signKey = priv
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(options...)

	return v, nil
}

// Now returns the verifier's clock reading.
func (v *Verifier) Now() time.Time {
	return v.config.Now()
}

// Verify checks the token's signature, algorithm and expiry and returns its
// claims. It never panics; every failure is ErrTokenExpired or ErrTokenInvalid.
func (v *Verifier) Verify(token string) (claims *Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, ErrTokenInvalid
		}
	}()

	if token == "" {
		return nil, ErrTokenInvalid
	}

	parsed, err := v.parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != v.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return v.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return c, nil
}

// Issue signs claims with the verifier's key. Missing iat and exp are filled
// from the clock and TTL. It exists for tests and local tooling; production
// tokens come from the backend.
func (v *Verifier) Issue(claims Claims) (string, error) {
	if v.signKey == nil {
		return "", ErrNoSigningKey
	}
	now := v.config.Now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(v.config.TTL))
	}
	if claims.Issuer == "" {
		claims.Issuer = v.config.Issuer
	}
	if v.config.Audience != "" && len(claims.Audience) == 0 {
		claims.Audience = jwt.ClaimStrings{v.config.Audience}
	}
	return jwt.NewWithClaims(v.method, claims).SignedString(v.signKey)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
