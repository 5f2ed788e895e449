package storegate

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/storegate/jwt"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	default:
		return "HIGH"
	}
}

// LintWarning is a setting that is valid but probably not what a deployment
// wants.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings from Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing the warnings at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that pass Validate but weaken the deployment.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.JWT.Leeway > 30*time.Second {
		add("leeway_large", LintWarn, "jwt leeway above 30s keeps expired tokens usable")
	}
	if method, err := jwt.ParseSigningMethod(c.JWT.SigningMethod); err == nil && method == jwt.MethodHS256 {
		add("signing_hs256", LintInfo, "hs256 shares the signing secret with every verifier")
	}
	if c.IsProd() && !c.CookieSecure() {
		add("cookie_insecure", LintHigh, "credential cookies are sent over plain http in production")
	}
	if c.CookieSameSite() == http.SameSiteNoneMode {
		add("cookie_same_site_none", LintWarn, "same-site none sends credentials on cross-site requests")
	}
	if c.IsProd() && strings.HasPrefix(c.BackendURL, "http://") {
		add("backend_plain_http", LintHigh, "tokens travel to the backend unencrypted")
	}
	if c.Gate.RefreshThreshold >= c.Cookie.AccessMaxAge {
		add("refresh_threshold_exceeds_ttl", LintWarn, "every request will trigger a refresh exchange")
	}
	if c.Gate.RefreshReuseWindow > time.Minute {
		add("refresh_reuse_long", LintWarn, "refresh results are reused for over a minute")
	}
	if c.RequestTimeout > 30*time.Second {
		add("request_timeout_long", LintInfo, "a stalled backend keeps operations pending for over 30s")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "auth events are not audited")
	}
	if c.Store.Kind == "memory" {
		add("store_memory", LintInfo, "sessions do not survive a restart")
	}
	return ws
}
