package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/internal/logger"
	"github.com/MrEthical07/storegate/jwt"
	"github.com/MrEthical07/storegate/permission"
)

// GateDeps are the collaborators of a Gate. Refresher, Metrics and Logger
// are optional; without a Refresher tokens are never refreshed.
type GateDeps struct {
	Verifier  *jwt.Verifier
	Matrix    *permission.Matrix
	Refresher Refresher
	Metrics   *storegate.Metrics
	Logger    *zap.Logger
}

// Gate holds the gate's read-only configuration. It is safe for concurrent
// use; the refresh cache is its only mutable state.
type Gate struct {
	verifier  *jwt.Verifier
	matrix    *permission.Matrix
	routes    permission.Routes
	carrier   Carrier
	refresh   *refreshCoordinator
	threshold time.Duration
	apiPrefix string
	apiPublic []string
	metrics   *storegate.Metrics
	log       *zap.Logger
}

// NewGate builds a gate from cfg's cookie and gate sections.
func NewGate(cfg storegate.Config, deps GateDeps) (*Gate, error) {
	if deps.Verifier == nil {
		return nil, errors.New("gate requires a token verifier")
	}
	if deps.Matrix == nil {
		return nil, errors.New("gate requires a permission matrix")
	}
	if cfg.Gate.RefreshThreshold <= 0 {
		return nil, fmt.Errorf("invalid refresh threshold %s", cfg.Gate.RefreshThreshold)
	}

	g := &Gate{
		verifier:  deps.Verifier,
		matrix:    deps.Matrix,
		routes:    deps.Matrix.Routes(),
		carrier:   NewCarrier(&cfg),
		threshold: cfg.Gate.RefreshThreshold,
		apiPrefix: cfg.Gate.APIPrefix,
		apiPublic: cfg.Gate.APIPublicPrefixes,
		metrics:   deps.Metrics,
		log:       deps.Logger,
	}
	if deps.Refresher != nil {
		g.refresh = newRefreshCoordinator(deps.Refresher, cfg.RequestTimeout, cfg.Gate.RefreshReuseWindow)
	}
	if g.log == nil {
		g.log = logger.Named("gate")
	}
	return g, nil
}

// Carrier returns the cookie settings the gate writes with.
func (g *Gate) Carrier() Carrier { return g.carrier }

// verdict is the outcome of evaluating one request.
type verdict struct {
	action   permission.Action
	identity *storegate.Identity
	// clear asks for deletion cookies on the response.
	clear bool
	// refreshed carries tokens to set on the response.
	refreshed *storegate.TokenPair
	reason    string
}

// isAPI reports whether p is answered with JSON.
func (g *Gate) isAPI(p string) bool {
	if g.apiPrefix == "" {
		return false
	}
	return strings.HasPrefix(p, g.apiPrefix) || p == strings.TrimSuffix(g.apiPrefix, "/")
}

func (g *Gate) isPublicAPI(p string) bool {
	for _, prefix := range g.apiPublic {
		if strings.HasPrefix(p, prefix) || p == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	return false
}

// authzPath is the decoded path the matrix sees, the same form the public
// check and the client guard use. API paths are authorized as the page route
// they serve, so /api/sales/7 needs the same grant as /sales/7. A decoded '?'
// stays escaped so it cannot cut the path short.
func (g *Gate) authzPath(r *http.Request) string {
	p := r.URL.Path
	if g.isAPI(p) {
		p = strings.TrimPrefix(p, strings.TrimSuffix(g.apiPrefix, "/"))
		if p == "" {
			p = "/"
		}
	}
	return strings.ReplaceAll(p, "?", "%3F")
}

// evaluate runs classify, extract, verify, refresh-check and authorize. A
// panic anywhere in it is treated as an unauthenticated request.
func (g *Gate) evaluate(r *http.Request) (v verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			g.metrics.Inc(storegate.MetricGatePanicRecovered)
			g.log.Error("gate evaluation panicked", zap.Any("panic", rec), logger.Path(r.URL.Path))
			v = verdict{
				action: permission.ActionRedirectSignIn,
				reason: "panic",
			}
		}
	}()

	api := g.isAPI(r.URL.Path)
	if api && g.isPublicAPI(r.URL.Path) {
		return verdict{action: permission.ActionAllow, reason: "public"}
	}
	if !api && g.routes.Classify(r.URL.Path) == permission.RoutePublic {
		return verdict{action: permission.ActionAllow, reason: "public"}
	}

	token, ok := g.carrier.AccessToken(r)
	if !ok {
		return verdict{
			action: permission.ActionRedirectSignIn,
			reason: "no_token",
		}
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		g.metrics.Inc(storegate.MetricGateInvalidToken)
		return verdict{
			action: permission.ActionRedirectSignIn,
			clear:  true,
			reason: "invalid_token",
		}
	}

	id := storegate.Identity{
		UserID:    claims.UserID(),
		Email:     claims.Email,
		Role:      claims.Role,
		StoreID:   claims.StoreID,
		ExpiresAt: claims.Expiry(),
	}
	v = verdict{identity: &id}

	if g.refresh != nil && claims.Remaining(g.verifier.Now()) < g.threshold {
		v.refreshed = g.tryRefresh(r, &id)
	}

	d := permission.Decide(g.matrix, permission.Authenticated(claims.Role), g.authzPath(r))
	if d.Action != permission.ActionAllow {
		v.action = permission.ActionRedirectHome
		v.reason = "forbidden"
		return v
	}
	v.action = permission.ActionAllow
	v.reason = "allowed"
	return v
}

// tryRefresh performs the refresh exchange. Failures are logged and the
// request continues on its current token.
func (g *Gate) tryRefresh(r *http.Request, id *storegate.Identity) *storegate.TokenPair {
	refreshToken, ok := g.carrier.RefreshToken(r)
	if !ok {
		return nil
	}
	pair, shared, err := g.refresh.refresh(r.Context(), refreshToken)
	if err != nil {
		g.metrics.Inc(storegate.MetricGateRefreshFailure)
		logger.From(r.Context()).Warn("token refresh failed",
			logger.UserID(id.UserID),
			logger.Err(err),
		)
		return nil
	}
	if shared {
		g.metrics.Inc(storegate.MetricGateRefreshShared)
	} else {
		g.metrics.Inc(storegate.MetricGateRefreshSuccess)
	}
	return &pair
}
