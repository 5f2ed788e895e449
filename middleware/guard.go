package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/internal/logger"
	"github.com/MrEthical07/storegate/permission"
)

// Guard returns the edge gate middleware. Every request ends in one of:
// forwarded to next, a 307 redirect, or a JSON 401/403 under the API prefix.
func Guard(g *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			defer func() { g.metrics.Observe(storegate.MetricGateLatency, time.Since(start)) }()

			if clean := permission.CleanPath(r.URL.Path); clean != r.URL.Path {
				r = r.Clone(r.Context())
				r.URL.Path = clean
				r.URL.RawPath = ""
				g.metrics.Inc(storegate.MetricGatePathRewrite)
			}

			v := g.evaluate(r)
			if v.clear {
				g.carrier.Clear(w)
			} else if v.refreshed != nil {
				g.carrier.SetTokens(w, v.refreshed.AccessToken, v.refreshed.RefreshToken)
			}

			logger.From(r.Context()).Debug("gate decision",
				logger.Path(r.URL.Path),
				logger.Decision(v.reason),
			)

			switch v.action {
			case permission.ActionAllow:
				if v.identity == nil {
					g.metrics.Inc(storegate.MetricGatePublic)
					next.ServeHTTP(w, r)
					return
				}
				g.metrics.Inc(storegate.MetricGateAllow)
				ctx := storegate.WithIdentity(r.Context(), *v.identity)
				ctx = logger.Enrich(ctx, logger.UserID(v.identity.UserID), logger.Role(v.identity.Role))
				next.ServeHTTP(w, r.WithContext(ctx))

			default:
				g.deny(w, r, v.action, false)
			}
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
