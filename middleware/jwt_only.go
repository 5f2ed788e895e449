package middleware

import (
	"net/http"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/permission"
)

// RequireIdentity verifies the access token and forwards the caller's
// identity without consulting the permission matrix or refreshing. Failures
// are answered like the gate answers them for the request's path.
func RequireIdentity(g *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := g.carrier.AccessToken(r)
			if !ok {
				g.deny(w, r, permission.ActionRedirectSignIn, false)
				return
			}
			claims, err := g.verifier.Verify(token)
			if err != nil {
				g.metrics.Inc(storegate.MetricGateInvalidToken)
				g.deny(w, r, permission.ActionRedirectSignIn, true)
				return
			}

			ctx := storegate.WithIdentity(r.Context(), storegate.Identity{
				UserID:    claims.UserID(),
				Email:     claims.Email,
				Role:      claims.Role,
				StoreID:   claims.StoreID,
				ExpiresAt: claims.Expiry(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, action permission.Action, clear bool) {
	if clear {
		g.carrier.Clear(w)
	}
	api := g.isAPI(r.URL.Path)
	switch action {
	case permission.ActionRedirectHome:
		g.metrics.Inc(storegate.MetricGateRedirectHome)
		if api {
			writeJSONError(w, http.StatusForbidden, "You do not have access to this resource.")
			return
		}
		http.Redirect(w, r, g.routes.Home, http.StatusTemporaryRedirect)
	default:
		g.metrics.Inc(storegate.MetricGateRedirectSignIn)
		if api {
			writeJSONError(w, http.StatusUnauthorized, "Authentication required.")
			return
		}
		http.Redirect(w, r, g.routes.SignInURL(r.URL.RequestURI()), http.StatusTemporaryRedirect)
	}
}
