package middleware

import (
	"net/http"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/permission"
)

// RequireRole admits only callers whose identity, placed in the context by
// Guard or RequireIdentity, carries one of roles. A caller without an
// identity is sent to sign-in; a caller with another role is sent home.
func RequireRole(g *Gate, roles ...permission.Role) func(http.Handler) http.Handler {
	allowed := make(map[permission.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := storegate.IdentityFromContext(r.Context())
			if !ok {
				g.deny(w, r, permission.ActionRedirectSignIn, false)
				return
			}
			role, err := permission.ParseRole(id.Role)
			if _, granted := allowed[role]; err != nil || !granted {
				g.deny(w, r, permission.ActionRedirectHome, false)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
