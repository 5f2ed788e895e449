package middleware

import (
	"net/http"

	"github.com/MrEthical07/storegate"
)

// Identity headers the edge sets on proxied requests.
const (
	HeaderUserID  = "X-Storegate-User-Id"
	HeaderEmail   = "X-Storegate-Email"
	HeaderRole    = "X-Storegate-Role"
	HeaderStoreID = "X-Storegate-Store-Id"
)

// ForwardIdentity replaces any client-supplied identity headers on h with the
// verified identity in r's context. Without one the headers are only removed.
func ForwardIdentity(r *http.Request, h http.Header) {
	for _, k := range []string{HeaderUserID, HeaderEmail, HeaderRole, HeaderStoreID} {
		h.Del(k)
	}
	id, ok := storegate.IdentityFromContext(r.Context())
	if !ok {
		return
	}
	h.Set(HeaderUserID, id.UserID)
	h.Set(HeaderEmail, id.Email)
	h.Set(HeaderRole, id.Role)
	if id.StoreID != "" {
		h.Set(HeaderStoreID, id.StoreID)
	}
}
