package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/storegate"
)

// Carrier reads credentials from a request and writes credential cookies.
type Carrier struct {
	AccessName    string
	RefreshName   string
	RefreshHeader string
	Domain        string
	Path          string
	Secure        bool
	SameSite      http.SameSite
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// NewCarrier derives the carrier from cfg.
func NewCarrier(cfg *storegate.Config) Carrier {
	return Carrier{
		AccessName:    cfg.Cookie.AccessName,
		RefreshName:   cfg.Cookie.RefreshName,
		RefreshHeader: cfg.Gate.RefreshHeader,
		Domain:        cfg.Cookie.Domain,
		Path:          cfg.Cookie.Path,
		Secure:        cfg.CookieSecure(),
		SameSite:      cfg.CookieSameSite(),
		AccessMaxAge:  cfg.Cookie.AccessMaxAge,
		RefreshMaxAge: cfg.Cookie.RefreshMaxAge,
	}
}

// AccessToken returns the bearer token, falling back to the access cookie.
func (c Carrier) AccessToken(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	return cookieValue(r, c.AccessName)
}

// RefreshToken returns the refresh cookie, falling back to the refresh header.
func (c Carrier) RefreshToken(r *http.Request) (string, bool) {
	if token, ok := cookieValue(r, c.RefreshName); ok {
		return token, true
	}
	if c.RefreshHeader == "" {
		return "", false
	}
	token := strings.TrimSpace(r.Header.Get(c.RefreshHeader))
	return token, token != ""
}

// SetTokens writes the access cookie and, when refresh is non-empty, the
// refresh cookie.
func (c Carrier) SetTokens(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, c.cookie(c.AccessName, access, c.AccessMaxAge))
	if refresh != "" {
		http.SetCookie(w, c.cookie(c.RefreshName, refresh, c.RefreshMaxAge))
	}
}

// Clear writes deletion cookies for both credentials.
func (c Carrier) Clear(w http.ResponseWriter) {
	for _, name := range []string{c.AccessName, c.RefreshName} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func (c Carrier) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

func cookieValue(r *http.Request, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	ck, err := r.Cookie(name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
