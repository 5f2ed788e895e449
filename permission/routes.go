package permission

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// RouteClass is the classification of a request path.
type RouteClass uint8

const (
	// RoutePublic needs no session.
	RoutePublic RouteClass = iota
	// RouteAuthenticatedHome is reachable by any valid session regardless of role.
	RouteAuthenticatedHome
	// RouteRoleScoped is reachable only when the matrix grants it.
	RouteRoleScoped
)

func (c RouteClass) String() string {
	switch c {
	case RoutePublic:
		return "public"
	case RouteAuthenticatedHome:
		return "authenticated-home"
	default:
		return "role-scoped"
	}
}

// RedirectParam is the query parameter carrying the originally requested path
// on a sign-in redirect.
const RedirectParam = "redirect"

// Routes describes the fixed route table shared by the edge gate and the
// session manager.
type Routes struct {
	// SignIn is where anonymous visitors of protected paths are sent.
	SignIn string
	// Home is the authenticated-home route, the landing page for any session.
	Home string
	// PublicPaths match exactly.
	PublicPaths []string
	// PublicPrefixes match the prefix itself and anything below it.
	PublicPrefixes []string
	// AuthenticatedPaths are reachable by any session, in addition to Home.
	// They match exactly and as prefixes.
	AuthenticatedPaths []string
}

// DefaultRoutes returns the retail application's route table.
func DefaultRoutes() Routes {
	return Routes{
		SignIn: "/sign-in",
		Home:   "/dashboard",
		PublicPaths: []string{
			"/",
			"/sign-in",
			"/sign-up",
			"/verify",
			"/forgot-password",
			"/reset-password",
			"/healthz",
		},
		PublicPrefixes:     []string{"/static"},
		AuthenticatedPaths: []string{"/profile"},
	}
}

// Validate checks the table is usable.
func (r Routes) Validate() error {
	if !strings.HasPrefix(r.SignIn, "/") {
		return errors.New("sign-in route must be an absolute path")
	}
	if !strings.HasPrefix(r.Home, "/") || r.Home == "/" {
		return errors.New("home route must be an absolute, non-root path")
	}
	if r.classify(r.SignIn) != RoutePublic {
		return errors.New("sign-in route must be public")
	}
	return nil
}

// CleanPath normalizes p the way request paths are compared: rooted, no
// trailing slash, no dot segments, no duplicate slashes.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// Classify returns the class of p. It is a pure function of the path string.
func (r Routes) Classify(p string) RouteClass {
	return r.classify(CleanPath(p))
}

func (r Routes) classify(p string) RouteClass {
	for _, pub := range r.PublicPaths {
		if p == pub {
			return RoutePublic
		}
	}
	for _, prefix := range r.PublicPrefixes {
		if matchPrefix(p, prefix) {
			return RoutePublic
		}
	}
	if p == r.Home {
		return RouteAuthenticatedHome
	}
	for _, prefix := range r.AuthenticatedPaths {
		if matchPrefix(p, prefix) {
			return RouteAuthenticatedHome
		}
	}
	return RouteRoleScoped
}

// SignInURL builds the sign-in redirect target carrying original as the
// redirect parameter. An empty original, or one pointing at a public route,
// produces the bare sign-in route.
func (r Routes) SignInURL(original string) string {
	if original == "" {
		return r.SignIn
	}
	u, err := url.Parse(original)
	if err != nil || r.Classify(u.Path) == RoutePublic {
		return r.SignIn
	}
	return r.SignIn + "?" + url.Values{RedirectParam: {original}}.Encode()
}

// RedirectTarget extracts the redirect parameter from a sign-in URL. Only
// local absolute paths are returned; anything else yields "".
func RedirectTarget(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	target := u.Query().Get(RedirectParam)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return ""
	}
	return target
}

// matchPrefix reports whether p equals prefix or lies below it.
func matchPrefix(p, prefix string) bool {
	if prefix == "" {
		return false
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
