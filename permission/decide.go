package permission

// StateKind tags an AuthState.
type StateKind uint8

const (
	// StateLoading means the session has not been resolved yet.
	StateLoading StateKind = iota
	// StateAuthenticated carries a verified role.
	StateAuthenticated
	// StateAnonymous means no usable session.
	StateAnonymous
)

func (k StateKind) String() string {
	switch k {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// AuthState is the tagged session state consumed by [Decide].
// Role is meaningful only when Kind is StateAuthenticated.
type AuthState struct {
	Kind StateKind
	Role string
}

// Loading returns the unresolved state.
func Loading() AuthState { return AuthState{Kind: StateLoading} }

// Anonymous returns the logged-out state.
func Anonymous() AuthState { return AuthState{Kind: StateAnonymous} }

// Authenticated returns the state of a session holding role. The role is kept
// as presented; unknown roles are handled by the matrix.
func Authenticated(role string) AuthState {
	return AuthState{Kind: StateAuthenticated, Role: role}
}

// Action is the outcome of a navigation decision.
type Action uint8

const (
	ActionAllow Action = iota
	// ActionWait defers the decision until the state is resolved.
	ActionWait
	ActionRedirectSignIn
	ActionRedirectHome
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionWait:
		return "wait"
	case ActionRedirectSignIn:
		return "redirect-sign-in"
	default:
		return "redirect-home"
	}
}

// Decision is the result of [Decide]. Target is set for redirects.
type Decision struct {
	Action Action
	Class  RouteClass
	Target string
}

// Decide is the authorization decision shared by the edge gate and the
// client navigation guard. requestURI is the path plus optional query; the
// query only travels into the sign-in redirect parameter.
//
// Decide does not redirect authenticated users away from public pages; that
// is a client-side courtesy layered on top (see [GuardNavigation]).
func Decide(m *Matrix, state AuthState, requestURI string) Decision {
	p, _ := splitURI(requestURI)
	class := m.routes.Classify(p)

	if class == RoutePublic {
		return Decision{Action: ActionAllow, Class: class}
	}

	switch state.Kind {
	case StateLoading:
		return Decision{Action: ActionWait, Class: class}
	case StateAuthenticated:
		if m.IsAllowed(state.Role, p) {
			return Decision{Action: ActionAllow, Class: class}
		}
		return Decision{Action: ActionRedirectHome, Class: class, Target: m.routes.Home}
	default:
		return Decision{Action: ActionRedirectSignIn, Class: class, Target: m.routes.SignInURL(requestURI)}
	}
}

// GuardNavigation is the client-side navigation guard: Decide, plus sending
// authenticated sessions on public routes to the authenticated home.
func GuardNavigation(m *Matrix, state AuthState, requestURI string) Decision {
	d := Decide(m, state, requestURI)
	if d.Action == ActionAllow && d.Class == RoutePublic && state.Kind == StateAuthenticated {
		return Decision{Action: ActionRedirectHome, Class: d.Class, Target: m.routes.Home}
	}
	return d
}

func splitURI(requestURI string) (string, string) {
	for i := 0; i < len(requestURI); i++ {
		if requestURI[i] == '?' {
			return requestURI[:i], requestURI[i+1:]
		}
	}
	return requestURI, ""
}
