package permission

import (
	"errors"
	"strings"
	"sync"
)

// Matrix maps each role to the ordered path prefixes it may access.
//
// A Matrix is built at startup with [Matrix.Grant], sealed with
// [Matrix.Freeze], and then only read. IsAllowed is safe for concurrent use.
type Matrix struct {
	routes Routes

	mu     sync.RWMutex
	grants map[Role][]string
	frozen bool
}

// NewMatrix creates an empty matrix over the given route table.
func NewMatrix(routes Routes) *Matrix {
	return &Matrix{
		routes: routes,
		grants: make(map[Role][]string, len(Roles)),
	}
}

// DefaultMatrix returns the frozen retail permission matrix over DefaultRoutes.
func DefaultMatrix() *Matrix {
	m := NewMatrix(DefaultRoutes())
	for role, prefixes := range defaultGrants() {
		// defaults are well formed; Grant cannot fail before Freeze
		_ = m.Grant(role, prefixes...)
	}
	m.Freeze()
	return m
}

func defaultGrants() map[Role][]string {
	return map[Role][]string{
		RoleAdmin: {
			"/stores",
			"/employees",
			"/products",
			"/inventory",
			"/sales",
			"/reports",
			"/users",
			"/settings",
		},
		RoleManager: {
			"/employees",
			"/products",
			"/inventory",
			"/sales",
			"/reports",
		},
		RoleCashier: {
			"/sales",
			"/products/catalog",
		},
		RoleInventoryClerk: {
			"/inventory",
			"/products",
		},
	}
}

// Grant appends prefixes to role's ordered list.
func (m *Matrix) Grant(role Role, prefixes ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return errors.New("permission matrix frozen")
	}
	if !role.Valid() {
		return ErrUnknownRole
	}

	for _, p := range prefixes {
		if !strings.HasPrefix(p, "/") {
			return errors.New("permission prefix must be an absolute path: " + p)
		}
		m.grants[role] = append(m.grants[role], CleanPath(p))
	}
	return nil
}

// Freeze seals the matrix. Every role without an explicit non-empty entry
// falls back to the authenticated-home route, so no valid role is ever left
// with an empty grant list.
func (m *Matrix) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return
	}
	for _, role := range Roles {
		if len(m.grants[role]) == 0 {
			m.grants[role] = []string{m.routes.Home}
		}
	}
	m.frozen = true
}

// Routes returns the route table the matrix classifies against.
func (m *Matrix) Routes() Routes {
	return m.routes
}

// Prefixes returns a copy of the ordered prefixes granted to role.
func (m *Matrix) Prefixes(role Role) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.grants[role]...)
}

// IsAllowed reports whether role may access p. Public and authenticated-home
// paths are always allowed; role-scoped paths need a matching grant. Roles
// outside the system set have no grants.
func (m *Matrix) IsAllowed(role string, p string) bool {
	p = CleanPath(p)
	switch m.routes.classify(p) {
	case RoutePublic, RouteAuthenticatedHome:
		return true
	}

	r, err := ParseRole(role)
	if err != nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, prefix := range m.grants[r] {
		if matchPrefix(p, prefix) {
			return true
		}
	}
	return false
}
