package storegate

import (
	"github.com/MrEthical07/storegate/permission"
)

// Visit records that the client wants to show requestURI and applies the
// navigation guard. When the guard redirects, the navigator is sent to the
// target and the returned decision names it.
//
// Visit never blocks on an in-flight operation; while the session is still
// loading it returns ActionWait and the route is re-checked once it resolves.
func (m *Manager) Visit(requestURI string) permission.Decision {
	m.mu.Lock()
	m.location = requestURI
	d := permission.GuardNavigation(m.matrix, m.stateLocked(), requestURI)
	if d.Target != "" {
		m.location = d.Target
	}
	m.mu.Unlock()

	if d.Target != "" {
		m.metrics.Inc(MetricNavigationRedirect)
		m.nav.Navigate(d.Target)
	}
	return d
}

// syncRoute re-applies the guard to the current location after a state
// change.
func (m *Manager) syncRoute() {
	m.mu.RLock()
	loc := m.location
	m.mu.RUnlock()
	if loc == "" {
		return
	}
	m.Visit(loc)
}

func (m *Manager) navigate(target string) {
	m.mu.Lock()
	changed := m.location != target
	m.location = target
	m.mu.Unlock()

	if changed {
		m.metrics.Inc(MetricNavigationRedirect)
	}
	m.nav.Navigate(target)
}

// navigateAfterSignIn sends a fresh session to the page it was bounced from,
// when that page is open to its role, and home otherwise.
func (m *Manager) navigateAfterSignIn(role string) {
	routes := m.matrix.Routes()
	target := permission.RedirectTarget(m.Location())
	if target != "" {
		if d := permission.GuardNavigation(m.matrix, permission.Authenticated(role), target); d.Action == permission.ActionAllow {
			m.navigate(target)
			return
		}
	}
	m.navigate(routes.Home)
}

func (m *Manager) navigateToSignIn() {
	m.navigate(m.matrix.Routes().SignIn)
}
