package permission

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRoleStrict(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Fatalf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}

	for _, in := range []string{"", "admin", "Cashier", " CASHIER", "CASHIER ", "ROOT", "SUPERUSER"} {
		if _, err := ParseRole(in); !errors.Is(err, ErrUnknownRole) {
			t.Fatalf("ParseRole(%q) expected ErrUnknownRole, got %v", in, err)
		}
	}
}

func TestClassify(t *testing.T) {
	routes := DefaultRoutes()
	cases := map[string]RouteClass{
		"/":                     RoutePublic,
		"/sign-in":              RoutePublic,
		"/sign-in/":             RoutePublic,
		"/static/app.css":       RoutePublic,
		"/static":               RoutePublic,
		"/staticfoo":            RouteRoleScoped,
		"/dashboard":            RouteAuthenticatedHome,
		"/profile":              RouteAuthenticatedHome,
		"/profile/edit":         RouteAuthenticatedHome,
		"/dashboard/weekly":     RouteRoleScoped,
		"/sales":                RouteRoleScoped,
		"//sales//today/":       RouteRoleScoped,
		"/employees/../sign-in": RoutePublic,
	}
	for p, want := range cases {
		if got := routes.Classify(p); got != want {
			t.Fatalf("Classify(%q) = %s, want %s", p, got, want)
		}
	}
}

func TestIsAllowedPrefixBoundary(t *testing.T) {
	m := DefaultMatrix()

	cases := []struct {
		role string
		path string
		want bool
	}{
		{"CASHIER", "/sales", true},
		{"CASHIER", "/sales/new", true},
		{"CASHIER", "/salesforce", false},
		{"CASHIER", "/products/catalog/42", true},
		{"CASHIER", "/products", false},
		{"CASHIER", "/employees", false},
		{"CASHIER", "/dashboard", true},
		{"CASHIER", "/sign-in", true},
		{"MANAGER", "/employees/7/schedule", true},
		{"MANAGER", "/stores", false},
		{"ADMIN", "/stores/3", true},
		{"INVENTORY_CLERK", "/products/catalog", true},
		{"INVENTORY_CLERK", "/sales", false},
	}
	for _, tc := range cases {
		if got := m.IsAllowed(tc.role, tc.path); got != tc.want {
			t.Fatalf("IsAllowed(%s, %s) = %v, want %v", tc.role, tc.path, got, tc.want)
		}
	}
}

func TestIsAllowedUnknownRoleFailsClosed(t *testing.T) {
	m := DefaultMatrix()
	for _, role := range []string{"", "admin", "ROOT", "SUPERADMIN"} {
		for _, p := range []string{"/stores", "/sales", "/employees", "/settings"} {
			if m.IsAllowed(role, p) {
				t.Fatalf("unknown role %q must not reach %s", role, p)
			}
		}
		if !m.IsAllowed(role, "/dashboard") {
			t.Fatalf("unknown role %q should still reach the authenticated home", role)
		}
	}
}

func TestIsAllowedDeterministic(t *testing.T) {
	m := DefaultMatrix()
	paths := []string{"/", "/sales", "/stores/1", "/dashboard", "/reports/q3", "/x"}
	roles := append([]string{"NOPE"}, func() []string {
		out := make([]string, 0, len(Roles))
		for _, r := range Roles {
			out = append(out, string(r))
		}
		return out
	}()...)

	for _, r := range roles {
		for _, p := range paths {
			first := m.IsAllowed(r, p)
			for i := 0; i < 5; i++ {
				if m.IsAllowed(r, p) != first {
					t.Fatalf("IsAllowed(%s, %s) changed between calls", r, p)
				}
			}
		}
	}
}

func TestFreezeFallbackNeverEmpty(t *testing.T) {
	m := NewMatrix(DefaultRoutes())
	if err := m.Grant(RoleAdmin, "/stores"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	m.Freeze()

	for _, r := range Roles {
		if len(m.Prefixes(r)) == 0 {
			t.Fatalf("role %s has an empty grant list after freeze", r)
		}
	}
	if got := m.Prefixes(RoleCashier); len(got) != 1 || got[0] != "/dashboard" {
		t.Fatalf("expected home fallback for CASHIER, got %v", got)
	}
	if err := m.Grant(RoleCashier, "/sales"); err == nil {
		t.Fatal("expected grant after freeze to fail")
	}
}

func TestGrantRejectsUnknownRoleAndRelativePrefix(t *testing.T) {
	m := NewMatrix(DefaultRoutes())
	if err := m.Grant(Role("OWNER"), "/x"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if err := m.Grant(RoleAdmin, "stores"); err == nil {
		t.Fatal("expected relative prefix to be rejected")
	}
}

func TestLoadMatrixYAML(t *testing.T) {
	doc := `
routes:
  home: /home
roles:
  CASHIER: [/registers]
  MANAGER: [/employees, /reports]
`
	m, err := LoadMatrixYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadMatrixYAML: %v", err)
	}
	if !m.IsAllowed("CASHIER", "/registers/2") {
		t.Fatal("expected CASHIER to reach /registers/2")
	}
	if m.IsAllowed("CASHIER", "/sales") {
		t.Fatal("defaults must be replaced, not merged")
	}
	if got := m.Prefixes(RoleAdmin); len(got) != 1 || got[0] != "/home" {
		t.Fatalf("expected ADMIN fallback to /home, got %v", got)
	}
}

func TestLoadMatrixYAMLRejectsUnknownRole(t *testing.T) {
	_, err := LoadMatrixYAML(strings.NewReader("roles:\n  cashier: [/sales]\n"))
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}
