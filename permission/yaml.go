package permission

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type matrixFile struct {
	Routes *struct {
		SignIn             string   `yaml:"sign_in"`
		Home               string   `yaml:"home"`
		PublicPaths        []string `yaml:"public_paths"`
		PublicPrefixes     []string `yaml:"public_prefixes"`
		AuthenticatedPaths []string `yaml:"authenticated_paths"`
	} `yaml:"routes"`
	Roles map[string][]string `yaml:"roles"`
}

// LoadMatrixYAML builds a frozen matrix from a YAML document:
//
//	routes:            # optional, defaults to DefaultRoutes
//	  sign_in: /sign-in
//	  home: /dashboard
//	roles:
//	  ADMIN: [/stores, /employees]
//	  CASHIER: [/sales]
//
// Role names must be canonical; roles left out fall back to the home route.
func LoadMatrixYAML(r io.Reader) (*Matrix, error) {
	var doc matrixFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode permission matrix: %w", err)
	}

	routes := DefaultRoutes()
	if doc.Routes != nil {
		if doc.Routes.SignIn != "" {
			routes.SignIn = doc.Routes.SignIn
		}
		if doc.Routes.Home != "" {
			routes.Home = doc.Routes.Home
		}
		if doc.Routes.PublicPaths != nil {
			routes.PublicPaths = doc.Routes.PublicPaths
		}
		if doc.Routes.PublicPrefixes != nil {
			routes.PublicPrefixes = doc.Routes.PublicPrefixes
		}
		if doc.Routes.AuthenticatedPaths != nil {
			routes.AuthenticatedPaths = doc.Routes.AuthenticatedPaths
		}
	}
	if err := routes.Validate(); err != nil {
		return nil, fmt.Errorf("permission matrix routes: %w", err)
	}

	m := NewMatrix(routes)
	for name, prefixes := range doc.Roles {
		role, err := ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("permission matrix role %q: %w", name, err)
		}
		if err := m.Grant(role, prefixes...); err != nil {
			return nil, fmt.Errorf("permission matrix role %q: %w", name, err)
		}
	}
	m.Freeze()
	return m, nil
}
