package permission

import "errors"

// ErrUnknownRole is returned by [ParseRole] for any string outside the system role set.
var ErrUnknownRole = errors.New("unknown role")

// Role is one of the finite set of system roles.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleManager        Role = "MANAGER"
	RoleCashier        Role = "CASHIER"
	RoleInventoryClerk Role = "INVENTORY_CLERK"
)

// Roles lists every system role in a stable order.
var Roles = []Role{RoleAdmin, RoleManager, RoleCashier, RoleInventoryClerk}

// ParseRole maps s to a Role. Only the canonical spellings are accepted: no
// case folding, no trimming, and no default for unrecognized input.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleCashier, RoleInventoryClerk:
		return Role(s), nil
	default:
		return "", ErrUnknownRole
	}
}

// Valid reports whether r is a member of the system role set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}
