// Package roles defines the closed set of application roles and the static
// tables that map each role to its legacy display name, its default landing
// route, and the route prefix it is allowed to access.
package roles

import "errors"

// Role is the canonical internal role name. The legacy display vocabulary
// ("Organizador", "Proveedor", "Comprador") is translated at the boundary
// only, via DisplayName.
type Role string

const (
	Organizer Role = "organizer"
	Supplier  Role = "supplier"
	Buyer     Role = "buyer"
)

var ErrUnknownRole = errors.New("roles: unknown role")

// All returns every role in a stable order.
func All() []Role {
	return []Role{Organizer, Supplier, Buyer}
}

// Parse converts a canonical role name into a Role.
func Parse(s string) (Role, error) {
	switch Role(s) {
	case Organizer, Supplier, Buyer:
		return Role(s), nil
	}
	return "", ErrUnknownRole
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	_, err := Parse(string(r))
	return err == nil
}

// DisplayName returns the legacy display role shown in the UI.
func (r Role) DisplayName() string {
	switch r {
	case Organizer:
		return "Organizador"
	case Supplier:
		return "Proveedor"
	case Buyer:
		return "Comprador"
	}
	return string(r)
}

// DefaultRoute returns the dashboard route a role lands on after login.
// The mapping is total over the closed role set.
func (r Role) DefaultRoute() string {
	switch r {
	case Organizer:
		return "/organizer/dashboard"
	case Supplier:
		return "/supplier/dashboard"
	case Buyer:
		return "/buyer/dashboard"
	}
	return "/login"
}

// RoutePrefix returns the path prefix reserved for a role. A session whose
// role does not own a prefix is redirected to its own DefaultRoute by the
// authorization gate.
func (r Role) RoutePrefix() string {
	switch r {
	case Organizer:
		return "/organizer"
	case Supplier:
		return "/supplier"
	case Buyer:
		return "/buyer"
	}
	return ""
}

// Contains reports whether role is a member of set.
func Contains(set []Role, role Role) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
