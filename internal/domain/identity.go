package domain

import "slices"

// Role is a capability granted to a user by the identity provider.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the caller of one operation, resolved per request.
// The zero value is the anonymous caller.
type Identity struct {
	UserID string
	Roles  []Role
}

// Anonymous is the identity of a caller without credentials.
var Anonymous = Identity{}

// IsAnonymous reports whether the caller presented no identity.
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// HasRole reports whether the identity carries the given role.
func (i Identity) HasRole(r Role) bool {
	return slices.Contains(i.Roles, r)
}

// IsAdmin reports whether the identity may change workshop definitions.
func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}
