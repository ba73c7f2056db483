package spec

import (
	"fmt"
	"strings"
)

// Role is the single usage classification of a field.
type Role int

const (
	RoleNone Role = iota
	RolePath
	RoleQuery
	RoleHeader
	RoleBody
)

var roleNames = [...]string{
	RoleNone:   "none",
	RolePath:   "path",
	RoleQuery:  "query",
	RoleHeader: "header",
	RoleBody:   "body",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("Role(%d)", int(r))
	}

	return roleNames[r]
}

// ParseRole resolves a role by its lower case name. The empty string is
// RoleNone.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleNone, nil
	}

	for i, name := range roleNames {
		if strings.EqualFold(name, s) {
			return Role(i), nil
		}
	}

	return RoleNone, fmt.Errorf("%w: unknown role %q", ErrInvalidField, s)
}

// assignRole sets the role of f, failing when f already carries a
// different one.
func assignRole(f *Field, r Role) error {
	if f.Role != RoleNone && f.Role != r {
		return fmt.Errorf("%w: %s and %s", ErrConflictingRoles, f.Role, r)
	}
	f.Role = r

	return nil
}
