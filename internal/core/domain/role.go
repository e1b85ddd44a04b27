package domain

import (
	"fmt"
	"strings"
)

// Role identifies one of the independent authentication sessions a client can hold
type Role string

const (
	RoleUser  Role = "user"
	RoleTutor Role = "tutor"
	RoleAdmin Role = "admin"
)

// Roles returns every role in token attachment priority order
func Roles() []Role {
	return []Role{RoleUser, RoleTutor, RoleAdmin}
}

// ParseRole converts user input into a Role
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, value)
	}
	return role, nil
}

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

// String implements the Stringer interface
func (r Role) String() string {
	return string(r)
}
