package domain

import "strings"

// LoginPaths holds the entry points a client is sent to when every session is lost
type LoginPaths struct {
	Admin string
	Tutor string
	User  string
	Entry string
}

// DefaultLoginPaths returns the marketplace's standard login routes
func DefaultLoginPaths() LoginPaths {
	return LoginPaths{
		Admin: "/admin/login",
		Tutor: "/tutor/login",
		User:  "/user/login",
		Entry: "/login",
	}
}

// Resolve picks the login entry point for the area the client is currently in.
// Only whole path segments count, so "/administrator" falls back to Entry.
func (p LoginPaths) Resolve(currentPath string) string {
	switch RoleArea(currentPath) {
	case RoleAdmin:
		return p.Admin
	case RoleTutor:
		return p.Tutor
	case RoleUser:
		return p.User
	}
	return p.Entry
}

// RoleArea returns the role whose area contains path, or "" when none does
func RoleArea(path string) Role {
	trimmed := strings.TrimPrefix(path, "/")
	segment, _, _ := strings.Cut(trimmed, "/")
	segment, _, _ = strings.Cut(segment, "?")
	role := Role(segment)
	if role.Valid() {
		return role
	}
	return ""
}
