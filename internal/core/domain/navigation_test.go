package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLoginPaths_Resolve(t *testing.T) {
	paths := DefaultLoginPaths()

	tests := []struct {
		path     string
		expected string
	}{
		{"/admin", "/admin/login"},
		{"/admin/courses", "/admin/login"},
		{"/admin/courses/42/edit", "/admin/login"},
		{"/tutor/dashboard", "/tutor/login"},
		{"/user/cart", "/user/login"},
		{"/user?tab=orders", "/user/login"},
		{"admin/courses", "/admin/login"},
		{"/", "/login"},
		{"", "/login"},
		{"/courses", "/login"},
		{"/administrator", "/login"},
		{"/users/cart", "/login"},
		{"/Admin/courses", "/login"},
		{"/courses/admin", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, paths.Resolve(tt.path))
		})
	}
}

func TestLoginPaths_ResolveCustomPaths(t *testing.T) {
	paths := LoginPaths{Admin: "/backoffice/signin", Tutor: "/teach/signin", User: "/signin", Entry: "/welcome"}

	assert.Equal(t, "/backoffice/signin", paths.Resolve("/admin/users"))
	assert.Equal(t, "/teach/signin", paths.Resolve("/tutor"))
	assert.Equal(t, "/signin", paths.Resolve("/user/wishlist"))
	assert.Equal(t, "/welcome", paths.Resolve("/about"))
}

func TestLoginPaths_Property_RoleAreas(t *testing.T) {
	paths := DefaultLoginPaths()
	segment := rapid.StringMatching(`[a-z0-9\-]{0,12}`)

	rapid.Check(t, func(t *rapid.T) {
		role := rapid.SampledFrom(Roles()).Draw(t, "role")
		rest := rapid.SliceOfN(segment, 0, 4).Draw(t, "rest")

		path := "/" + role.String()
		if len(rest) > 0 {
			path += "/" + strings.Join(rest, "/")
		}

		expected := map[Role]string{RoleAdmin: paths.Admin, RoleTutor: paths.Tutor, RoleUser: paths.User}[role]
		if got := paths.Resolve(path); got != expected {
			t.Fatalf("Resolve(%q) = %q, want %q", path, got, expected)
		}
	})
}

func TestLoginPaths_Property_OtherPathsUseEntry(t *testing.T) {
	paths := DefaultLoginPaths()

	rapid.Check(t, func(t *rapid.T) {
		first := rapid.StringMatching(`[a-z]{0,10}`).Filter(func(s string) bool {
			return !Role(s).Valid()
		}).Draw(t, "first")
		path := "/" + first + "/" + rapid.StringMatching(`[a-z/]{0,20}`).Draw(t, "rest")

		if got := paths.Resolve(path); got != paths.Entry {
			t.Fatalf("Resolve(%q) = %q, want %q", path, got, paths.Entry)
		}
	})
}
