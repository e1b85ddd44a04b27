package credentials

import (
	"hokz.academy/cli/internal/core/domain"
	"hokz.academy/cli/internal/core/ports"
)

// RoleStores owns one MemoryStore per role
type RoleStores struct {
	User  *MemoryStore
	Tutor *MemoryStore
	Admin *MemoryStore
}

// NewRoleStores creates three signed-out stores
func NewRoleStores() *RoleStores {
	return &RoleStores{
		User:  NewMemoryStore(domain.RoleUser),
		Tutor: NewMemoryStore(domain.RoleTutor),
		Admin: NewMemoryStore(domain.RoleAdmin),
	}
}

// Ports exposes the stores through the port used by the session coordinator
func (r *RoleStores) Ports() ports.CredentialStores {
	return ports.CredentialStores{User: r.User, Tutor: r.Tutor, Admin: r.Admin}
}

// All returns the stores in token priority order
func (r *RoleStores) All() []*MemoryStore {
	return []*MemoryStore{r.User, r.Tutor, r.Admin}
}

// ForRole returns the store for role, or nil for an unknown role
func (r *RoleStores) ForRole(role domain.Role) *MemoryStore {
	switch role {
	case domain.RoleUser:
		return r.User
	case domain.RoleTutor:
		return r.Tutor
	case domain.RoleAdmin:
		return r.Admin
	}
	return nil
}

// Authenticated returns the roles currently signed in
func (r *RoleStores) Authenticated() []domain.Role {
	var roles []domain.Role
	for _, store := range r.All() {
		if store.Get().IsAuthenticated {
			roles = append(roles, store.Role())
		}
	}
	return roles
}

// ClearAll signs every role out
func (r *RoleStores) ClearAll() {
	for _, store := range r.All() {
		store.Clear()
	}
}
