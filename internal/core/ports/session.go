package ports

import (
	"context"

	"hokz.academy/cli/internal/core/domain"
)

// CredentialStore holds the session of one role. Implementations must not do any
// network I/O; the session coordinator reads them on every request.
type CredentialStore interface {
	Role() domain.Role
	Get() domain.CredentialRecord
	SetFromLogin(record domain.CredentialRecord)
	PatchToken(token string)
	Clear()
}

// ObservableCredentialStore is a CredentialStore that reports every change
type ObservableCredentialStore interface {
	CredentialStore
	Subscribe(fn func(domain.CredentialRecord)) (unsubscribe func())
}

// CredentialStores bundles the store of every role
type CredentialStores struct {
	User  CredentialStore
	Tutor CredentialStore
	Admin CredentialStore
}

// InPriorityOrder returns the configured stores in token attachment order
func (s CredentialStores) InPriorityOrder() []CredentialStore {
	out := make([]CredentialStore, 0, 3)
	for _, store := range []CredentialStore{s.User, s.Tutor, s.Admin} {
		if store != nil {
			out = append(out, store)
		}
	}
	return out
}

// ForRole returns the store for role, or nil
func (s CredentialStores) ForRole(role domain.Role) CredentialStore {
	switch role {
	case domain.RoleUser:
		return s.User
	case domain.RoleTutor:
		return s.Tutor
	case domain.RoleAdmin:
		return s.Admin
	}
	return nil
}

// SessionRefresher exchanges the long-lived session cookie for a new access token
type SessionRefresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Navigator is the client's navigation layer
type Navigator interface {
	CurrentPath() string
	Redirect(path string)
}

// CredentialSnapshotter persists credential records between process runs
type CredentialSnapshotter interface {
	Load(ctx context.Context) (map[domain.Role]domain.CredentialRecord, error)
	Save(ctx context.Context, record domain.CredentialRecord) error
	Delete(ctx context.Context, role domain.Role) error
}
