package credentials

import (
	"hokz.academy/cli/internal/core/domain"
)

// StoreError indicates a credential persistence error.
type StoreError struct {
	Operation string // "load", "save", "delete"
	Role      domain.Role
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Operation + " credentials"
	if e.Role != "" {
		msg += " for " + e.Role.String()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
