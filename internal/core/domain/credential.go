package domain

import (
	"encoding/json"
)

// CredentialRecord is the session state held for a single role
type CredentialRecord struct {
	Role            Role            `json:"role"`
	AccessToken     string          `json:"access_token,omitempty"`
	IsAuthenticated bool            `json:"is_authenticated"`
	Profile         json.RawMessage `json:"profile,omitempty"`
}

// EmptyCredential returns the signed-out record for a role
func EmptyCredential(role Role) CredentialRecord {
	return CredentialRecord{Role: role}
}

// HasToken reports whether the record carries a non-empty access token
func (c CredentialRecord) HasToken() bool {
	return c.AccessToken != ""
}

// Clone returns a copy that does not share the profile buffer
func (c CredentialRecord) Clone() CredentialRecord {
	if c.Profile != nil {
		c.Profile = append(json.RawMessage(nil), c.Profile...)
	}
	return c
}

// LoginResponse is the body returned by the role login endpoints
type LoginResponse struct {
	Success     bool            `json:"success"`
	AccessToken string          `json:"accessToken"`
	Message     string          `json:"message,omitempty"`
	User        json.RawMessage `json:"user,omitempty"`
}

// ToCredential converts a successful login into the record stored for role
func (r *LoginResponse) ToCredential(role Role) CredentialRecord {
	return CredentialRecord{
		Role:            role,
		AccessToken:     r.AccessToken,
		IsAuthenticated: true,
		Profile:         r.User,
	}
}

// RefreshResponse is the body returned by the shared refresh endpoint
type RefreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
	Message     string `json:"message,omitempty"`
}
