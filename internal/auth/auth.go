// Package auth is the single entry point through which every request
// credential is checked. It accepts API keys, access tokens and refresh
// tokens, and answers with either an Identity or a typed rejection.
package auth

import (
	"errors"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// Rejection sentinels. Callers branch on these with errors.Is; any error
// that matches none of them is an infrastructure failure, not a verdict
// on the credential.
var (
	ErrNotPresented   = errors.New("no credential presented")
	ErrMalformed      = errors.New("credential malformed")
	ErrNotFound       = errors.New("credential not found")
	ErrExpired        = errors.New("credential expired")
	ErrRevoked        = errors.New("credential revoked")
	ErrReuseDetected  = errors.New("credential reuse detected")
	ErrTenantInactive = errors.New("tenant inactive")
)

// Credential carries the raw material a transport extracted from a request.
// The gate inspects exactly one of APIKey, AccessToken and RefreshToken,
// in that order.
type Credential struct {
	APIKey       string
	AccessToken  string
	RefreshToken string
	TenantID     string
	RemoteAddr   string
}

// Identity is the authenticated principal. API key identities are
// tenant-scoped machine callers and carry no user or role; session
// identities carry the user and, when a tenant was named, the member role.
type Identity struct {
	TenantID string      `json:"tenant_id,omitempty"`
	UserID   string      `json:"user_id,omitempty"`
	Role     tenant.Role `json:"role,omitempty"`
	IsAPIKey bool        `json:"is_api_key"`
	KeyID    string      `json:"key_id,omitempty"`
}

// IsRejection reports whether err is a credential verdict rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, sentinel := range []error{
		ErrNotPresented,
		ErrMalformed,
		ErrNotFound,
		ErrExpired,
		ErrRevoked,
		ErrReuseDetected,
		ErrTenantInactive,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
