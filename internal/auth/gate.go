package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/apikey"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/session"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// KeyValidator checks an API key in its plaintext form.
type KeyValidator interface {
	Validate(ctx context.Context, plaintext string) (*apikey.Key, error)
}

// SessionValidator checks the two session-derived credential kinds.
type SessionValidator interface {
	VerifyAccessToken(raw string) (string, error)
	Validate(ctx context.Context, raw, ip string) (*session.Token, error)
}

// TenantResolver loads tenants and member roles for session identities.
type TenantResolver interface {
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ResolveRole(ctx context.Context, userID, tenantID string) (tenant.Role, error)
}

// Gate authenticates request credentials.
type Gate struct {
	keys        KeyValidator
	sessions    SessionValidator
	tenants     TenantResolver
	auditLogger audit.Logger
}

// NewGate creates an authentication gate.
func NewGate(keys KeyValidator, sessions SessionValidator, tenants TenantResolver, auditLogger audit.Logger) *Gate {
	return &Gate{
		keys:        keys,
		sessions:    sessions,
		tenants:     tenants,
		auditLogger: auditLogger,
	}
}

// Authenticate resolves a Credential to an Identity. Rejections are the
// package sentinels; every other error is a wrapped infrastructure failure.
func (g *Gate) Authenticate(ctx context.Context, cred Credential) (*Identity, error) {
	switch {
	case cred.APIKey != "":
		return g.authenticateKey(ctx, cred)
	case cred.AccessToken != "":
		return g.authenticateAccessToken(ctx, cred)
	case cred.RefreshToken != "":
		return g.authenticateRefreshToken(ctx, cred)
	default:
		return nil, g.deny(ctx, cred, "none", ErrNotPresented)
	}
}

func (g *Gate) authenticateKey(ctx context.Context, cred Credential) (*Identity, error) {
	key, err := g.keys.Validate(ctx, cred.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, apikey.ErrKeyMalformed):
			return nil, g.deny(ctx, cred, "api_key", ErrMalformed)
		case errors.Is(err, apikey.ErrKeyNotFound):
			return nil, g.deny(ctx, cred, "api_key", ErrNotFound)
		case errors.Is(err, apikey.ErrKeyExpired):
			return nil, g.deny(ctx, cred, "api_key", ErrExpired)
		case errors.Is(err, apikey.ErrKeyRevoked):
			return nil, g.deny(ctx, cred, "api_key", ErrRevoked)
		case errors.Is(err, tenant.ErrTenantInactive):
			return nil, g.deny(ctx, cred, "api_key", ErrTenantInactive)
		default:
			return nil, fmt.Errorf("failed to validate api key: %w", err)
		}
	}

	return &Identity{
		TenantID: key.TenantID,
		IsAPIKey: true,
		KeyID:    key.ID,
	}, nil
}

func (g *Gate) authenticateAccessToken(ctx context.Context, cred Credential) (*Identity, error) {
	userID, err := g.sessions.VerifyAccessToken(cred.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAccessTokenExpired):
			return nil, g.deny(ctx, cred, "access_token", ErrExpired)
		case errors.Is(err, session.ErrAccessTokenInvalid):
			return nil, g.deny(ctx, cred, "access_token", ErrMalformed)
		default:
			return nil, fmt.Errorf("failed to verify access token: %w", err)
		}
	}

	return g.member(ctx, cred, userID)
}

func (g *Gate) authenticateRefreshToken(ctx context.Context, cred Credential) (*Identity, error) {
	token, err := g.sessions.Validate(ctx, cred.RefreshToken, cred.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrTokenNotFound):
			return nil, g.deny(ctx, cred, "refresh_token", ErrNotFound)
		case errors.Is(err, session.ErrTokenReuse):
			return nil, g.deny(ctx, cred, "refresh_token", ErrReuseDetected)
		case errors.Is(err, session.ErrTokenRevoked):
			return nil, g.deny(ctx, cred, "refresh_token", ErrRevoked)
		case errors.Is(err, session.ErrTokenExpired):
			return nil, g.deny(ctx, cred, "refresh_token", ErrExpired)
		default:
			return nil, fmt.Errorf("failed to validate refresh token: %w", err)
		}
	}

	return g.member(ctx, cred, token.UserID)
}

// member attaches tenant context to a session identity. No named tenant
// means an identity without tenant scope; a named tenant must be active,
// and a missing membership leaves the zero role for downstream
// authorization to deny.
func (g *Gate) member(ctx context.Context, cred Credential, userID string) (*Identity, error) {
	ident := &Identity{UserID: userID}
	if cred.TenantID == "" {
		return ident, nil
	}

	t, err := g.tenants.GetTenant(ctx, cred.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return nil, g.deny(ctx, cred, "tenant", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	if !t.Active() {
		return nil, g.deny(ctx, cred, "tenant", ErrTenantInactive)
	}
	ident.TenantID = t.ID

	role, err := g.tenants.ResolveRole(ctx, userID, cred.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrMembershipNotFound) {
			return ident, nil
		}
		return nil, fmt.Errorf("failed to resolve role: %w", err)
	}
	ident.Role = role

	return ident, nil
}

func (g *Gate) deny(ctx context.Context, cred Credential, kind string, rejection error) error {
	g.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeAuthDenied,
		TenantID:  cred.TenantID,
		Resource:  kind,
		IPAddress: cred.RemoteAddr,
		Metadata: map[string]any{
			audit.AttrReason: rejection.Error(),
		},
	})
	return rejection
}
