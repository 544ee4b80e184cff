package tenant

import (
	"context"
	"errors"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant is inactive")
	ErrSlugTaken          = errors.New("tenant slug already in use")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMemberExists       = errors.New("user is already a member of the tenant")
	ErrInvalidRole        = errors.New("invalid role")
	ErrLastOwner          = errors.New("tenant must keep at least one owner")
)

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
	ListForUser(ctx context.Context, userID string) ([]*Tenant, error)
}

// MembershipRepository defines the interface for membership storage
type MembershipRepository interface {
	Add(ctx context.Context, m *Membership) error
	Get(ctx context.Context, userID, tenantID string) (*Membership, error)
	UpdateRole(ctx context.Context, userID, tenantID string, role Role) error
	Remove(ctx context.Context, userID, tenantID string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Membership, error)
	CountByRole(ctx context.Context, tenantID string, role Role) (int, error)
}
