// Copyright 2026 The ChronicleHub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/id"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether slug is usable as a tenant slug: 3 to 63
// characters of lowercase letters, digits and single hyphens.
func ValidSlug(slug string) bool {
	return len(slug) >= 3 && len(slug) <= 63 && slugPattern.MatchString(slug)
}

// Service provides tenant and membership management business logic
type Service struct {
	repo        Repository
	memberships MembershipRepository
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new tenant service
func NewService(repo Repository, memberships MembershipRepository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		memberships: memberships,
		auditLogger: auditLogger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateTenant creates a new tenant and makes the creator its owner
func (s *Service) CreateTenant(ctx context.Context, name, slug, ownerID string) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("invalid tenant slug: %q", slug)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("owner user id is required")
	}

	// Check if slug is taken
	if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
		return nil, ErrSlugTaken
	} else if !errors.Is(err, ErrTenantNotFound) {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}

	now := s.now()
	tenant := &Tenant{
		ID:        id.NewUUIDv7(),
		Name:      name,
		Slug:      slug,
		Status:    StatusActive,
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	owner := &Membership{
		UserID:    ownerID,
		TenantID:  tenant.ID,
		Role:      RoleOwner,
		CreatedAt: now,
	}
	if err := s.memberships.Add(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: tenant.ID,
		ActorID:  ownerID,
		Resource: slug,
	})

	return tenant, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// GetTenantBySlug retrieves a tenant by slug
func (s *Service) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// ListTenants lists tenants with pagination
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListTenantsForUser lists the tenants a user belongs to
func (s *Service) ListTenantsForUser(ctx context.Context, userID string) ([]*Tenant, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Deactivate takes a tenant out of service. Every credential scoped to the
// tenant stops validating while it is inactive. Deactivating an inactive
// tenant is a no-op.
func (s *Service) Deactivate(ctx context.Context, tenantID, actorID string) error {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if t.Status == StatusInactive {
		return nil
	}

	now := s.now()
	t.Status = StatusInactive
	t.DeactivatedAt = &now

	if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to deactivate tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantDeactivated,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: t.Slug,
	})

	return nil
}

// Reactivate returns a deactivated tenant to service. Credentials that were
// not individually revoked or expired become usable again.
func (s *Service) Reactivate(ctx context.Context, tenantID, actorID string) error {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if t.Status == StatusActive {
		return nil
	}

	t.Status = StatusActive
	t.DeactivatedAt = nil

	if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to reactivate tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantReactivated,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: t.Slug,
	})

	return nil
}

// AddMember adds a user to a tenant with the given role
func (s *Service) AddMember(ctx context.Context, tenantID, userID string, role Role, actorID string) (*Membership, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if _, err := s.repo.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	m := &Membership{
		UserID:    userID,
		TenantID:  tenantID,
		Role:      role,
		CreatedAt: s.now(),
	}
	if err := s.memberships.Add(ctx, m); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberAdded,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: userID,
		Metadata: map[string]any{audit.AttrRole: string(role)},
	})

	return m, nil
}

// ChangeRole changes a member's role. Demoting the last owner is refused.
func (s *Service) ChangeRole(ctx context.Context, tenantID, userID string, role Role, actorID string) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	current, err := s.memberships.Get(ctx, userID, tenantID)
	if err != nil {
		return err
	}
	if current.Role == role {
		return nil
	}

	if current.Role == RoleOwner {
		owners, err := s.memberships.CountByRole(ctx, tenantID, RoleOwner)
		if err != nil {
			return fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}

	if err := s.memberships.UpdateRole(ctx, userID, tenantID, role); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberRoleChanged,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: userID,
		Metadata: map[string]any{
			audit.AttrRole: string(role),
			"previous":     string(current.Role),
		},
	})

	return nil
}

// RemoveMember removes a user from a tenant. Removing the last owner is refused.
func (s *Service) RemoveMember(ctx context.Context, tenantID, userID, actorID string) error {
	current, err := s.memberships.Get(ctx, userID, tenantID)
	if err != nil {
		return err
	}

	if current.Role == RoleOwner {
		owners, err := s.memberships.CountByRole(ctx, tenantID, RoleOwner)
		if err != nil {
			return fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}

	if err := s.memberships.Remove(ctx, userID, tenantID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberRemoved,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: userID,
	})

	return nil
}

// ListMembers lists every membership in a tenant
func (s *Service) ListMembers(ctx context.Context, tenantID string) ([]*Membership, error) {
	return s.memberships.ListByTenant(ctx, tenantID)
}

// ResolveRole returns the user's role in a tenant. It is a pure lookup;
// tenant status is the caller's concern.
func (s *Service) ResolveRole(ctx context.Context, userID, tenantID string) (Role, error) {
	m, err := s.memberships.Get(ctx, userID, tenantID)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// HasRole reports whether the user's role in the tenant is at least min.
// A missing membership is false, not an error.
func (s *Service) HasRole(ctx context.Context, userID, tenantID string, min Role) (bool, error) {
	role, err := s.ResolveRole(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return false, nil
		}
		return false, err
	}
	return role.AtLeast(min), nil
}
