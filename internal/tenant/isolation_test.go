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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/id"
)

// TestPurpose: Validates that tenant-scoped operations strictly require a non-empty tenant ID to prevent global data exposure.
// Scope: Unit Test
// Security: Multi-tenant boundary enforcement
// Expected: Returns an error when an empty tenant ID is provided.
// Test Case ID: TEN-10
func TestTenant_Isolation_TenantIDMustBePresent(t *testing.T) {
	repo := new(mockRepo)
	service := NewService(repo, new(mockMembershipRepo), new(mockAudit))
	ctx := context.Background()

	repo.On("GetByID", ctx, "").Return((*Tenant)(nil), errors.New("invalid empty tenant ID"))

	_, err := service.GetTenant(ctx, "")
	assert.Error(t, err, "empty tenant ID should fail")
}

// TestPurpose: Validates that a membership in one tenant grants nothing in another tenant.
// Scope: Unit Test
// Security: Multi-tenant role isolation
// Expected: HasRole is false for a tenant the user does not belong to, even at the lowest level.
// Test Case ID: TEN-11
func TestTenant_Isolation_RolesDoNotCrossTenants(t *testing.T) {
	members := new(mockMembershipRepo)
	service := NewService(new(mockRepo), members, new(mockAudit))
	ctx := context.Background()

	tenantA := id.NewUUIDv7()
	tenantB := id.NewUUIDv7()
	userID := id.NewUUIDv7()

	members.On("Get", ctx, userID, tenantA).Return(&Membership{UserID: userID, TenantID: tenantA, Role: RoleOwner}, nil)
	members.On("Get", ctx, userID, tenantB).Return(nil, ErrMembershipNotFound)

	inA, err := service.HasRole(ctx, userID, tenantA, RoleOwner)
	assert.NoError(t, err)
	assert.True(t, inA, "owner of tenant A should pass in tenant A")

	inB, err := service.HasRole(ctx, userID, tenantB, RoleMember)
	assert.NoError(t, err)
	assert.False(t, inB, "owner of tenant A must hold nothing in tenant B")
}

// TestPurpose: Validates that one user cannot hold two memberships in the same tenant.
// Scope: Unit Test
// Security: Single role per user per tenant
// Expected: The duplicate add surfaces ErrMemberExists from the membership store.
// Test Case ID: TEN-12
func TestTenant_Isolation_SingleMembershipPerTenant(t *testing.T) {
	repo := new(mockRepo)
	members := new(mockMembershipRepo)
	auditLogger := new(mockAudit)
	auditLogger.On("Log", mock.Anything, mock.Anything).Return()
	service := NewService(repo, members, auditLogger)
	ctx := context.Background()

	tenantID := id.NewUUIDv7()
	userID := id.NewUUIDv7()

	repo.On("GetByID", ctx, tenantID).Return(&Tenant{ID: tenantID, Status: StatusActive}, nil)
	members.On("Add", ctx, mock.MatchedBy(func(m *Membership) bool {
		return m.UserID == userID && m.TenantID == tenantID
	})).Return(nil).Once()
	members.On("Add", ctx, mock.MatchedBy(func(m *Membership) bool {
		return m.UserID == userID && m.TenantID == tenantID
	})).Return(ErrMemberExists)

	_, err := service.AddMember(ctx, tenantID, userID, RoleMember, "admin-1")
	assert.NoError(t, err)

	_, err = service.AddMember(ctx, tenantID, userID, RoleAdmin, "admin-1")
	assert.ErrorIs(t, err, ErrMemberExists)
}
