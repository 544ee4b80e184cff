package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*Tenant), args.Error(1)
}

func (m *mockRepo) ListForUser(ctx context.Context, userID string) ([]*Tenant, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*Tenant), args.Error(1)
}

type mockMembershipRepo struct {
	mock.Mock
}

func (m *mockMembershipRepo) Add(ctx context.Context, ms *Membership) error {
	args := m.Called(ctx, ms)
	return args.Error(0)
}

func (m *mockMembershipRepo) Get(ctx context.Context, userID, tenantID string) (*Membership, error) {
	args := m.Called(ctx, userID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func (m *mockMembershipRepo) UpdateRole(ctx context.Context, userID, tenantID string, role Role) error {
	args := m.Called(ctx, userID, tenantID, role)
	return args.Error(0)
}

func (m *mockMembershipRepo) Remove(ctx context.Context, userID, tenantID string) error {
	args := m.Called(ctx, userID, tenantID)
	return args.Error(0)
}

func (m *mockMembershipRepo) ListByTenant(ctx context.Context, tenantID string) ([]*Membership, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Membership), args.Error(1)
}

func (m *mockMembershipRepo) CountByRole(ctx context.Context, tenantID string, role Role) (int, error) {
	args := m.Called(ctx, tenantID, role)
	return args.Int(0), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

// TestPurpose: Validates that tenant creation generates a UUIDv7 ID, stores the slug, and grants the creator the owner role.
// Scope: Unit Test
// Security: Traceability and unique identification of tenants
// Expected: A new active tenant with a valid UUIDv7 ID and an owner membership for the creator.
// Test Case ID: TEN-01
func TestTenant_Service_CreateTenant_OwnerBootstrap(t *testing.T) {
	repo := new(mockRepo)
	members := new(mockMembershipRepo)
	auditLogger := new(mockAudit)
	auditLogger.On("Log", mock.Anything, mock.Anything).Return()
	service := NewService(repo, members, auditLogger)

	ctx := context.Background()
	name := "Acme Robotics"
	slug := "acme-robotics"
	creatorID := "user-123"

	repo.On("GetBySlug", ctx, slug).Return((*Tenant)(nil), ErrTenantNotFound)

	repo.On("Create", ctx, mock.MatchedBy(func(tn *Tenant) bool {
		uid, err := uuid.Parse(tn.ID)
		if err != nil {
			return false
		}
		return uid.Version() == 7 && tn.Name == name && tn.Slug == slug && tn.Status == StatusActive
	})).Return(nil)

	members.On("Add", ctx, mock.MatchedBy(func(m *Membership) bool {
		return m.UserID == creatorID && m.Role == RoleOwner
	})).Return(nil)

	created, err := service.CreateTenant(ctx, name, slug, creatorID)
	assert.NoError(t, err)
	assert.Equal(t, StatusActive, created.Status)
	assert.Nil(t, created.DeactivatedAt)
	repo.AssertExpectations(t)
	members.AssertExpectations(t)
}

// TestPurpose: Validates slug uniqueness and slug format constraints at creation time.
// Scope: Unit Test
// Security: Predictable tenant addressing, no slug collisions
// Expected: ErrSlugTaken when the slug exists; format errors for invalid slugs.
// Test Case ID: TEN-02
func TestTenant_Service_CreateTenant_SlugRules(t *testing.T) {
	repo := new(mockRepo)
	members := new(mockMembershipRepo)
	auditLogger := new(mockAudit)
	service := NewService(repo, members, auditLogger)
	ctx := context.Background()

	t.Run("taken slug", func(t *testing.T) {
		repo.On("GetBySlug", ctx, "taken").Return(&Tenant{ID: "t1", Slug: "taken"}, nil)

		_, err := service.CreateTenant(ctx, "Some Name", "taken", "user-1")
		assert.ErrorIs(t, err, ErrSlugTaken)
	})

	t.Run("invalid slugs", func(t *testing.T) {
		for _, slug := range []string{"", "ab", "Has-Caps", "spaces here", "-leading", "trailing-", "under_score"} {
			_, err := service.CreateTenant(ctx, "Some Name", slug, "user-1")
			assert.Error(t, err, "slug %q should be rejected", slug)
		}
	})
}

// TestPurpose: Validates the soft deactivation lifecycle: status flips, timestamp recorded, repeat calls are no-ops.
// Scope: Unit Test
// Security: Tenant-wide credential invalidation switch
// Expected: Status becomes inactive with DeactivatedAt set; deactivating an inactive tenant touches nothing.
// Test Case ID: TEN-03
func TestTenant_Service_Deactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("active tenant is deactivated", func(t *testing.T) {
		repo := new(mockRepo)
		auditLogger := new(mockAudit)
		auditLogger.On("Log", mock.Anything, mock.Anything).Return()
		service := NewService(repo, new(mockMembershipRepo), auditLogger)

		repo.On("GetByID", ctx, "t1").Return(&Tenant{ID: "t1", Slug: "acme", Status: StatusActive}, nil)
		repo.On("Update", ctx, mock.MatchedBy(func(tn *Tenant) bool {
			return tn.Status == StatusInactive && tn.DeactivatedAt != nil
		})).Return(nil)

		err := service.Deactivate(ctx, "t1", "admin-1")
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("inactive tenant is left alone", func(t *testing.T) {
		repo := new(mockRepo)
		service := NewService(repo, new(mockMembershipRepo), new(mockAudit))

		repo.On("GetByID", ctx, "t1").Return(&Tenant{ID: "t1", Status: StatusInactive}, nil)

		err := service.Deactivate(ctx, "t1", "admin-1")
		assert.NoError(t, err)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

// TestPurpose: Validates reactivation restores the active status and clears the deactivation timestamp.
// Scope: Unit Test
// Security: Controlled restoration of tenant service
// Expected: Status active, DeactivatedAt nil.
// Test Case ID: TEN-04
func TestTenant_Service_Reactivate(t *testing.T) {
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	auditLogger.On("Log", mock.Anything, mock.Anything).Return()
	service := NewService(repo, new(mockMembershipRepo), auditLogger)
	ctx := context.Background()

	when := service.now()
	repo.On("GetByID", ctx, "t1").Return(&Tenant{ID: "t1", Status: StatusInactive, DeactivatedAt: &when}, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(tn *Tenant) bool {
		return tn.Status == StatusActive && tn.DeactivatedAt == nil
	})).Return(nil)

	err := service.Reactivate(ctx, "t1", "admin-1")
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates that only the closed role set is accepted when adding members.
// Scope: Unit Test
// Security: Unauthorized privilege escalation prevention
// Expected: ErrInvalidRole for role names outside owner/admin/member.
// Test Case ID: TEN-05
func TestTenant_Service_AddMember_InvalidRole(t *testing.T) {
	service := NewService(new(mockRepo), new(mockMembershipRepo), new(mockAudit))
	ctx := context.Background()

	// "super_admin" is not a valid tenant role
	_, err := service.AddMember(ctx, "t1", "user-1", Role("super_admin"), "admin-1")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

// TestPurpose: Validates that the last owner of a tenant can be neither demoted nor removed.
// Scope: Unit Test
// Security: Tenant lockout prevention
// Expected: ErrLastOwner when the sole owner would lose the owner role.
// Test Case ID: TEN-06
func TestTenant_Service_LastOwnerGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("demote sole owner", func(t *testing.T) {
		members := new(mockMembershipRepo)
		service := NewService(new(mockRepo), members, new(mockAudit))

		members.On("Get", ctx, "owner-1", "t1").Return(&Membership{UserID: "owner-1", TenantID: "t1", Role: RoleOwner}, nil)
		members.On("CountByRole", ctx, "t1", RoleOwner).Return(1, nil)

		err := service.ChangeRole(ctx, "t1", "owner-1", RoleMember, "owner-1")
		assert.ErrorIs(t, err, ErrLastOwner)
		members.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("remove sole owner", func(t *testing.T) {
		members := new(mockMembershipRepo)
		service := NewService(new(mockRepo), members, new(mockAudit))

		members.On("Get", ctx, "owner-1", "t1").Return(&Membership{UserID: "owner-1", TenantID: "t1", Role: RoleOwner}, nil)
		members.On("CountByRole", ctx, "t1", RoleOwner).Return(1, nil)

		err := service.RemoveMember(ctx, "t1", "owner-1", "owner-1")
		assert.ErrorIs(t, err, ErrLastOwner)
		members.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("demote one of two owners", func(t *testing.T) {
		members := new(mockMembershipRepo)
		auditLogger := new(mockAudit)
		auditLogger.On("Log", mock.Anything, mock.Anything).Return()
		service := NewService(new(mockRepo), members, auditLogger)

		members.On("Get", ctx, "owner-2", "t1").Return(&Membership{UserID: "owner-2", TenantID: "t1", Role: RoleOwner}, nil)
		members.On("CountByRole", ctx, "t1", RoleOwner).Return(2, nil)
		members.On("UpdateRole", ctx, "owner-2", "t1", RoleAdmin).Return(nil)

		err := service.ChangeRole(ctx, "t1", "owner-2", RoleAdmin, "owner-1")
		assert.NoError(t, err)
		members.AssertExpectations(t)
	})
}

// TestPurpose: Validates role resolution semantics for present and absent memberships.
// Scope: Unit Test
// Security: RBAC decision correctness
// Expected: ResolveRole returns the stored role; HasRole treats a missing membership as false without error.
// Test Case ID: TEN-07
func TestTenant_Service_ResolveRole_And_HasRole(t *testing.T) {
	members := new(mockMembershipRepo)
	service := NewService(new(mockRepo), members, new(mockAudit))
	ctx := context.Background()

	members.On("Get", ctx, "user-1", "t1").Return(&Membership{UserID: "user-1", TenantID: "t1", Role: RoleAdmin}, nil)
	members.On("Get", ctx, "stranger", "t1").Return(nil, ErrMembershipNotFound)

	role, err := service.ResolveRole(ctx, "user-1", "t1")
	assert.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	ok, err := service.HasRole(ctx, "user-1", "t1", RoleMember)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.HasRole(ctx, "user-1", "t1", RoleOwner)
	assert.NoError(t, err)
	assert.False(t, ok)

	// No membership resolves to no privileges, not an error
	ok, err = service.HasRole(ctx, "stranger", "t1", RoleMember)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = service.ResolveRole(ctx, "stranger", "t1")
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}
