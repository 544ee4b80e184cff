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

package apikey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/credential"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// MockKeyRepository is a simple in-memory implementation of Repository
type MockKeyRepository struct {
	keys     map[string]*Key
	usageErr error
}

func NewMockKeyRepository() *MockKeyRepository {
	return &MockKeyRepository{keys: make(map[string]*Key)}
}

func (m *MockKeyRepository) Create(ctx context.Context, key *Key) error {
	m.keys[key.ID] = key
	return nil
}

func (m *MockKeyRepository) GetByID(ctx context.Context, id string) (*Key, error) {
	k, ok := m.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return k, nil
}

func (m *MockKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*Key, error) {
	for _, k := range m.keys {
		if k.Prefix == prefix {
			return k, nil
		}
	}
	return nil, ErrKeyNotFound
}

func (m *MockKeyRepository) ListByTenant(ctx context.Context, tenantID string) ([]*Key, error) {
	var out []*Key
	for _, k := range m.keys {
		if k.TenantID == tenantID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *MockKeyRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	k, ok := m.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	if k.RevokedAt == nil {
		k.RevokedAt = &at
	}
	k.Active = false
	return nil
}

func (m *MockKeyRepository) RecordUsage(ctx context.Context, id string, at time.Time) error {
	if m.usageErr != nil {
		return m.usageErr
	}
	k, ok := m.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	k.LastUsedAt = &at
	return nil
}

func (m *MockKeyRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	for id, k := range m.keys {
		if k.ExpiresAt != nil && k.ExpiresAt.Before(before) {
			delete(m.keys, id)
			n++
		}
	}
	return n, nil
}

// MockTenantGetter is a simple in-memory implementation of TenantGetter
type MockTenantGetter struct {
	tenants map[string]*tenant.Tenant
}

func NewMockTenantGetter() *MockTenantGetter {
	return &MockTenantGetter{tenants: make(map[string]*tenant.Tenant)}
}

func (m *MockTenantGetter) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func newTestService() (*Service, *MockKeyRepository, *MockTenantGetter) {
	repo := NewMockKeyRepository()
	tenants := NewMockTenantGetter()
	tenants.tenants["t1"] = &tenant.Tenant{ID: "t1", Name: "Acme", Slug: "acme", Status: tenant.StatusActive}
	hasher := credential.NewArgon2Hasher(8*1024, 1, 1, 16, 32)
	return NewService(repo, tenants, hasher, audit.NewSlogLogger()), repo, tenants
}

// TestPurpose: Validates the issue-then-validate round trip for a machine credential.
// Scope: Unit Test
// Security: Credential issuance and verification correctness
// Expected: The freshly issued plaintext validates to the same key; usage is stamped; the plaintext is never stored.
// Test Case ID: KEY-01
func TestAPIKey_Service_IssueValidate_RoundTrip(t *testing.T) {
	s, repo, _ := newTestService()
	ctx := context.Background()

	key, plaintext, err := s.Issue(ctx, "t1", "ci-bot", 0)
	if err != nil {
		t.Fatalf("failed to issue: %v", err)
	}
	if !strings.HasPrefix(plaintext, credential.KeyTag) {
		t.Errorf("plaintext missing %s tag: %s", credential.KeyTag, plaintext)
	}
	if key.ExpiresAt != nil {
		t.Error("zero ttl must mean no expiry")
	}

	stored := repo.keys[key.ID]
	if strings.Contains(stored.SecretHash, strings.TrimPrefix(plaintext, key.Prefix+".")) {
		t.Error("stored hash must not contain the plaintext secret")
	}

	got, err := s.Validate(ctx, plaintext)
	if err != nil {
		t.Fatalf("expected validation to succeed, got %v", err)
	}
	if got.ID != key.ID {
		t.Errorf("expected key %s, got %s", key.ID, got.ID)
	}
	if got.LastUsedAt == nil {
		t.Error("expected usage to be recorded")
	}
}

// TestPurpose: Validates that rejections do not reveal which half of the credential failed.
// Scope: Unit Test
// Security: Credential enumeration resistance
// Expected: Unknown prefix and wrong secret both return ErrKeyNotFound; malformed input returns ErrKeyMalformed.
// Test Case ID: KEY-02
func TestAPIKey_Service_Validate_UniformRejection(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	_, plaintext, err := s.Issue(ctx, "t1", "ci-bot", 0)
	if err != nil {
		t.Fatalf("failed to issue: %v", err)
	}

	// Wrong secret under a known prefix
	prefix, _, _ := credential.SplitKey(plaintext)
	_, err = s.Validate(ctx, prefix+".wrong-secret-material-wrong-secret-material")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("wrong secret: expected ErrKeyNotFound, got %v", err)
	}

	// Unknown prefix entirely
	_, err = s.Validate(ctx, "chk_00000000.wrong-secret-material-wrong-secret-mat")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("unknown prefix: expected ErrKeyNotFound, got %v", err)
	}

	// Malformed shapes never reach the store
	for _, v := range []string{"", "chk_short", "just-a-string", "xyz_a1b2c3d4.secret"} {
		if _, err := s.Validate(ctx, v); !errors.Is(err, ErrKeyMalformed) {
			t.Errorf("malformed %q: expected ErrKeyMalformed, got %v", v, err)
		}
	}
}

// TestPurpose: Validates one-way, idempotent revocation.
// Scope: Unit Test
// Security: Revocation permanence
// Expected: First revoke disables the key, repeat revokes are no-ops, the key never validates again.
// Test Case ID: KEY-03
func TestAPIKey_Service_Revoke_Permanent(t *testing.T) {
	s, repo, _ := newTestService()
	ctx := context.Background()

	key, plaintext, err := s.Issue(ctx, "t1", "ci-bot", 0)
	if err != nil {
		t.Fatalf("failed to issue: %v", err)
	}

	if err := s.Revoke(ctx, "t1", key.ID, "admin-1"); err != nil {
		t.Fatalf("failed to revoke: %v", err)
	}

	revokedAt := repo.keys[key.ID].RevokedAt
	if revokedAt == nil {
		t.Fatal("expected RevokedAt to be set")
	}

	// Idempotent second revoke keeps the original timestamp
	if err := s.Revoke(ctx, "t1", key.ID, "admin-1"); err != nil {
		t.Fatalf("second revoke should be a no-op, got %v", err)
	}
	if !repo.keys[key.ID].RevokedAt.Equal(*revokedAt) {
		t.Error("revocation timestamp must be set exactly once")
	}

	if _, err := s.Validate(ctx, plaintext); !errors.Is(err, ErrKeyRevoked) {
		t.Errorf("expected ErrKeyRevoked, got %v", err)
	}

	// Foreign tenant cannot revoke or even observe the key
	if err := s.Revoke(ctx, "t2", key.ID, "admin-2"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound for foreign tenant, got %v", err)
	}
}

// TestPurpose: Validates expiry comparison against a pinned clock, including the exact boundary instant.
// Scope: Unit Test
// Security: Credential lifetime enforcement
// Expected: Valid strictly before expiry; rejected at and after the expiry instant.
// Test Case ID: KEY-04
func TestAPIKey_Service_Validate_ExpiryBoundary(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issuedAt }

	_, plaintext, err := s.Issue(ctx, "t1", "ci-bot", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue: %v", err)
	}

	// One second before expiry
	s.now = func() time.Time { return issuedAt.Add(time.Hour - time.Second) }
	if _, err := s.Validate(ctx, plaintext); err != nil {
		t.Errorf("expected key to be valid before expiry, got %v", err)
	}

	// Exactly at the expiry instant
	s.now = func() time.Time { return issuedAt.Add(time.Hour) }
	if _, err := s.Validate(ctx, plaintext); !errors.Is(err, ErrKeyExpired) {
		t.Errorf("expected ErrKeyExpired at the boundary, got %v", err)
	}

	// Well past expiry
	s.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	if _, err := s.Validate(ctx, plaintext); !errors.Is(err, ErrKeyExpired) {
		t.Errorf("expected ErrKeyExpired after expiry, got %v", err)
	}
}

// TestPurpose: Validates that deactivating a tenant invalidates its keys at once and reactivation restores them.
// Scope: Unit Test
// Security: Tenant-wide kill switch
// Expected: ErrTenantInactive while the tenant is inactive; the untouched key validates again after reactivation.
// Test Case ID: KEY-05
func TestAPIKey_Service_Validate_TenantLifecycle(t *testing.T) {
	s, _, tenants := newTestService()
	ctx := context.Background()

	_, plaintext, err := s.Issue(ctx, "t1", "ci-bot", 0)
	if err != nil {
		t.Fatalf("failed to issue: %v", err)
	}

	tenants.tenants["t1"].Status = tenant.StatusInactive
	if _, err := s.Validate(ctx, plaintext); !errors.Is(err, tenant.ErrTenantInactive) {
		t.Errorf("expected ErrTenantInactive, got %v", err)
	}

	// Issuing against an inactive tenant is refused too
	if _, _, err := s.Issue(ctx, "t1", "another", 0); !errors.Is(err, tenant.ErrTenantInactive) {
		t.Errorf("expected ErrTenantInactive on issue, got %v", err)
	}

	tenants.tenants["t1"].Status = tenant.StatusActive
	if _, err := s.Validate(ctx, plaintext); err != nil {
		t.Errorf("expected key to validate after reactivation, got %v", err)
	}
}

// TestPurpose: Validates that usage stamping is best effort.
// Scope: Unit Test
// Security: Availability of the validation path over telemetry completeness
// Expected: Validation succeeds even when the usage write fails.
// Test Case ID: KEY-06
func TestAPIKey_Service_Validate_UsageWriteFailureTolerated(t *testing.T) {
	s, repo, _ := newTestService()
	ctx := context.Background()

	_, plaintext, err := s.Issue(ctx, "t1", "ci-bot", 0)
	if err != nil {
		t.Fatalf("failed to issue: %v", err)
	}

	repo.usageErr = errors.New("connection reset")
	if _, err := s.Validate(ctx, plaintext); err != nil {
		t.Errorf("expected validation to tolerate usage write failure, got %v", err)
	}
}
