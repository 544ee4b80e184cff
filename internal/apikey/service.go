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
	"fmt"
	"log/slog"
	"time"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/credential"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/id"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// TenantGetter resolves the tenant a key belongs to. Satisfied by
// tenant.Repository.
type TenantGetter interface {
	GetByID(ctx context.Context, id string) (*tenant.Tenant, error)
}

// Service provides API key issuance and validation business logic
type Service struct {
	repo        Repository
	tenants     TenantGetter
	hasher      credential.Hasher
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new API key service
func NewService(repo Repository, tenants TenantGetter, hasher credential.Hasher, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		tenants:     tenants,
		hasher:      hasher,
		auditLogger: auditLogger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a new API key for a tenant. The returned plaintext is shown
// exactly once; only its hash is stored. ttl of zero means no expiry.
func (s *Service) Issue(ctx context.Context, tenantID, name string, ttl time.Duration) (*Key, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("key name is required")
	}

	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, "", err
	}
	if !t.Active() {
		return nil, "", tenant.ErrTenantInactive
	}

	plaintext, prefix, secret, err := credential.NewAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate api key: %w", err)
	}

	secretHash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash api key secret: %w", err)
	}

	now := s.now()
	key := &Key{
		ID:         id.NewUUIDv7(),
		TenantID:   tenantID,
		Name:       name,
		Prefix:     prefix,
		SecretHash: secretHash,
		Active:     true,
		CreatedAt:  now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		key.ExpiresAt = &expiresAt
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return nil, "", fmt.Errorf("failed to store api key: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeKeyIssued,
		TenantID: tenantID,
		ActorID:  key.ID,
		Resource: name,
		Metadata: map[string]any{"prefix": prefix},
	})

	return key, plaintext, nil
}

// Validate checks a presented plaintext key and returns the stored key on
// success. An unknown prefix and a wrong secret produce the same
// ErrKeyNotFound. Usage recording is best effort and never fails the
// validation.
func (s *Service) Validate(ctx context.Context, plaintext string) (*Key, error) {
	prefix, secret, ok := credential.SplitKey(plaintext)
	if !ok {
		return nil, ErrKeyMalformed
	}

	key, err := s.repo.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(secret, key.SecretHash) {
		return nil, ErrKeyNotFound
	}

	now := s.now()
	if key.Revoked() || !key.Active {
		return nil, ErrKeyRevoked
	}
	if key.Expired(now) {
		return nil, ErrKeyExpired
	}

	t, err := s.tenants.GetByID(ctx, key.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load owning tenant: %w", err)
	}
	if !t.Active() {
		return nil, tenant.ErrTenantInactive
	}

	if err := s.repo.RecordUsage(ctx, key.ID, now); err != nil {
		slog.WarnContext(ctx, "failed to record api key usage", "key_id", key.ID, "error", err)
	}

	return key, nil
}

// Revoke permanently disables a key. Revoking an already revoked key is a
// no-op; nothing ever reactivates a revoked key.
func (s *Service) Revoke(ctx context.Context, tenantID, keyID, actorID string) error {
	key, err := s.repo.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	// Management calls are tenant-scoped; a foreign key id looks absent.
	if key.TenantID != tenantID {
		return ErrKeyNotFound
	}
	if key.Revoked() {
		return nil
	}

	if err := s.repo.Revoke(ctx, keyID, s.now()); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeKeyRevoked,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: key.Name,
		Metadata: map[string]any{audit.AttrKeyID: keyID, "prefix": key.Prefix},
	})

	return nil
}

// Get returns a key by id, scoped to a tenant.
func (s *Service) Get(ctx context.Context, tenantID, keyID string) (*Key, error) {
	key, err := s.repo.GetByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key.TenantID != tenantID {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// List returns every key issued to a tenant, revoked and expired included.
func (s *Service) List(ctx context.Context, tenantID string) ([]*Key, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// PurgeExpired deletes keys whose expiry lies further back than retain.
func (s *Service) PurgeExpired(ctx context.Context, retain time.Duration) (int64, error) {
	cutoff := s.now().Add(-retain)
	deleted, err := s.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired api keys: %w", err)
	}
	return deleted, nil
}

// IsCredentialError reports whether err is a key rejection rather than an
// infrastructure failure.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrKeyMalformed) ||
		errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrKeyExpired) ||
		errors.Is(err, ErrKeyRevoked) ||
		errors.Is(err, tenant.ErrTenantInactive)
}
