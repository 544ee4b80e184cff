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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/apikey"
)

// KeyRepository implements apikey.Repository
type KeyRepository struct {
	db *DB
}

// NewKeyRepository creates a new API key repository
func NewKeyRepository(db *DB) *KeyRepository {
	return &KeyRepository{db: db}
}

// Create stores a new key
func (r *KeyRepository) Create(ctx context.Context, key *apikey.Key) error {
	var expiresAt sql.NullTime
	if key.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *key.ExpiresAt, Valid: true}
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO api_keys (
			id, tenant_id, name, prefix, secret_hash, active, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		key.ID, key.TenantID, key.Name, key.Prefix, key.SecretHash, key.Active, key.CreatedAt, expiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	return nil
}

// GetByID retrieves a key by ID
func (r *KeyRepository) GetByID(ctx context.Context, id string) (*apikey.Key, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByPrefix retrieves a key by its public prefix
func (r *KeyRepository) GetByPrefix(ctx context.Context, prefix string) (*apikey.Key, error) {
	return r.get(ctx, `WHERE prefix = $1`, prefix)
}

func (r *KeyRepository) get(ctx context.Context, where string, arg any) (*apikey.Key, error) {
	var key apikey.Key
	var expiresAt, lastUsedAt, revokedAt sql.NullTime

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, prefix, secret_hash, active,
			created_at, expires_at, last_used_at, revoked_at
		FROM api_keys
	`+where, arg).Scan(
		&key.ID, &key.TenantID, &key.Name, &key.Prefix, &key.SecretHash, &key.Active,
		&key.CreatedAt, &expiresAt, &lastUsedAt, &revokedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikey.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	if expiresAt.Valid {
		key.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}
	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.Time
	}

	return &key, nil
}

// ListByTenant retrieves a tenant's keys, newest first
func (r *KeyRepository) ListByTenant(ctx context.Context, tenantID string) ([]*apikey.Key, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, name, prefix, secret_hash, active,
			created_at, expires_at, last_used_at, revoked_at
		FROM api_keys
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*apikey.Key
	for rows.Next() {
		var key apikey.Key
		var expiresAt, lastUsedAt, revokedAt sql.NullTime
		if err := rows.Scan(
			&key.ID, &key.TenantID, &key.Name, &key.Prefix, &key.SecretHash, &key.Active,
			&key.CreatedAt, &expiresAt, &lastUsedAt, &revokedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		if expiresAt.Valid {
			key.ExpiresAt = &expiresAt.Time
		}
		if lastUsedAt.Valid {
			key.LastUsedAt = &lastUsedAt.Time
		}
		if revokedAt.Valid {
			key.RevokedAt = &revokedAt.Time
		}
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate api keys: %w", err)
	}

	return keys, nil
}

// Revoke marks a key revoked. Already revoked keys keep their original
// revocation timestamp.
func (r *KeyRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE api_keys SET active = FALSE, revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`, id, at)

	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Missing key is an error; an already revoked key is not
		var exists bool
		if err := r.db.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM api_keys WHERE id = $1)
		`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check api key: %w", err)
		}
		if !exists {
			return apikey.ErrKeyNotFound
		}
	}

	return nil
}

// RecordUsage stamps the key's last-used instant
func (r *KeyRepository) RecordUsage(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $2
		WHERE id = $1
	`, id, at)

	if err != nil {
		return fmt.Errorf("failed to record api key usage: %w", err)
	}

	return nil
}

// DeleteExpired removes keys whose expiry passed before the cutoff
func (r *KeyRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM api_keys
		WHERE expires_at IS NOT NULL AND expires_at < $1
	`, before)

	if err != nil {
		return 0, fmt.Errorf("failed to delete expired api keys: %w", err)
	}

	return result.RowsAffected(), nil
}
