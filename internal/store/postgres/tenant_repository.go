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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create creates a new tenant
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	var deactivatedAt sql.NullTime
	if t.DeactivatedAt != nil {
		deactivatedAt = sql.NullTime{Time: *t.DeactivatedAt, Valid: true}
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, slug, status, created_at, deactivated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.Name, t.Slug, string(t.Status), t.CreatedAt, deactivatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tenant.ErrSlugTaken
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var deactivatedAt sql.NullTime

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, slug, status, created_at, deactivated_at
		FROM tenants
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &deactivatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	if deactivatedAt.Valid {
		t.DeactivatedAt = &deactivatedAt.Time
	}

	return &t, nil
}

// GetBySlug retrieves a tenant by slug
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var deactivatedAt sql.NullTime

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, slug, status, created_at, deactivated_at
		FROM tenants
		WHERE slug = $1
	`, slug).Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &deactivatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant by slug: %w", err)
	}

	if deactivatedAt.Valid {
		t.DeactivatedAt = &deactivatedAt.Time
	}

	return &t, nil
}

// Update updates a tenant's mutable fields
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	var deactivatedAt sql.NullTime
	if t.DeactivatedAt != nil {
		deactivatedAt = sql.NullTime{Time: *t.DeactivatedAt, Valid: true}
	}

	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants
		SET name = $2, slug = $3, status = $4, deactivated_at = $5
		WHERE id = $1
	`, t.ID, t.Name, t.Slug, string(t.Status), deactivatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tenant.ErrSlugTaken
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}

	return nil
}

// List retrieves tenants ordered by creation time
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, slug, status, created_at, deactivated_at
		FROM tenants
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		var deactivatedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &deactivatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		if deactivatedAt.Valid {
			t.DeactivatedAt = &deactivatedAt.Time
		}
		tenants = append(tenants, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}

	return tenants, nil
}

// ListForUser retrieves the tenants a user belongs to
func (r *TenantRepository) ListForUser(ctx context.Context, userID string) ([]*tenant.Tenant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT t.id, t.name, t.slug, t.status, t.created_at, t.deactivated_at
		FROM tenants t
		JOIN memberships m ON m.tenant_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants for user: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		var deactivatedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &deactivatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		if deactivatedAt.Valid {
			t.DeactivatedAt = &deactivatedAt.Time
		}
		tenants = append(tenants, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}

	return tenants, nil
}
