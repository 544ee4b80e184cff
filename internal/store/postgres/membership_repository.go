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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// MembershipRepository implements tenant.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Add creates a membership. The primary key keeps a user to at most one
// membership per tenant.
func (r *MembershipRepository) Add(ctx context.Context, m *tenant.Membership) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO memberships (user_id, tenant_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, m.UserID, m.TenantID, string(m.Role), m.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tenant.ErrMemberExists
		}
		return fmt.Errorf("failed to add membership: %w", err)
	}

	return nil
}

// Get retrieves a user's membership in a tenant
func (r *MembershipRepository) Get(ctx context.Context, userID, tenantID string) (*tenant.Membership, error) {
	var m tenant.Membership

	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, tenant_id, role, created_at
		FROM memberships
		WHERE user_id = $1 AND tenant_id = $2
	`, userID, tenantID).Scan(&m.UserID, &m.TenantID, &m.Role, &m.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &m, nil
}

// UpdateRole changes a member's role
func (r *MembershipRepository) UpdateRole(ctx context.Context, userID, tenantID string, role tenant.Role) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE memberships SET role = $3
		WHERE user_id = $1 AND tenant_id = $2
	`, userID, tenantID, string(role))

	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return tenant.ErrMembershipNotFound
	}

	return nil
}

// Remove deletes a membership
func (r *MembershipRepository) Remove(ctx context.Context, userID, tenantID string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM memberships
		WHERE user_id = $1 AND tenant_id = $2
	`, userID, tenantID)

	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}

	if result.RowsAffected() == 0 {
		return tenant.ErrMembershipNotFound
	}

	return nil
}

// ListByTenant retrieves all memberships of a tenant
func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID string) ([]*tenant.Membership, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT user_id, tenant_id, role, created_at
		FROM memberships
		WHERE tenant_id = $1
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var members []*tenant.Membership
	for rows.Next() {
		var m tenant.Membership
		if err := rows.Scan(&m.UserID, &m.TenantID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}

	return members, nil
}

// CountByRole counts a tenant's members holding a role
func (r *MembershipRepository) CountByRole(ctx context.Context, tenantID string, role tenant.Role) (int, error) {
	var count int

	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships
		WHERE tenant_id = $1 AND role = $2
	`, tenantID, string(role)).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}
