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

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/session"
)

// TokenRepository implements session.Repository
type TokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new refresh token repository
func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a new refresh token
func (r *TokenRepository) Create(ctx context.Context, token *session.Token) error {
	var revokedAt sql.NullTime
	if token.RevokedAt != nil {
		revokedAt = sql.NullTime{Time: *token.RevokedAt, Valid: true}
	}
	var replacedByHash sql.NullString
	if token.ReplacedByHash != nil {
		replacedByHash = sql.NullString{String: *token.ReplacedByHash, Valid: true}
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, created_at, created_by_ip,
			revoked_at, revoked_by_ip, replaced_by_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt, token.CreatedByIP,
		revokedAt, token.RevokedByIP, replacedByHash,
	)

	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a refresh token by its digest
func (r *TokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Token, error) {
	var token session.Token
	var revokedAt sql.NullTime
	var replacedByHash sql.NullString

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at, created_by_ip,
			revoked_at, revoked_by_ip, replaced_by_hash
		FROM refresh_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt, &token.CreatedByIP,
		&revokedAt, &token.RevokedByIP, &replacedByHash,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}
	if replacedByHash.Valid {
		token.ReplacedByHash = &replacedByHash.String
	}

	return &token, nil
}

// Revoke marks a token revoked. Already revoked tokens keep their original
// revocation timestamp.
func (r *TokenRepository) Revoke(ctx context.Context, id string, at time.Time, ip string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, id, at, ip)

	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE id = $1)
		`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check refresh token: %w", err)
		}
		if !exists {
			return session.ErrTokenNotFound
		}
	}

	return nil
}

// Rotate consumes the current token and stores its successor in one
// transaction. The conditional update on revoked_at admits exactly one
// winner; every other concurrent rotation gets ErrRotationConflict.
func (r *TokenRepository) Rotate(ctx context.Context, currentID string, at time.Time, ip string, next *session.Token) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, revoked_by_ip = $3, replaced_by_hash = $4
		WHERE id = $1 AND revoked_at IS NULL
	`, currentID, at, ip, next.TokenHash)

	if err != nil {
		return fmt.Errorf("failed to consume refresh token: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE id = $1)
		`, currentID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check refresh token: %w", err)
		}
		if !exists {
			return session.ErrTokenNotFound
		}
		return session.ErrRotationConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, created_at, created_by_ip,
			revoked_at, revoked_by_ip, replaced_by_hash
		) VALUES ($1, $2, $3, $4, $5, $6, NULL, '', NULL)
	`,
		next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.CreatedAt, next.CreatedByIP,
	)

	if err != nil {
		return fmt.Errorf("failed to store successor token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}

	return nil
}

// RevokeAllForUser revokes every live token of a user and reports how many
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time, ip string) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, at, ip)

	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteExpired removes tokens that expired before the cutoff
func (r *TokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < $1
	`, before)

	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
