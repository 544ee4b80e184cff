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

// Package session manages user refresh tokens and the short-lived access
// tokens minted alongside them.
package session

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenReuse    = errors.New("refresh token reuse detected")

	// ErrRotationConflict signals that a concurrent rotation consumed the
	// token first. At most one rotation of a given token can succeed.
	ErrRotationConflict = errors.New("refresh token already rotated")

	ErrAccessTokenInvalid = errors.New("access token invalid")
	ErrAccessTokenExpired = errors.New("access token expired")
)

// Token represents a single-use refresh token. Rotation links tokens into a
// chain: the consumed token's ReplacedByHash names its successor's digest.
// Storage only ever sees digests, never raw token material.
type Token struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	TokenHash      string     `json:"-"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	CreatedByIP    string     `json:"created_by_ip,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP    string     `json:"revoked_by_ip,omitempty"`
	ReplacedByHash *string    `json:"-"`
}

// Revoked reports whether the token has been revoked.
func (t *Token) Revoked() bool {
	return t.RevokedAt != nil
}

// Rotated reports whether the token was consumed by a rotation.
func (t *Token) Rotated() bool {
	return t.RevokedAt != nil && t.ReplacedByHash != nil
}

// Expired reports whether the token is expired at the given instant,
// boundary included.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Repository defines the interface for refresh token persistence
type Repository interface {
	// Create persists a new refresh token
	Create(ctx context.Context, token *Token) error

	// GetByTokenHash retrieves a token by its digest
	GetByTokenHash(ctx context.Context, tokenHash string) (*Token, error)

	// Revoke marks a token revoked at the given instant. An already revoked
	// token keeps its original revocation record.
	Revoke(ctx context.Context, id string, at time.Time, ip string) error

	// Rotate atomically revokes the current token, points it at the
	// successor's digest, and persists the successor, all in one
	// transaction. It returns ErrRotationConflict when the current token
	// was already consumed; exactly one concurrent rotation can win.
	Rotate(ctx context.Context, currentID string, at time.Time, ip string, next *Token) error

	// RevokeAllForUser revokes every live token belonging to a user and
	// returns how many were revoked
	RevokeAllForUser(ctx context.Context, userID string, at time.Time, ip string) (int64, error)

	// DeleteExpired deletes tokens that expired before the cutoff
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
