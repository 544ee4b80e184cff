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

// Package apikey issues and validates tenant-scoped machine credentials.
package apikey

import (
	"context"
	"time"
)

// Key represents a tenant-scoped API key. The secret part exists in
// plaintext only in the issuance response; storage holds its hash.
type Key struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	SecretHash string     `json:"-"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the key has been revoked. Revocation is one-way.
func (k *Key) Revoked() bool {
	return k.RevokedAt != nil
}

// Expired reports whether the key is expired at the given instant.
// A key is expired from its expiry instant onward, boundary included.
func (k *Key) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// Repository defines the interface for API key storage
type Repository interface {
	Create(ctx context.Context, key *Key) error
	GetByID(ctx context.Context, id string) (*Key, error)
	GetByPrefix(ctx context.Context, prefix string) (*Key, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Key, error)
	// Revoke marks the key revoked at the given instant. Already revoked
	// keys keep their original revocation timestamp.
	Revoke(ctx context.Context, id string, at time.Time) error
	// RecordUsage stamps the key's last-used instant.
	RecordUsage(ctx context.Context, id string, at time.Time) error
	// DeleteExpired removes keys whose expiry passed before the cutoff and
	// returns how many rows went away.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
