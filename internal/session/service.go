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

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/credential"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/id"
)

// TokenPair is the credential material returned by Issue and Rotate. The
// refresh token is raw here and nowhere else; storage holds its digest.
type TokenPair struct {
	UserID       string `json:"-"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Service provides refresh token lifecycle and access token minting
type Service struct {
	repo          Repository
	auditLogger   audit.Logger
	signingSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewService creates a new session service
func NewService(repo Repository, auditLogger audit.Logger, signingSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:          repo,
		auditLogger:   auditLogger,
		signingSecret: signingSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Issue starts a new session for a user: a fresh refresh token plus an
// access token. The raw refresh token appears only in the returned pair.
func (s *Service) Issue(ctx context.Context, userID, ip string) (*TokenPair, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	raw, err := credential.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := s.now()
	token := &Token{
		ID:          id.NewUUIDv7(),
		UserID:      userID,
		TokenHash:   credential.DigestToken(raw),
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedAt:   now,
		CreatedByIP: ip,
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	access, err := s.signAccessToken(userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeTokenIssued,
		ActorID:   userID,
		Resource:  "refresh_token",
		IPAddress: ip,
	})

	return &TokenPair{
		UserID:       userID,
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		RefreshToken: raw,
	}, nil
}

// Validate checks a presented refresh token without consuming it.
// Presenting a token that was already rotated is treated as reuse: the
// whole descendant chain is revoked and ErrTokenReuse is returned.
func (s *Service) Validate(ctx context.Context, raw, ip string) (*Token, error) {
	token, err := s.lookup(ctx, raw)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if token.Revoked() {
		if token.ReplacedByHash != nil {
			s.handleReuse(ctx, token, now, ip)
			return nil, ErrTokenReuse
		}
		return nil, ErrTokenRevoked
	}
	if token.Expired(now) {
		return nil, ErrTokenExpired
	}

	return token, nil
}

// Rotate consumes a refresh token and returns its successor pair. Rotation
// is single use: concurrent rotations of one token produce exactly one
// winner, and every loser lands on the reuse path.
func (s *Service) Rotate(ctx context.Context, raw, ip string) (*TokenPair, error) {
	current, err := s.lookup(ctx, raw)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if current.Revoked() {
		if current.ReplacedByHash != nil {
			s.handleReuse(ctx, current, now, ip)
			return nil, ErrTokenReuse
		}
		return nil, ErrTokenRevoked
	}
	if current.Expired(now) {
		return nil, ErrTokenExpired
	}

	newRaw, err := credential.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	next := &Token{
		ID:          id.NewUUIDv7(),
		UserID:      current.UserID,
		TokenHash:   credential.DigestToken(newRaw),
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedAt:   now,
		CreatedByIP: ip,
	}

	if err := s.repo.Rotate(ctx, current.ID, now, ip, next); err != nil {
		if errors.Is(err, ErrRotationConflict) {
			// A concurrent rotation consumed this token between our read
			// and the conditional write; treat this presentation as reuse.
			refetched, lookupErr := s.repo.GetByTokenHash(ctx, current.TokenHash)
			if lookupErr == nil {
				s.handleReuse(ctx, refetched, now, ip)
			}
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	access, err := s.signAccessToken(current.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeTokenRotated,
		ActorID:   current.UserID,
		Resource:  "refresh_token",
		IPAddress: ip,
	})

	return &TokenPair{
		UserID:       current.UserID,
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		RefreshToken: newRaw,
	}, nil
}

// Revoke explicitly ends a session. Revoking an already revoked token is a
// no-op.
func (s *Service) Revoke(ctx context.Context, raw, ip string) error {
	token, err := s.lookup(ctx, raw)
	if err != nil {
		return err
	}
	if token.Revoked() {
		return nil
	}

	if err := s.repo.Revoke(ctx, token.ID, s.now(), ip); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeTokenRevoked,
		ActorID:   token.UserID,
		Resource:  "refresh_token",
		IPAddress: ip,
	})

	return nil
}

// RevokeAllForUser ends every live session of a user.
func (s *Service) RevokeAllForUser(ctx context.Context, userID, ip string) (int64, error) {
	revoked, err := s.repo.RevokeAllForUser(ctx, userID, s.now(), ip)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	if revoked > 0 {
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeTokenRevoked,
			ActorID:   userID,
			Resource:  "all_sessions",
			IPAddress: ip,
			Metadata:  map[string]any{"count": revoked},
		})
	}

	return revoked, nil
}

// PurgeExpired deletes tokens that expired more than retain ago.
func (s *Service) PurgeExpired(ctx context.Context, retain time.Duration) (int64, error) {
	cutoff := s.now().Add(-retain)
	deleted, err := s.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired refresh tokens: %w", err)
	}
	return deleted, nil
}

// IsCredentialError reports whether err is a token rejection rather than an
// infrastructure failure.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenReuse) ||
		errors.Is(err, ErrAccessTokenInvalid) ||
		errors.Is(err, ErrAccessTokenExpired)
}

func (s *Service) lookup(ctx context.Context, raw string) (*Token, error) {
	if raw == "" {
		return nil, ErrTokenNotFound
	}
	return s.repo.GetByTokenHash(ctx, credential.DigestToken(raw))
}

// handleReuse revokes every living descendant of a rotated token that was
// presented again, then records the incident.
func (s *Service) handleReuse(ctx context.Context, from *Token, at time.Time, ip string) {
	revoked := 0
	cur := from
	for cur.ReplacedByHash != nil {
		next, err := s.repo.GetByTokenHash(ctx, *cur.ReplacedByHash)
		if err != nil {
			if !errors.Is(err, ErrTokenNotFound) {
				slog.WarnContext(ctx, "failed to walk rotation chain", "token_id", cur.ID, "error", err)
			}
			break
		}
		if !next.Revoked() {
			if err := s.repo.Revoke(ctx, next.ID, at, ip); err != nil {
				slog.WarnContext(ctx, "failed to revoke rotation descendant", "token_id", next.ID, "error", err)
				break
			}
			revoked++
		}
		cur = next
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeTokenReuse,
		ActorID:   from.UserID,
		Resource:  "refresh_token",
		IPAddress: ip,
		Metadata:  map[string]any{"descendants_revoked": revoked},
	})
}
