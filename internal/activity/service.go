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

package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/id"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service provides activity log business logic
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new activity service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Record stores an event. The caller supplies attribution and OccurredAt;
// RecordedAt is always stamped here.
func (s *Service) Record(ctx context.Context, event *Event) error {
	if event.TenantID == "" {
		return fmt.Errorf("event tenant id is required")
	}
	if event.Action == "" {
		return fmt.Errorf("event action is required")
	}
	if event.Source != SourceAPIKey && event.Source != SourceUser {
		return fmt.Errorf("invalid event source: %q", event.Source)
	}
	if event.Actor == "" {
		return fmt.Errorf("event actor is required")
	}

	now := s.now()
	event.ID = id.NewUUIDv7()
	event.RecordedAt = now
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Get retrieves one event within a tenant.
func (s *Service) Get(ctx context.Context, tenantID, eventID string) (*Event, error) {
	return s.repo.GetByID(ctx, tenantID, eventID)
}

// List retrieves a tenant's events, newest first. Filter limits are
// clamped so a single call cannot drain the table.
func (s *Service) List(ctx context.Context, tenantID string, filter Filter) ([]*Event, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// Count returns the number of events stored for a tenant.
func (s *Service) Count(ctx context.Context, tenantID string) (int64, error) {
	return s.repo.CountByTenant(ctx, tenantID)
}

// Purge removes events older than the retention window.
func (s *Service) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}
	return deleted, nil
}
