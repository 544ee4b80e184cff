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

// Package activity is the tenant-scoped activity log. Events are the
// product payload ChronicleHub exists to record; every write is attributed
// to the credential that produced it.
package activity

import (
	"context"
	"errors"
	"time"
)

// Sources an event can be attributed to.
const (
	SourceAPIKey = "api_key"
	SourceUser   = "user"
)

var (
	ErrEventNotFound = errors.New("activity event not found")
)

// Event is a single recorded activity.
type Event struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Actor      string         `json:"actor"`
	Source     string         `json:"source"`
	Action     string         `json:"action"`
	Target     string         `json:"target,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Filter narrows a tenant's event listing.
type Filter struct {
	Action string
	Actor  string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// Repository defines the interface for activity event persistence
type Repository interface {
	// Create stores a new event
	Create(ctx context.Context, event *Event) error

	// GetByID retrieves an event within a tenant
	GetByID(ctx context.Context, tenantID, id string) (*Event, error)

	// List retrieves a tenant's events, newest first
	List(ctx context.Context, tenantID string, filter Filter) ([]*Event, error)

	// CountByTenant returns the number of events stored for a tenant
	CountByTenant(ctx context.Context, tenantID string) (int64, error)

	// DeleteBefore removes events that occurred before the cutoff
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
