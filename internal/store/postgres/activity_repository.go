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
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/activity"
)

// ActivityRepository implements activity.Repository
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new activity event repository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create stores a new event. Metadata lands in a JSONB column.
func (r *ActivityRepository) Create(ctx context.Context, event *activity.Event) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO activity_events (
			id, tenant_id, actor, source, action, target, metadata, occurred_at, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		event.ID, event.TenantID, event.Actor, event.Source, event.Action, event.Target,
		event.Metadata, event.OccurredAt, event.RecordedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create activity event: %w", err)
	}

	return nil
}

// GetByID retrieves an event within a tenant
func (r *ActivityRepository) GetByID(ctx context.Context, tenantID, id string) (*activity.Event, error) {
	var event activity.Event

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, actor, source, action, target, metadata, occurred_at, recorded_at
		FROM activity_events
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(
		&event.ID, &event.TenantID, &event.Actor, &event.Source, &event.Action, &event.Target,
		&event.Metadata, &event.OccurredAt, &event.RecordedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, activity.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get activity event: %w", err)
	}

	return &event, nil
}

// List retrieves a tenant's events, newest first
func (r *ActivityRepository) List(ctx context.Context, tenantID string, filter activity.Filter) ([]*activity.Event, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, tenant_id, actor, source, action, target, metadata, occurred_at, recorded_at
		FROM activity_events
		WHERE tenant_id = $1`)
	args := []any{tenantID}

	if filter.Action != "" {
		args = append(args, filter.Action)
		sb.WriteString(" AND action = $" + strconv.Itoa(len(args)))
	}
	if filter.Actor != "" {
		args = append(args, filter.Actor)
		sb.WriteString(" AND actor = $" + strconv.Itoa(len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		sb.WriteString(" AND occurred_at >= $" + strconv.Itoa(len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		sb.WriteString(" AND occurred_at <= $" + strconv.Itoa(len(args)))
	}

	args = append(args, filter.Limit)
	sb.WriteString(" ORDER BY occurred_at DESC LIMIT $" + strconv.Itoa(len(args)))
	args = append(args, filter.Offset)
	sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))

	rows, err := r.db.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity events: %w", err)
	}
	defer rows.Close()

	var events []*activity.Event
	for rows.Next() {
		var event activity.Event
		if err := rows.Scan(
			&event.ID, &event.TenantID, &event.Actor, &event.Source, &event.Action, &event.Target,
			&event.Metadata, &event.OccurredAt, &event.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity events: %w", err)
	}

	return events, nil
}

// CountByTenant returns the number of events stored for a tenant
func (r *ActivityRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64

	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM activity_events WHERE tenant_id = $1
	`, tenantID).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("failed to count activity events: %w", err)
	}

	return count, nil
}

// DeleteBefore removes events that occurred before the cutoff
func (r *ActivityRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM activity_events WHERE occurred_at < $1
	`, cutoff)

	if err != nil {
		return 0, fmt.Errorf("failed to delete activity events: %w", err)
	}

	return result.RowsAffected(), nil
}
