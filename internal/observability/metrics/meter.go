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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Metrics carries the service's instruments. With metrics disabled the
// instruments come from a noop meter and recording is free.
type Metrics struct {
	authRejections  metric.Int64Counter
	keysIssued      metric.Int64Counter
	tokensRotated   metric.Int64Counter
	reuseIncidents  metric.Int64Counter
	eventsRecorded  metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// New creates the service instruments on the global meter provider.
func New(ctx context.Context, cfg Config, serviceName string) (*Metrics, error) {
	name := serviceName
	if !cfg.Enabled {
		name = "noop"
	}
	meter := otel.Meter(name)

	m := &Metrics{}
	var err error

	if m.authRejections, err = meter.Int64Counter(
		"chroniclehub.auth.rejections",
		metric.WithDescription("Credential rejections by reason"),
	); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	if m.keysIssued, err = meter.Int64Counter(
		"chroniclehub.apikeys.issued",
		metric.WithDescription("API keys issued"),
	); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	if m.tokensRotated, err = meter.Int64Counter(
		"chroniclehub.tokens.rotated",
		metric.WithDescription("Refresh token rotations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	if m.reuseIncidents, err = meter.Int64Counter(
		"chroniclehub.tokens.reuse_detected",
		metric.WithDescription("Refresh token reuse incidents"),
	); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	if m.eventsRecorded, err = meter.Int64Counter(
		"chroniclehub.activity.recorded",
		metric.WithDescription("Activity events recorded"),
	); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	if m.requestDuration, err = meter.Float64Histogram(
		"chroniclehub.http.request_duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}

	return m, nil
}

// AuthRejected counts a credential rejection by reason.
func (m *Metrics) AuthRejected(ctx context.Context, reason string) {
	m.authRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// KeyIssued counts an issued API key.
func (m *Metrics) KeyIssued(ctx context.Context, tenantID string) {
	m.keysIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
}

// TokenRotated counts a refresh token rotation.
func (m *Metrics) TokenRotated(ctx context.Context) {
	m.tokensRotated.Add(ctx, 1)
}

// ReuseDetected counts a token reuse incident.
func (m *Metrics) ReuseDetected(ctx context.Context) {
	m.reuseIncidents.Add(ctx, 1)
}

// EventRecorded counts a stored activity event.
func (m *Metrics) EventRecorded(ctx context.Context, tenantID string) {
	m.eventsRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
}

// RequestObserved records a request duration with its route and status.
func (m *Metrics) RequestObserved(ctx context.Context, route string, status int, ms float64) {
	m.requestDuration.Record(ctx, ms, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
