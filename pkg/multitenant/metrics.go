// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package multitenant

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the tenant pool and invocation OTel instruments.
// All fields are guaranteed non-nil after construction via NewMetrics or NoopMetrics,
// so callers record values without nil checks whether or not telemetry is enabled.
type Metrics struct {
	// TenantConnectionsTotal counts tenant pools opened.
	TenantConnectionsTotal metric.Int64Counter

	// TenantConnectionErrorsTotal counts failed connection attempts, by tenant fingerprint.
	TenantConnectionErrorsTotal metric.Int64Counter

	// TenantPoolsActive tracks the number of open tenant pools.
	// Uses UpDownCounter because pools are both opened and evicted.
	TenantPoolsActive metric.Int64UpDownCounter

	// TenantInvocationsTotal counts entity invocations, by tenant fingerprint and outcome.
	TenantInvocationsTotal metric.Int64Counter

	// AuditBrokerReconnectsTotal counts audit broker reconnect attempts, by outcome.
	AuditBrokerReconnectsTotal metric.Int64Counter

	// AuditBrokerUp is 1 while the audit broker connection is usable and 0 otherwise.
	AuditBrokerUp metric.Int64Gauge
}

// NewMetrics creates a Metrics instance with real OTel instruments registered on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	connectionsTotal, err := meter.Int64Counter(
		"tenant_connections_total",
		metric.WithDescription("Total tenant database pools opened"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tenant_connections_total counter: %w", err)
	}

	connectionErrorsTotal, err := meter.Int64Counter(
		"tenant_connection_errors_total",
		metric.WithDescription("Connection failures per tenant"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tenant_connection_errors_total counter: %w", err)
	}

	poolsActive, err := meter.Int64UpDownCounter(
		"tenant_pools_active",
		metric.WithDescription("Open tenant database pools"),
		metric.WithUnit("{pool}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tenant_pools_active up_down_counter: %w", err)
	}

	invocationsTotal, err := meter.Int64Counter(
		"tenant_invocations_total",
		metric.WithDescription("Entity invocations per tenant"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tenant_invocations_total counter: %w", err)
	}

	brokerReconnects, err := meter.Int64Counter(
		"audit_broker_reconnects_total",
		metric.WithDescription("Audit broker reconnect attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit_broker_reconnects_total counter: %w", err)
	}

	brokerUp, err := meter.Int64Gauge(
		"audit_broker_up",
		metric.WithDescription("Whether the audit broker connection is usable"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit_broker_up gauge: %w", err)
	}

	return &Metrics{
		TenantConnectionsTotal:      connectionsTotal,
		TenantConnectionErrorsTotal: connectionErrorsTotal,
		TenantPoolsActive:           poolsActive,
		TenantInvocationsTotal:      invocationsTotal,
		AuditBrokerReconnectsTotal:  brokerReconnects,
		AuditBrokerUp:               brokerUp,
	}, nil
}
