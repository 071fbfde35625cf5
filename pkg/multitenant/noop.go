// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package multitenant

import (
	"go.opentelemetry.io/otel/metric/noop"
)

// NoopMetrics returns a Metrics instance backed by no-op OTel instruments.
// Used when telemetry is disabled; every instrument is safe to call.
func NoopMetrics() *Metrics {
	meter := noop.NewMeterProvider().Meter("noop")

	// noop meter never returns errors, so we can safely ignore them.
	connectionsTotal, _ := meter.Int64Counter("tenant_connections_total")
	connectionErrorsTotal, _ := meter.Int64Counter("tenant_connection_errors_total")
	poolsActive, _ := meter.Int64UpDownCounter("tenant_pools_active")
	invocationsTotal, _ := meter.Int64Counter("tenant_invocations_total")
	brokerReconnects, _ := meter.Int64Counter("audit_broker_reconnects_total")
	brokerUp, _ := meter.Int64Gauge("audit_broker_up")

	return &Metrics{
		TenantConnectionsTotal:      connectionsTotal,
		TenantConnectionErrorsTotal: connectionErrorsTotal,
		TenantPoolsActive:           poolsActive,
		TenantInvocationsTotal:      invocationsTotal,
		AuditBrokerReconnectsTotal:  brokerReconnects,
		AuditBrokerUp:               brokerUp,
	}
}
