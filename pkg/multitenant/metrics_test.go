// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package multitenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics_CreatesAllInstruments(t *testing.T) {
	t.Parallel()

	mp := sdkmetric.NewMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test-library"))

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NotNil(t, m.TenantConnectionsTotal)
	assert.NotNil(t, m.TenantConnectionErrorsTotal)
	assert.NotNil(t, m.TenantPoolsActive)
	assert.NotNil(t, m.TenantInvocationsTotal)
	assert.NotNil(t, m.AuditBrokerReconnectsTotal)
	assert.NotNil(t, m.AuditBrokerUp)
}

func TestNewMetrics_RecordsOnReader(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test-library"))
	require.NoError(t, err)

	ctx := context.Background()
	tenant := metric.WithAttributes(attribute.String("tenant_fingerprint", "abc"))

	m.TenantConnectionsTotal.Add(ctx, 1, tenant)
	m.TenantPoolsActive.Add(ctx, 1, tenant)
	m.TenantPoolsActive.Add(ctx, -1, tenant)
	m.TenantInvocationsTotal.Add(ctx, 2, tenant)
	m.AuditBrokerReconnectsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
	m.AuditBrokerUp.Record(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := make(map[string]bool)
	for _, md := range rm.ScopeMetrics[0].Metrics {
		names[md.Name] = true
	}

	assert.True(t, names["tenant_connections_total"])
	assert.True(t, names["tenant_pools_active"])
	assert.True(t, names["tenant_invocations_total"])
	assert.True(t, names["audit_broker_reconnects_total"])
	assert.True(t, names["audit_broker_up"])
}

func TestNoopMetrics_RecordDoesNotPanic(t *testing.T) {
	t.Parallel()

	m := NoopMetrics()
	require.NotNil(t, m)

	ctx := context.Background()
	tenant := metric.WithAttributes(attribute.String("tenant_fingerprint", "test-tenant"))

	assert.NotPanics(t, func() {
		m.TenantConnectionsTotal.Add(ctx, 1, tenant)
		m.TenantConnectionErrorsTotal.Add(ctx, 1, tenant)
		m.TenantPoolsActive.Add(ctx, 1, tenant)
		m.TenantInvocationsTotal.Add(ctx, 1, tenant)
		m.AuditBrokerReconnectsTotal.Add(ctx, 1)
		m.AuditBrokerUp.Record(ctx, 0)
	})
}
