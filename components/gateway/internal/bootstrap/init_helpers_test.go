// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package bootstrap

import (
	"testing"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/multitenant"

	"github.com/LerianStudio/lib-commons/v3/commons/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCredential(t *testing.T) {
	t.Parallel()

	cfg := validGatewayConfig()
	cfg.DBDriver = "SQLSRV"
	cfg.DBPort = "1433"
	cfg.DBEncrypt = "disable"
	cfg.DBTrustServerCertificate = true

	credential := defaultCredential(cfg)

	assert.Equal(t, model.TenantCredential{
		Driver:   "sqlsrv",
		Host:     "sql.internal",
		Port:     "1433",
		Database: "GATEWAY",
		Username: "gateway",
		Password: "gateway-password",
		Options: map[string]string{
			"encrypt":                  "disable",
			"trust_server_certificate": "true",
		},
	}, credential)

	plain := defaultCredential(validGatewayConfig())
	assert.Nil(t, plain.Options)
}

func TestInitCoercion(t *testing.T) {
	t.Parallel()

	t.Run("special entities come from config", func(t *testing.T) {
		t.Parallel()

		cfg := validGatewayConfig()
		cfg.SpecialEntities = "p_custom"

		engine, err := initCoercion(cfg)
		require.NoError(t, err)

		assert.True(t, engine.IsSpecial("p_custom"))
		assert.False(t, engine.IsSpecial("p_traer_valor"))
	})

	t.Run("default principal id is injected", func(t *testing.T) {
		t.Parallel()

		cfg := validGatewayConfig()
		cfg.DefaultPrincipalID = 7

		engine, err := initCoercion(cfg)
		require.NoError(t, err)

		args, err := engine.Coerce([]model.ParameterDescriptor{
			{Position: 1, Name: "id_usuario", Type: model.SQLTypeInt},
		}, map[string]any{}, "p_get_orders", nil)
		require.NoError(t, err)
		assert.Equal(t, []any{int64(7)}, args)
	})

	t.Run("invalid timezone", func(t *testing.T) {
		t.Parallel()

		cfg := validGatewayConfig()
		cfg.Timezone = "Nowhere/Land"

		_, err := initCoercion(cfg)
		require.Error(t, err)
	})
}

func TestInitMultiTenantMetrics_TelemetryDisabled(t *testing.T) {
	t.Parallel()

	cfg := validGatewayConfig()

	metrics := initMultiTenantMetrics(cfg, nil, &log.NoneLogger{})
	require.NotNil(t, metrics)
	assert.NotNil(t, metrics.TenantInvocationsTotal)
}

func TestInitRabbitMQ_Disabled(t *testing.T) {
	t.Parallel()

	res, cleanups := initRabbitMQ(validGatewayConfig(), multitenant.NoopMetrics(), &log.NoneLogger{})

	assert.Nil(t, res)
	assert.Empty(t, cleanups)
}

func TestInitTenantRouter(t *testing.T) {
	t.Parallel()

	cfg := validGatewayConfig()
	cfg.TenantMaxPools = 3
	cfg.TenantPoolIdleTimeoutSec = int((5 * time.Minute) / time.Second)

	metrics := initMultiTenantMetrics(cfg, nil, &log.NoneLogger{})

	router, cleanup := initTenantRouter(cfg, metrics, pkg.NewCircuitBreakerManager(&log.NoneLogger{}), &log.NoneLogger{})
	require.NotNil(t, router)

	assert.Equal(t, 0, router.Len())

	cleanup()
}

func TestService_ShutdownRunsCleanupsInReverse(t *testing.T) {
	t.Parallel()

	var order []string

	svc := &Service{
		Logger: &log.NoneLogger{},
		cleanups: []func(){
			func() { order = append(order, "telemetry") },
			func() { order = append(order, "database") },
			func() { order = append(order, "redis") },
		},
	}

	svc.shutdown()
	svc.shutdown()

	assert.Equal(t, []string{"redis", "database", "telemetry"}, order)
}
