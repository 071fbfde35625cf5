// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

import "time"

// Database Query Timeouts
const (
	QueryTimeoutMedium     = 10 * time.Second
	QueryTimeoutSlow       = 15 * time.Second
	SchemaDiscoveryTimeout = 30 * time.Second
	ConnectionTimeout      = 5 * time.Second
)

// Circuit Breaker Configuration
const (
	CircuitBreakerMaxRequests uint32 = 3
	CircuitBreakerInterval           = 2 * time.Minute
	CircuitBreakerTimeout            = 30 * time.Second
	CircuitBreakerThreshold   uint32 = 15
)

// Circuit Breaker State Names
const (
	CircuitBreakerStateClosed   = "closed"
	CircuitBreakerStateOpen     = "open"
	CircuitBreakerStateHalfOpen = "half-open"
)

// Tenant Pool Configuration
const (
	TenantMaxOpenConns    = 10
	TenantMaxIdleConns    = 2
	TenantConnMaxLifetime = 5 * time.Minute
	TenantConnMaxIdleTime = 1 * time.Minute
	TenantMaxPools        = 64
	TenantPoolIdleTimeout = 15 * time.Minute
	TenantJanitorInterval = 1 * time.Minute
)

// Tenant Connect Retry Configuration
const (
	TenantConnectMaxRetries     = 2
	TenantConnectInitialBackoff = 200 * time.Millisecond
	TenantConnectMaxBackoff     = 2 * time.Second
	TenantConnectBackoffFactor  = 2.0
)

// Health Check Configuration
const (
	HealthCheckTimeout = 5 * time.Second
)

// Entity defaults
const (
	DefaultSchema          = "dbo"
	DefaultPostgresSchema  = "public"
	DefaultOrigin          = "WEB"
	DefaultPrincipalID     = 1
	DefaultAuthProcedure   = "p_traer_conexion_usuario_autenticar"
	DefaultPrincipalTable  = "usuarios"
	DefaultBulkWriteEntity = "p_register_records"
	StatusCodeField        = "codigo_estado"
	PrincipalIDField       = "id_usuario"
	UserIDParameterPrefix  = "id_usuario"
	ErrorMarkerField       = "error"
)

// DefaultSpecialEntities skip identity injection and free-text normalization.
var DefaultSpecialEntities = []string{"p_traer_valor", "p_registrar_programas", "p_register_records"}
