// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"time"

	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/rabbitmq"
	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/redis"
	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/coercion"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/database"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/multitenant"
	"github.com/LerianStudio/procedure-gateway/pkg/tenant"
)

// TenantRouter hands out the connection pool of a tenant credential.
//
//go:generate mockgen --destination=tenant-router.mock.go --package=services . TenantRouter
type TenantRouter interface {
	Configure(ctx context.Context, credential model.TenantCredential) (*tenant.Handle, error)
}

// Settings holds the names and limits the use cases depend on.
type Settings struct {
	// DefaultSchema is used when a request names no schema.
	DefaultSchema string

	// AuthProcedure resolves a username and password to a tenant credential.
	AuthProcedure string

	// AuthSchema is the schema of AuthProcedure.
	AuthSchema string

	// PrincipalTable holds the tenant's user records.
	PrincipalTable string

	// BulkWriteEntity is the one entity allowed to have no declared parameters.
	BulkWriteEntity string

	// DescriptorCacheTTL enables the descriptor cache when positive.
	DescriptorCacheTTL time.Duration

	// SessionTTL bounds an authenticated session.
	SessionTTL time.Duration

	// DefaultOrigin is sent to AuthProcedure when the login has no origin.
	DefaultOrigin string
}

// UseCase is a struct to implement the services methods
type UseCase struct {
	// DefaultRepo is the non-tenant connection used for credential lookup.
	DefaultRepo database.Repository

	// TenantRouter resolves tenant credentials to connection pools.
	TenantRouter TenantRouter

	// Coercion turns request values into ordered invocation arguments.
	Coercion *coercion.Engine

	// RedisRepo caches entity descriptors. Optional.
	RedisRepo redis.RedisRepository

	// SessionRepo persists authenticated sessions.
	SessionRepo redis.SessionRepository

	// AuditProducer publishes authentication events. Optional.
	AuditProducer rabbitmq.ProducerRepository

	// CircuitBreakers isolates failing tenants. Optional.
	CircuitBreakers *pkg.CircuitBreakerManager

	// Metrics records invocations per tenant. Optional.
	Metrics *multitenant.Metrics

	Settings Settings

	// Now is the clock used for sessions and audit events.
	Now func() time.Time
}

func (uc *UseCase) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}

	return time.Now()
}

func (uc *UseCase) defaultSchema() string {
	if uc.Settings.DefaultSchema != "" {
		return uc.Settings.DefaultSchema
	}

	return constant.DefaultSchema
}
