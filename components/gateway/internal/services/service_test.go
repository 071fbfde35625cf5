// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"testing"
	"time"

	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/rabbitmq"
	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/redis"
	"github.com/LerianStudio/procedure-gateway/pkg/coercion"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/database"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/multitenant"
	"github.com/LerianStudio/procedure-gateway/pkg/tenant"

	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

type useCaseMocks struct {
	defaultRepo *database.MockRepository
	tenantRepo  *database.MockRepository
	router      *MockTenantRouter
	redisRepo   *redis.MockRedisRepository
	sessionRepo *redis.MockSessionRepository
	producer    *rabbitmq.MockProducerRepository
}

func newTestUseCase(t *testing.T) (*UseCase, *useCaseMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)

	mocks := &useCaseMocks{
		defaultRepo: database.NewMockRepository(ctrl),
		tenantRepo:  database.NewMockRepository(ctrl),
		router:      NewMockTenantRouter(ctrl),
		redisRepo:   redis.NewMockRedisRepository(ctrl),
		sessionRepo: redis.NewMockSessionRepository(ctrl),
		producer:    rabbitmq.NewMockProducerRepository(ctrl),
	}

	uc := &UseCase{
		DefaultRepo:   mocks.defaultRepo,
		TenantRouter:  mocks.router,
		Coercion:      coercion.NewEngine(constant.DefaultSpecialEntities, coercion.WithClock(func() time.Time { return testNow })),
		SessionRepo:   mocks.sessionRepo,
		AuditProducer: mocks.producer,
		Metrics:       multitenant.NoopMetrics(),
		Settings: Settings{
			DefaultSchema:   constant.DefaultSchema,
			AuthProcedure:   constant.DefaultAuthProcedure,
			PrincipalTable:  constant.DefaultPrincipalTable,
			BulkWriteEntity: constant.DefaultBulkWriteEntity,
			SessionTTL:      time.Hour,
		},
		Now: func() time.Time { return testNow },
	}

	return uc, mocks
}

func tenantContext(repo database.Repository, principal *model.Principal) context.Context {
	ctx := tenant.ContextWithHandle(context.Background(), &tenant.Handle{Fingerprint: "fp-tenant-a", Repository: repo})

	if principal != nil {
		ctx = model.ContextWithPrincipal(ctx, principal)
	}

	return ctx
}

func intPtr(n int) *int {
	return &n
}
