// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	"github.com/LerianStudio/lib-commons/v3/commons/log"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func ordersDescriptor() model.EntityDescriptor {
	return model.EntityDescriptor{
		Schema: "dbo",
		Name:   "p_get_orders",
		Kind:   model.EntityKindProcedure,
		Parameters: []model.ParameterDescriptor{
			{Position: 1, Name: "id_usuario", Type: model.SQLTypeInt, DataType: "int"},
			{Position: 2, Name: "cliente", Type: model.SQLTypeOther, DataType: "varchar", MaxLength: intPtr(10)},
			{Position: 3, Name: "fecha_desde", Type: model.SQLTypeOther, DataType: "varchar"},
		},
	}
}

func TestExecuteProcedure(t *testing.T) {
	t.Parallel()

	principal := &model.Principal{ID: 42, Username: "jperez"}

	tests := []struct {
		name       string
		raw        map[string]any
		noHandle   bool
		mockSetup  func(m *useCaseMocks)
		wantStatus int
		wantRows   int
		assertErr  func(t *testing.T, err error)
	}{
		{
			name: "Success - injects principal id and applies text rules",
			raw:  map[string]any{"procedure": "p_get_orders", "cliente": "acme", "fechaDesde": "2024-01-15"},
			mockSetup: func(m *useCaseMocks) {
				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
					Return(ordersDescriptor(), nil)
				m.tenantRepo.EXPECT().
					Invoke(gomock.Any(), gomock.Any(), []any{int64(42), "ACME", "20240115"}, true).
					Return([]map[string]any{{"codigo_estado": int64(201), "id": int64(1)}}, nil)
			},
			wantStatus: http.StatusCreated,
			wantRows:   1,
		},
		{
			name: "Success - empty result is 200",
			raw:  map[string]any{"data": map[string]any{"esquema": "ventas", "procedimiento": "p_get_orders", "cliente": "x"}},
			mockSetup: func(m *useCaseMocks) {
				descriptor := ordersDescriptor()
				descriptor.Schema = "ventas"

				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "ventas", "p_get_orders", model.EntityKindProcedure).
					Return(descriptor, nil)
				m.tenantRepo.EXPECT().
					Invoke(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(nil, nil)
			},
			wantStatus: http.StatusOK,
			wantRows:   0,
		},
		{
			name: "Success - returns false executes without rows",
			raw:  map[string]any{"procedure": "p_get_orders", "returns": "false"},
			mockSetup: func(m *useCaseMocks) {
				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
					Return(ordersDescriptor(), nil)
				m.tenantRepo.EXPECT().
					Invoke(gomock.Any(), gomock.Any(), []any{int64(42), "", ""}, false).
					Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Error - entity has no parameters",
			raw:  map[string]any{"procedure": "p_empty"},
			mockSetup: func(m *useCaseMocks) {
				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "dbo", "p_empty", model.EntityKindProcedure).
					Return(model.EntityDescriptor{Schema: "dbo", Name: "p_empty", Kind: model.EntityKindProcedure}, nil)
			},
			assertErr: func(t *testing.T, err error) {
				var unprocessable pkg.UnprocessableOperationError
				require.ErrorAs(t, err, &unprocessable)
				assert.Equal(t, constant.ErrEntityWithoutParameters.Error(), unprocessable.Code)
				assert.Equal(t, "Entity has no parameters", unprocessable.Message)
			},
		},
		{
			name: "Success - bulk write entity runs without parameters",
			raw:  map[string]any{"procedure": "p_register_records"},
			mockSetup: func(m *useCaseMocks) {
				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "dbo", "p_register_records", model.EntityKindProcedure).
					Return(model.EntityDescriptor{Schema: "dbo", Name: "p_register_records", Kind: model.EntityKindProcedure}, nil)
				m.tenantRepo.EXPECT().
					Invoke(gomock.Any(), gomock.Any(), []any{}, true).
					Return([]map[string]any{{"ok": true}}, nil)
			},
			wantStatus: http.StatusOK,
			wantRows:   1,
		},
		{
			name: "Error - length exceeded executes nothing",
			raw:  map[string]any{"procedure": "p_get_orders", "cliente": "a customer name far too long"},
			mockSetup: func(m *useCaseMocks) {
				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
					Return(ordersDescriptor(), nil)
			},
			assertErr: func(t *testing.T, err error) {
				var validation pkg.ValidationError
				require.ErrorAs(t, err, &validation)
				assert.Equal(t, "cliente", validation.Field)
				assert.Contains(t, validation.Message, "[10]")
			},
		},
		{
			name: "Error - catalog failure is a metadata error",
			raw:  map[string]any{"function": "f_total"},
			mockSetup: func(m *useCaseMocks) {
				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "dbo", "f_total", model.EntityKindFunction).
					Return(model.EntityDescriptor{}, errors.New("login timeout"))
			},
			assertErr: func(t *testing.T, err error) {
				var metadata pkg.MetadataError
				require.ErrorAs(t, err, &metadata)
				assert.NotContains(t, metadata.Message, "login timeout")
			},
		},
		{
			name: "Error - invalid identifier",
			raw:  map[string]any{"table": "clientes;drop"},
			mockSetup: func(m *useCaseMocks) {
				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "dbo", "clientes;drop", model.EntityKindTable).
					Return(model.EntityDescriptor{}, constant.ErrInvalidIdentifier)
			},
			assertErr: func(t *testing.T, err error) {
				var fields pkg.ValidationKnownFieldsError
				require.ErrorAs(t, err, &fields)
				assert.Equal(t, constant.ErrInvalidIdentifier.Error(), fields.Code)
			},
		},
		{
			name: "Error - execution failure hides the driver message",
			raw:  map[string]any{"procedure": "p_get_orders"},
			mockSetup: func(m *useCaseMocks) {
				m.tenantRepo.EXPECT().
					DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
					Return(ordersDescriptor(), nil)
				m.tenantRepo.EXPECT().
					Invoke(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(nil, errors.New("mssql: Invalid object name 'x'"))
			},
			assertErr: func(t *testing.T, err error) {
				var execution pkg.ExecutionError
				require.ErrorAs(t, err, &execution)
				assert.NotContains(t, execution.Message, "Invalid object name")
				assert.ErrorContains(t, execution.Err, "Invalid object name")
			},
		},
		{
			name:     "Error - no tenant connection",
			raw:      map[string]any{"procedure": "p_get_orders"},
			noHandle: true,
			assertErr: func(t *testing.T, err error) {
				var unauthorized pkg.UnauthorizedError
				require.ErrorAs(t, err, &unauthorized)
				assert.Equal(t, constant.ErrSessionNotFound.Error(), unauthorized.Code)
			},
		},
		{
			name: "Error - missing entity name",
			raw:  map[string]any{"schema": "dbo"},
			assertErr: func(t *testing.T, err error) {
				var fields pkg.ValidationKnownFieldsError
				require.ErrorAs(t, err, &fields)
				assert.Equal(t, constant.ErrMissingEntityName.Error(), fields.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc, mocks := newTestUseCase(t)

			if tt.mockSetup != nil {
				tt.mockSetup(mocks)
			}

			ctx := tenantContext(mocks.tenantRepo, principal)
			if tt.noHandle {
				ctx = model.ContextWithPrincipal(context.Background(), principal)
			}

			result, err := uc.ExecuteProcedure(ctx, tt.raw)

			if tt.assertErr != nil {
				require.Error(t, err)
				assert.Nil(t, result)
				tt.assertErr(t, err)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantStatus, result.StatusCode)
			assert.Len(t, result.Rows, tt.wantRows)
		})
	}
}

func TestExecuteProcedure_WithoutPrincipalUsesDefaultID(t *testing.T) {
	t.Parallel()

	uc, mocks := newTestUseCase(t)

	mocks.tenantRepo.EXPECT().
		DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
		Return(ordersDescriptor(), nil)
	mocks.tenantRepo.EXPECT().
		Invoke(gomock.Any(), gomock.Any(), []any{int64(constant.DefaultPrincipalID), "", ""}, true).
		Return(nil, nil)

	_, err := uc.ExecuteProcedure(tenantContext(mocks.tenantRepo, nil), map[string]any{"procedure": "p_get_orders"})
	require.NoError(t, err)
}

func TestExecuteProcedure_DescriptorCache(t *testing.T) {
	t.Parallel()

	cachedKey := "entity_descriptor:procedure:dbo.p_get_orders"

	t.Run("hit skips the catalog", func(t *testing.T) {
		t.Parallel()

		uc, mocks := newTestUseCase(t)
		uc.RedisRepo = mocks.redisRepo
		uc.Settings.DescriptorCacheTTL = time.Minute

		payload, err := json.Marshal(ordersDescriptor())
		require.NoError(t, err)

		mocks.redisRepo.EXPECT().Get(gomock.Any(), cachedKey).Return(string(payload), nil)
		mocks.tenantRepo.EXPECT().DescribeEntity(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		mocks.tenantRepo.EXPECT().
			Invoke(gomock.Any(), gomock.Any(), []any{int64(42), "", ""}, true).
			Return(nil, nil)

		_, err = uc.ExecuteProcedure(tenantContext(mocks.tenantRepo, &model.Principal{ID: 42}), map[string]any{"procedure": "p_get_orders"})
		require.NoError(t, err)
	})

	t.Run("miss fills the cache", func(t *testing.T) {
		t.Parallel()

		uc, mocks := newTestUseCase(t)
		uc.RedisRepo = mocks.redisRepo
		uc.Settings.DescriptorCacheTTL = time.Minute

		mocks.redisRepo.EXPECT().Get(gomock.Any(), cachedKey).Return("", goredis.Nil)
		mocks.tenantRepo.EXPECT().
			DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
			Return(ordersDescriptor(), nil)
		mocks.redisRepo.EXPECT().Set(gomock.Any(), cachedKey, gomock.Any(), time.Minute).Return(nil)
		mocks.tenantRepo.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(nil, nil)

		_, err := uc.ExecuteProcedure(tenantContext(mocks.tenantRepo, nil), map[string]any{"procedure": "p_get_orders"})
		require.NoError(t, err)
	})

	t.Run("cache failure falls through to the catalog", func(t *testing.T) {
		t.Parallel()

		uc, mocks := newTestUseCase(t)
		uc.RedisRepo = mocks.redisRepo
		uc.Settings.DescriptorCacheTTL = time.Minute

		mocks.redisRepo.EXPECT().Get(gomock.Any(), cachedKey).Return("", errors.New("connection refused"))
		mocks.tenantRepo.EXPECT().
			DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
			Return(ordersDescriptor(), nil)
		mocks.redisRepo.EXPECT().Set(gomock.Any(), cachedKey, gomock.Any(), time.Minute).Return(errors.New("connection refused"))
		mocks.tenantRepo.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(nil, nil)

		_, err := uc.ExecuteProcedure(tenantContext(mocks.tenantRepo, nil), map[string]any{"procedure": "p_get_orders"})
		require.NoError(t, err)
	})

	t.Run("disabled cache never touches redis", func(t *testing.T) {
		t.Parallel()

		uc, mocks := newTestUseCase(t)
		uc.RedisRepo = mocks.redisRepo

		mocks.tenantRepo.EXPECT().
			DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
			Return(ordersDescriptor(), nil)
		mocks.tenantRepo.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(nil, nil)

		_, err := uc.ExecuteProcedure(tenantContext(mocks.tenantRepo, nil), map[string]any{"procedure": "p_get_orders"})
		require.NoError(t, err)
	})
}

func TestExecuteProcedure_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	uc, mocks := newTestUseCase(t)
	uc.CircuitBreakers = pkg.NewCircuitBreakerManager(&log.NoneLogger{})

	mocks.tenantRepo.EXPECT().
		DescribeEntity(gomock.Any(), "dbo", "p_get_orders", model.EntityKindProcedure).
		Return(ordersDescriptor(), nil).
		AnyTimes()
	mocks.tenantRepo.EXPECT().
		Invoke(gomock.Any(), gomock.Any(), gomock.Any(), true).
		Return(nil, errors.New("connection reset")).
		AnyTimes()

	ctx := tenantContext(mocks.tenantRepo, nil)

	var lastErr error

	for i := 0; i < 20; i++ {
		_, lastErr = uc.ExecuteProcedure(ctx, map[string]any{"procedure": "p_get_orders"})

		var connErr pkg.ConnectionError
		if errors.As(lastErr, &connErr) {
			break
		}
	}

	var connErr pkg.ConnectionError
	require.ErrorAs(t, lastErr, &connErr)
	assert.Equal(t, constant.ErrTenantUnavailable.Error(), connErr.Code)
	assert.False(t, uc.CircuitBreakers.IsHealthy("fp-tenant-a"))
}
