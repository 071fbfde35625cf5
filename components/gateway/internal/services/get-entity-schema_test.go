// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"testing"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGetEntitySchema(t *testing.T) {
	t.Parallel()

	t.Run("Success - table columns", func(t *testing.T) {
		t.Parallel()

		uc, mocks := newTestUseCase(t)

		nullable := true
		columns := model.EntityDescriptor{
			Schema: "dbo",
			Name:   "clientes",
			Kind:   model.EntityKindTable,
			Parameters: []model.ParameterDescriptor{
				{Position: 1, Name: "id_cliente", Type: model.SQLTypeInt, DataType: "int"},
				{Position: 2, Name: "nombre", Type: model.SQLTypeOther, DataType: "varchar", MaxLength: intPtr(80), Nullable: &nullable},
			},
		}

		mocks.tenantRepo.EXPECT().
			DescribeEntity(gomock.Any(), "dbo", "clientes", model.EntityKindTable).
			Return(columns, nil)

		got, err := uc.GetEntitySchema(tenantContext(mocks.tenantRepo, nil), map[string]any{"table": "clientes"})
		require.NoError(t, err)
		assert.Equal(t, columns, *got)
	})

	t.Run("Success - entity without parameters is an empty list", func(t *testing.T) {
		t.Parallel()

		uc, mocks := newTestUseCase(t)

		mocks.tenantRepo.EXPECT().
			DescribeEntity(gomock.Any(), "dbo", "p_empty", model.EntityKindProcedure).
			Return(model.EntityDescriptor{Schema: "dbo", Name: "p_empty", Kind: model.EntityKindProcedure}, nil)

		got, err := uc.GetEntitySchema(tenantContext(mocks.tenantRepo, nil), map[string]any{"procedure": "p_empty"})
		require.NoError(t, err)
		assert.NotNil(t, got.Parameters)
		assert.Empty(t, got.Parameters)
	})

	t.Run("Error - no session", func(t *testing.T) {
		t.Parallel()

		uc, _ := newTestUseCase(t)

		_, err := uc.GetEntitySchema(context.Background(), map[string]any{"procedure": "p_empty"})

		var unauthorized pkg.UnauthorizedError
		require.ErrorAs(t, err, &unauthorized)
	})
}
