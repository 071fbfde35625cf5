// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"reflect"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"go.opentelemetry.io/otel/attribute"
)

// bulkWriteArgument is the parameter name the bulk write entity reads its payload from.
const bulkWriteArgument = "json"

// RegisterRecords writes the records of input through the bulk write entity.
func (uc *UseCase) RegisterRecords(ctx context.Context, input *model.RegisterRecordsInput) (*model.ExecutionResult, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "service.register_records")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	if input == nil {
		return nil, pkg.ValidateBusinessError(constant.ErrInvalidRequestBody, reflect.TypeOf(model.RegisterRecordsInput{}).Name())
	}

	span.SetAttributes(attribute.String("app.request.table", input.Tabla))

	payload, err := input.Payload()
	if err != nil {
		pkg.HandleSpanError(span, "Failed to encode records", err)

		return nil, pkg.ValidateInternalError(err, reflect.TypeOf(model.RegisterRecordsInput{}).Name())
	}

	bulk := uc.Settings.BulkWriteEntity
	if bulk == "" {
		bulk = constant.DefaultBulkWriteEntity
	}

	logger.Infof("Registering records on table %s", input.Tabla)

	return uc.execute(ctx, &model.RequestEnvelope{
		Schema:  uc.defaultSchema(),
		Kind:    model.EntityKindProcedure,
		Name:    bulk,
		Returns: true,
		Values:  map[string]any{bulkWriteArgument: payload},
	}, bulkWriteArgument)
}
