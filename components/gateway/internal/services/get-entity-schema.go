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
	"github.com/LerianStudio/procedure-gateway/pkg/tenant"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"go.opentelemetry.io/otel/attribute"
)

// GetEntitySchema returns the ordered parameters or columns of the entity named in raw.
func (uc *UseCase) GetEntitySchema(ctx context.Context, raw map[string]any) (*model.EntityDescriptor, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "service.get_entity_schema")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	envelope, err := model.NewRequestEnvelope(raw)
	if err != nil {
		pkg.HandleSpanBusinessErrorEvent(span, "Invalid schema request", err)

		return nil, err
	}

	handle, ok := tenant.HandleFromContext(ctx)
	if !ok || handle == nil || handle.Repository == nil {
		return nil, pkg.ValidateBusinessError(constant.ErrSessionNotFound, reflect.TypeOf(model.Session{}).Name())
	}

	entity := envelope.Descriptor(uc.defaultSchema())

	logger.Infof("Retrieving schema of %s %s", entity.Kind, entity.QualifiedName())

	descriptor, err := uc.describeEntity(ctx, handle.Repository, entity)
	if err != nil {
		return nil, err
	}

	if descriptor.Parameters == nil {
		descriptor.Parameters = []model.ParameterDescriptor{}
	}

	return &descriptor, nil
}
