// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/tenant"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Invocation outcomes recorded on the tenant invocation counter.
const (
	invocationOutcomeSuccess  = "success"
	invocationOutcomeRejected = "rejected"
	invocationOutcomeFailed   = "failed"
)

// ExecuteProcedure invokes the procedure, function or table named in raw on the
// tenant connection carried by ctx, with the remaining keys as its arguments.
func (uc *UseCase) ExecuteProcedure(ctx context.Context, raw map[string]any) (*model.ExecutionResult, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "service.execute_procedure")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	envelope, err := model.NewRequestEnvelope(raw)
	if err != nil {
		pkg.HandleSpanBusinessErrorEvent(span, "Invalid invocation request", err)

		logger.Warnf("Rejected invocation request: %v", err)

		return nil, err
	}

	return uc.execute(ctx, envelope)
}

// execute runs a normalized request. Values are coerced in descriptor order and
// nothing reaches the database when coercion fails. Every name in required must be
// a declared parameter, otherwise its value would be dropped silently.
func (uc *UseCase) execute(ctx context.Context, envelope *model.RequestEnvelope, required ...string) (*model.ExecutionResult, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	entity := envelope.Descriptor(uc.defaultSchema())

	ctx, span := tracer.Start(ctx, "service.execute_entity")
	defer span.End()

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.entity", entity.QualifiedName()),
		attribute.String("app.request.entity_kind", string(entity.Kind)),
		attribute.Bool("app.request.returns", envelope.Returns),
	)

	handle, ok := tenant.HandleFromContext(ctx)
	if !ok || handle == nil || handle.Repository == nil {
		err := pkg.ValidateBusinessError(constant.ErrSessionNotFound, reflect.TypeOf(model.Session{}).Name())

		pkg.HandleSpanBusinessErrorEvent(span, "No tenant connection in context", err)

		return nil, err
	}

	span.SetAttributes(attribute.String("app.request.tenant_fingerprint", handle.Fingerprint))

	descriptor, err := uc.describeEntity(ctx, handle.Repository, entity)
	if err != nil {
		uc.recordInvocation(ctx, handle.Fingerprint, invocationOutcomeRejected)

		return nil, err
	}

	if len(descriptor.Parameters) == 0 && !uc.isBulkWriteEntity(entity.Name) {
		err := pkg.ValidateBusinessError(constant.ErrEntityWithoutParameters, reflect.TypeOf(model.EntityDescriptor{}).Name())

		pkg.HandleSpanBusinessErrorEvent(span, "Entity has no parameters", err)

		logger.Warnf("Entity has no parameters: %s", entity.QualifiedName())

		uc.recordInvocation(ctx, handle.Fingerprint, invocationOutcomeRejected)

		return nil, err
	}

	for _, name := range required {
		if descriptor.HasParameter(name) {
			continue
		}

		err := pkg.ValidateBusinessError(constant.ErrUnboundParameter, reflect.TypeOf(model.EntityDescriptor{}).Name(), name)

		pkg.HandleSpanBusinessErrorEvent(span, "Required parameter not declared", err)

		logger.Errorf("Entity %s declares no %s parameter", entity.QualifiedName(), name)

		uc.recordInvocation(ctx, handle.Fingerprint, invocationOutcomeRejected)

		return nil, err
	}

	args, err := uc.Coercion.Coerce(descriptor.Parameters, envelope.Values, entity.Name, model.PrincipalFromContext(ctx))
	if err != nil {
		pkg.HandleSpanBusinessErrorEvent(span, "Failed to coerce parameters", err)

		logger.Warnf("Parameter validation failed for %s: %v", entity.QualifiedName(), err)

		uc.recordInvocation(ctx, handle.Fingerprint, invocationOutcomeRejected)

		return nil, err
	}

	rows, err := uc.invoke(ctx, handle, descriptor, args, envelope.Returns)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to invoke entity", err)

		logger.Errorf("Error executing %s %s: %v", entity.Kind, entity.QualifiedName(), err)

		uc.recordInvocation(ctx, handle.Fingerprint, invocationOutcomeFailed)

		if errors.Is(err, pkg.ErrCircuitOpen) {
			return nil, pkg.ValidateBusinessError(constant.ErrTenantUnavailable, reflect.TypeOf(model.EntityDescriptor{}).Name(), err)
		}

		return nil, pkg.ValidateBusinessError(constant.ErrExecution, reflect.TypeOf(model.EntityDescriptor{}).Name(), err)
	}

	result := model.NewExecutionResult(rows)

	span.SetAttributes(
		attribute.Int("app.response.row_count", len(result.Rows)),
		attribute.Int("app.response.status_code", result.StatusCode),
	)

	uc.recordInvocation(ctx, handle.Fingerprint, invocationOutcomeSuccess)

	logger.Infof("Executed %s %s, %d rows, status %d", entity.Kind, entity.QualifiedName(), len(result.Rows), result.StatusCode)

	return result, nil
}

// invoke runs the statement through the tenant breaker when one is configured.
func (uc *UseCase) invoke(ctx context.Context, handle *tenant.Handle, entity model.EntityDescriptor, args []any, returns bool) ([]map[string]any, error) {
	if uc.CircuitBreakers == nil {
		return handle.Repository.Invoke(ctx, entity, args, returns)
	}

	result, err := uc.CircuitBreakers.Execute(handle.Fingerprint, func() (any, error) {
		return handle.Repository.Invoke(ctx, entity, args, returns)
	})
	if err != nil {
		return nil, err
	}

	rows, _ := result.([]map[string]any)

	return rows, nil
}

func (uc *UseCase) isBulkWriteEntity(name string) bool {
	bulk := uc.Settings.BulkWriteEntity
	if bulk == "" {
		bulk = constant.DefaultBulkWriteEntity
	}

	return strings.EqualFold(name, bulk)
}

func (uc *UseCase) recordInvocation(ctx context.Context, fingerprint, outcome string) {
	if uc.Metrics == nil || uc.Metrics.TenantInvocationsTotal == nil {
		return
	}

	uc.Metrics.TenantInvocationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant_fingerprint", fingerprint),
		attribute.String("outcome", outcome),
	))
}
