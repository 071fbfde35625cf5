// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package in

import (
	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/services"
	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/net/http"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
)

// ProcedureHandler struct contains the use case for generic entity invocation.
type ProcedureHandler struct {
	Service *services.UseCase
}

// ExecuteProcedure invokes a procedure, function or table of the session's tenant.
func (h *ProcedureHandler) ExecuteProcedure(raw map[string]any, c *fiber.Ctx) error {
	ctx := c.UserContext()

	_, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "handler.execute_procedure")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	result, err := h.Service.ExecuteProcedure(ctx, raw)
	if err != nil {
		pkg.HandleSpanBusinessErrorEvent(span, "Failed to execute entity", err)

		return http.WithError(c, err)
	}

	return http.Respond(c, result.Envelope())
}

// GetSchema describes the parameters or columns of an entity.
func (h *ProcedureHandler) GetSchema(raw map[string]any, c *fiber.Ctx) error {
	ctx := c.UserContext()

	_, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "handler.get_schema")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	descriptor, err := h.Service.GetEntitySchema(ctx, raw)
	if err != nil {
		pkg.HandleSpanBusinessErrorEvent(span, "Failed to describe entity", err)

		return http.WithError(c, err)
	}

	return http.OK(c, descriptor)
}

// RegisterRecords writes records through the bulk write entity.
func (h *ProcedureHandler) RegisterRecords(p any, c *fiber.Ctx) error {
	ctx := c.UserContext()

	_, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "handler.register_records")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	result, err := h.Service.RegisterRecords(ctx, p.(*model.RegisterRecordsInput))
	if err != nil {
		pkg.HandleSpanBusinessErrorEvent(span, "Failed to register records", err)

		return http.WithError(c, err)
	}

	return http.Respond(c, result.Envelope())
}
