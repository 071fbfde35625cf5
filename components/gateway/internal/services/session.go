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

// ResolveSession loads the session id and returns it with its tenant pool.
// The caller must Release the handle when the request ends.
func (uc *UseCase) ResolveSession(ctx context.Context, id string) (*model.Session, *tenant.Handle, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "service.resolve_session")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	session, err := uc.SessionRepo.Load(ctx, id)
	if err != nil {
		pkg.HandleSpanBusinessErrorEvent(span, "Session not resolved", err)

		return nil, nil, err
	}

	handle, err := uc.TenantRouter.Configure(ctx, session.Credential)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to configure tenant connection", err)

		logger.Errorf("Error configuring tenant %s for session of user %s: %v", session.Credential.Redacted(), session.Principal.Username, err)

		return nil, nil, err
	}

	span.SetAttributes(attribute.String("app.request.tenant_fingerprint", handle.Fingerprint))

	return session, handle, nil
}

// Logout deletes the session. Unknown ids are not an error.
func (uc *UseCase) Logout(ctx context.Context, id string) error {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "service.logout")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	if id == "" {
		return nil
	}

	if err := uc.SessionRepo.Delete(ctx, id); err != nil {
		pkg.HandleSpanError(span, "Failed to delete session", err)

		logger.Errorf("Error deleting session: %v", err)

		return err
	}

	logger.Infof("Session closed")

	return nil
}

// CurrentPrincipal returns the principal of the session resolved for ctx.
func (uc *UseCase) CurrentPrincipal(ctx context.Context) (*model.Principal, error) {
	principal := model.PrincipalFromContext(ctx)
	if principal == nil {
		return nil, pkg.ValidateBusinessError(constant.ErrSessionNotFound, reflect.TypeOf(model.Session{}).Name())
	}

	return principal, nil
}
