// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/tenant"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// loginAttempt carries the state shared by the authentication stages.
type loginAttempt struct {
	input       model.LoginInput
	credential  model.TenantCredential
	handle      *tenant.Handle
	principal   *model.Principal
	fingerprint string
}

// AuthenticateUser runs the login state machine:
// credential lookup, connection configuration, principal resolution, established.
// Each stage either advances or returns an AuthenticationFailure naming itself.
// userAgent is the device identifier when the input carries none.
func (uc *UseCase) AuthenticateUser(ctx context.Context, input *model.LoginInput, userAgent string) (*model.Session, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "service.authenticate_user")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	if input == nil {
		return nil, pkg.ValidateBusinessError(constant.ErrInvalidLoginPayload, reflect.TypeOf(model.LoginInput{}).Name())
	}

	attempt := &loginAttempt{input: *input}
	defer func() { attempt.handle.Release() }()
	attempt.input.Usuario = strings.TrimSpace(attempt.input.Usuario)

	if attempt.input.Dispositivo == "" {
		attempt.input.Dispositivo = userAgent
	}

	if attempt.input.Origen == "" {
		attempt.input.Origen = uc.defaultOrigin()
	}

	span.SetAttributes(attribute.String("app.request.username", attempt.input.Usuario))

	stages := []struct {
		stage model.AuthStage
		run   func(context.Context, *loginAttempt) error
	}{
		{model.AuthStageCredentialLookup, uc.lookupCredential},
		{model.AuthStageConnectionConfiguration, uc.configureConnection},
		{model.AuthStagePrincipalResolution, uc.resolvePrincipal},
	}

	for _, s := range stages {
		uc.auditTransition(ctx, attempt, s.stage, model.AuthOutcomeEntered, 0)

		if err := s.run(ctx, attempt); err != nil {
			status := failureStatus(err)

			uc.auditTransition(ctx, attempt, s.stage, model.AuthOutcomeFailed, status)

			if status >= http.StatusInternalServerError {
				pkg.HandleSpanError(span, "Authentication failed", err)
			} else {
				pkg.HandleSpanBusinessErrorEvent(span, "Authentication rejected", err)
			}

			return nil, err
		}
	}

	session := &model.Session{
		ID:         uuid.NewString(),
		Credential: attempt.credential,
		Principal:  attempt.principal,
		CreatedAt:  uc.now().UTC(),
	}

	if err := uc.SessionRepo.Save(ctx, session, uc.sessionTTL()); err != nil {
		pkg.HandleSpanError(span, "Failed to store session", err)

		logger.Errorf("Failed to store session for user %s: %v", attempt.input.Usuario, err)

		uc.auditTransition(ctx, attempt, model.AuthStageEstablished, model.AuthOutcomeFailed, http.StatusInternalServerError)

		return nil, err
	}

	uc.auditTransition(ctx, attempt, model.AuthStageEstablished, model.AuthOutcomeSuccess, http.StatusOK)

	return session, nil
}

// lookupCredential calls the authentication procedure on the default connection.
func (uc *UseCase) lookupCredential(ctx context.Context, attempt *loginAttempt) error {
	logger, _, _, _ := libCommons.NewTrackingFromContext(ctx)

	entity := model.EntityDescriptor{
		Schema: uc.authSchema(),
		Name:   uc.authProcedure(),
		Kind:   model.EntityKindProcedure,
	}

	args := []any{attempt.input.Usuario, attempt.input.Contrasena, attempt.input.Dispositivo, attempt.input.Origen}

	rows, err := uc.DefaultRepo.Invoke(ctx, entity, args, true)
	if err != nil {
		logger.Errorf("Error getting credentials for user %s: %v", attempt.input.Usuario, err)

		failure := credentialFailure(nil, err)
		failure.StatusCode = http.StatusInternalServerError
		failure.Message = "the credentials could not be verified, please try again later"
		failure.Field = ""

		return failure
	}

	if len(rows) == 0 || hasErrorMarker(rows[0]) {
		logger.Warnf("No tenant credential for user %s", attempt.input.Usuario)

		var row map[string]any
		if len(rows) > 0 {
			row = rows[0]
		}

		return credentialFailure(row, nil)
	}

	attempt.credential = model.CredentialFromRow(rows[0])
	attempt.fingerprint = attempt.credential.Fingerprint()

	return nil
}

// configureConnection obtains the tenant pool for the looked-up credential.
func (uc *UseCase) configureConnection(ctx context.Context, attempt *loginAttempt) error {
	logger, _, _, _ := libCommons.NewTrackingFromContext(ctx)

	handle, err := uc.TenantRouter.Configure(ctx, attempt.credential)
	if err != nil {
		logger.Errorf("Error configuring connection %s for user %s: %v", attempt.credential.Redacted(), attempt.input.Usuario, err)

		code := constant.ErrTenantConnection.Error()

		var connErr pkg.ConnectionError
		if errors.As(err, &connErr) && connErr.Code != "" {
			code = connErr.Code
		}

		return pkg.AuthenticationFailure{
			Stage:      string(model.AuthStageConnectionConfiguration),
			StatusCode: http.StatusInternalServerError,
			Code:       code,
			Title:      "Authentication Failed",
			Message:    "error configuring the database connection",
			Err:        err,
		}
	}

	attempt.handle = handle
	attempt.fingerprint = handle.Fingerprint

	return nil
}

// resolvePrincipal finds the user record on the tenant connection.
func (uc *UseCase) resolvePrincipal(ctx context.Context, attempt *loginAttempt) error {
	logger, _, _, _ := libCommons.NewTrackingFromContext(ctx)

	row, err := attempt.handle.Repository.FindPrincipal(ctx, uc.principalTable(), attempt.input.Usuario, attempt.input.Contrasena)
	if err != nil {
		logger.Errorf("Error resolving user %s on tenant %s: %v", attempt.input.Usuario, attempt.fingerprint, err)

		return pkg.ValidateBusinessError(constant.ErrPrincipalLookup, reflect.TypeOf(model.Principal{}).Name(), err)
	}

	if row == nil {
		logger.Warnf("User %s does not exist on tenant %s", attempt.input.Usuario, attempt.fingerprint)

		return pkg.ValidateBusinessError(constant.ErrPrincipalNotFound, reflect.TypeOf(model.Principal{}).Name())
	}

	attempt.principal = model.PrincipalFromRow(row)

	return nil
}

// auditTransition logs a state transition and publishes it when auditing is enabled.
// Publish failures never affect the login.
func (uc *UseCase) auditTransition(ctx context.Context, attempt *loginAttempt, stage model.AuthStage, outcome string, status int) {
	logger, _, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	logger.Infof("Authentication %s %s for user %s (tenant %s, status %d)", stage, outcome, attempt.input.Usuario, attempt.fingerprint, status)

	if uc.AuditProducer == nil {
		return
	}

	event := model.AuthenticationEvent{
		EventID:           uuid.NewString(),
		RequestID:         reqId,
		Stage:             stage,
		Outcome:           outcome,
		Username:          attempt.input.Usuario,
		Origin:            attempt.input.Origen,
		TenantFingerprint: attempt.fingerprint,
		StatusCode:        status,
		OccurredAt:        uc.now().UTC(),
	}

	if err := uc.AuditProducer.PublishAuthenticationEvent(ctx, event); err != nil {
		logger.Warnf("Failed to publish authentication event %s.%s: %v", stage, outcome, err)
	}
}

// credentialFailure builds the credential lookup failure, preferring the
// message, field and status reported by the authentication procedure row.
func credentialFailure(row map[string]any, cause error) pkg.AuthenticationFailure {
	var failure pkg.AuthenticationFailure

	_ = errors.As(pkg.ValidateBusinessError(constant.ErrCredentialLookup, reflect.TypeOf(model.TenantCredential{}).Name(), cause), &failure)

	lowered := make(map[string]any, len(row))
	for k, v := range row {
		lowered[strings.ToLower(k)] = v
	}

	if msg, ok := lowered["mensaje"].(string); ok && strings.TrimSpace(msg) != "" {
		failure.Message = msg
	}

	if field, ok := lowered["campo"].(string); ok && strings.TrimSpace(field) != "" {
		failure.Field = field
	}

	if status, ok := model.AsInt64(lowered[constant.StatusCodeField]); ok && status >= 400 && status <= 599 {
		failure.StatusCode = int(status)
	}

	return failure
}

func hasErrorMarker(row map[string]any) bool {
	for k := range row {
		if strings.EqualFold(k, constant.ErrorMarkerField) {
			return true
		}
	}

	return false
}

// failureStatus is the status reported to the caller for a failed stage.
func failureStatus(err error) int {
	var failure pkg.AuthenticationFailure
	if errors.As(err, &failure) && failure.StatusCode != 0 {
		return failure.StatusCode
	}

	return http.StatusInternalServerError
}

func (uc *UseCase) authProcedure() string {
	if uc.Settings.AuthProcedure != "" {
		return uc.Settings.AuthProcedure
	}

	return constant.DefaultAuthProcedure
}

func (uc *UseCase) authSchema() string {
	if uc.Settings.AuthSchema != "" {
		return uc.Settings.AuthSchema
	}

	return constant.DefaultSchema
}

func (uc *UseCase) principalTable() string {
	if uc.Settings.PrincipalTable != "" {
		return uc.Settings.PrincipalTable
	}

	return constant.DefaultPrincipalTable
}

func (uc *UseCase) defaultOrigin() string {
	if uc.Settings.DefaultOrigin != "" {
		return uc.Settings.DefaultOrigin
	}

	return constant.DefaultOrigin
}

func (uc *UseCase) sessionTTL() time.Duration {
	if uc.Settings.SessionTTL > 0 {
		return uc.Settings.SessionTTL
	}

	return constant.DefaultSessionTTL
}
