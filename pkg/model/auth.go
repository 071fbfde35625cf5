// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import "time"

// LoginInput is the payload of a login request.
type LoginInput struct {
	Usuario     string `json:"usuario" validate:"required,max=128"`
	Contrasena  string `json:"contrasena" validate:"required,max=256"`
	Dispositivo string `json:"dispositivo,omitempty" validate:"omitempty,max=512"`
	Origen      string `json:"origen,omitempty" validate:"omitempty,max=32"`
}

// AuthResponse is the body of every authentication response.
type AuthResponse struct {
	Error bool `json:"error"`
	Data  any  `json:"data"`
}

// AuthFailureData describes a failed login to the caller.
type AuthFailureData struct {
	Mensaje      string `json:"mensaje"`
	Campo        string `json:"campo,omitempty"`
	CodigoEstado int    `json:"codigo_estado"`
}

// AuthStage names a step of the login state machine.
type AuthStage string

const (
	AuthStageCredentialLookup        AuthStage = "credential_lookup"
	AuthStageConnectionConfiguration AuthStage = "connection_configuration"
	AuthStagePrincipalResolution     AuthStage = "principal_resolution"
	AuthStageEstablished             AuthStage = "established"
)

// Authentication event outcomes.
const (
	AuthOutcomeEntered = "entered"
	AuthOutcomeFailed  = "failed"
	AuthOutcomeSuccess = "success"
)

// AuthenticationEvent is the audit record of one login state transition.
type AuthenticationEvent struct {
	EventID           string    `json:"event_id"`
	RequestID         string    `json:"request_id,omitempty"`
	Stage             AuthStage `json:"stage"`
	Outcome           string    `json:"outcome"`
	Username          string    `json:"username"`
	Origin            string    `json:"origin,omitempty"`
	TenantFingerprint string    `json:"tenant_fingerprint,omitempty"`
	StatusCode        int       `json:"status_code,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}
