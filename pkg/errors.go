// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
)

// EntityNotFoundError records an error indicating an entity was not found in any case that caused it.
type EntityNotFoundError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

// Error implements the error interface.
func (e EntityNotFoundError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		if strings.TrimSpace(e.EntityType) != "" {
			return fmt.Sprintf("Entity %s not found", e.EntityType)
		}

		if e.Err != nil {
			return e.Err.Error()
		}

		return "entity not found"
	}

	return e.Message
}

// Unwrap implements the error interface introduced in Go 1.13 to unwrap the internal error.
func (e EntityNotFoundError) Unwrap() error {
	return e.Err
}

// ValidationError records a request value that failed validation against the entity metadata.
// Field carries the offending parameter when one is known.
type ValidationError struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string
	Message    string
	Code       string
	Field      string `json:"field,omitempty"`
	Err        error  `json:"err,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("%s - %s", e.Code, e.Message)
	}

	return e.Message
}

// Unwrap implements the error interface introduced in Go 1.13 to unwrap the internal error.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// UnauthorizedError indicates an operation that couldn't be performed because there's no session.
type UnauthorizedError struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (e UnauthorizedError) Error() string {
	return e.Message
}

// UnprocessableOperationError indicates an operation that couldn't be performed because it's invalid.
type UnprocessableOperationError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e UnprocessableOperationError) Error() string {
	return e.Message
}

// InternalServerError indicates an unexpected failure.
type InternalServerError struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (e InternalServerError) Error() string {
	return e.Message
}

func (e InternalServerError) Unwrap() error {
	return e.Err
}

// MetadataError indicates the catalog query for an entity's parameters or columns failed.
type MetadataError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e MetadataError) Error() string {
	return e.Message
}

func (e MetadataError) Unwrap() error {
	return e.Err
}

// ConnectionError indicates a tenant credential was malformed or its connection could not be established.
// Err may carry driver text and is only written to server-side logs.
type ConnectionError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e ConnectionError) Error() string {
	return e.Message
}

func (e ConnectionError) Unwrap() error {
	return e.Err
}

// ExecutionError indicates the SQL invocation of an entity failed.
// Err keeps the original diagnostic for logging; Message is the only caller-visible text.
type ExecutionError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e ExecutionError) Error() string {
	return e.Message
}

func (e ExecutionError) Unwrap() error {
	return e.Err
}

// AuthenticationFailure is the terminal failure of a login attempt.
// Stage names the step that failed and StatusCode is echoed as codigo_estado.
type AuthenticationFailure struct {
	Stage      string
	StatusCode int
	Title      string
	Message    string
	Field      string
	Code       string
	Err        error
}

func (e AuthenticationFailure) Error() string {
	return fmt.Sprintf("authentication failed at %s: %s", e.Stage, e.Message)
}

func (e AuthenticationFailure) Unwrap() error {
	return e.Err
}

// ResponseError is a struct used to return errors to the client.
type ResponseError struct {
	Code    int    `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error returns the message of the ResponseError.
func (r ResponseError) Error() string {
	return r.Message
}

// ValidationKnownFieldsError records an error that occurred during a validation of known fields.
type ValidationKnownFieldsError struct {
	EntityType string           `json:"entityType,omitempty"`
	Title      string           `json:"title,omitempty"`
	Code       string           `json:"code,omitempty"`
	Message    string           `json:"message,omitempty"`
	Fields     FieldValidations `json:"fields,omitempty"`
}

// Error returns the error message for a ValidationKnownFieldsError.
func (r ValidationKnownFieldsError) Error() string {
	return r.Message
}

// FieldValidations is a map of known fields and their validation errors.
type FieldValidations map[string]string

// ValidateInternalError validates the error and returns an appropriate InternalServerError.
//
// Parameters:
// - err: The error to be validated.
// - entityType: The type of the entity associated with the error.
//
// Returns:
// - An InternalServerError with the appropriate code, title, message.
func ValidateInternalError(err error, entityType string) error {
	return InternalServerError{
		EntityType: entityType,
		Code:       constant.ErrInternalServer.Error(),
		Title:      "Internal Server Error",
		Message:    "The server encountered an unexpected error. Please try again later or contact support.",
		Err:        err,
	}
}

// ValidateBadRequestFieldsError returns the appropriate bad request error for missing or invalid fields.
func ValidateBadRequestFieldsError(requiredFields, knownInvalidFields map[string]string, entityType string) error {
	if len(knownInvalidFields) == 0 && len(requiredFields) == 0 {
		return errors.New("expected knownInvalidFields and requiredFields to be non-empty")
	}

	if len(requiredFields) > 0 {
		return ValidationKnownFieldsError{
			EntityType: entityType,
			Code:       constant.ErrMissingRequiredFields.Error(),
			Title:      "Missing Fields in Request",
			Message:    "Your request is missing one or more required fields. The missing fields are listed in the fields object.",
			Fields:     requiredFields,
		}
	}

	return ValidationKnownFieldsError{
		EntityType: entityType,
		Code:       constant.ErrInvalidRequestBody.Error(),
		Title:      "Bad Request",
		Message:    "The server could not understand the request due to malformed syntax. Please check the listed fields and try again.",
		Fields:     knownInvalidFields,
	}
}

// ValidateBusinessError validates the error and returns the appropriate business error code, title, and message.
// The cause, when present as the last argument of type error, is kept in Err for server-side logs.
func ValidateBusinessError(err error, entityType string, args ...any) error {
	args, cause := splitCause(args)

	errorMap := map[error]error{
		constant.ErrInvalidRequestBody: ValidationKnownFieldsError{
			EntityType: entityType,
			Code:       constant.ErrInvalidRequestBody.Error(),
			Title:      "Invalid Request Body",
			Message:    "The request body is not a valid JSON object. Please check the payload and try again.",
			Fields:     FieldValidations{"body": "must be a JSON object"},
		},
		constant.ErrMissingEntityName: ValidationKnownFieldsError{
			EntityType: entityType,
			Code:       constant.ErrMissingEntityName.Error(),
			Title:      "Missing Entity Name",
			Message:    "No procedure, function or table name provided. Please set exactly one of them and try again.",
			Fields:     FieldValidations{"procedure": "required"},
		},
		constant.ErrAmbiguousEntityKind: ValidationKnownFieldsError{
			EntityType: entityType,
			Code:       constant.ErrAmbiguousEntityKind.Error(),
			Title:      "Ambiguous Entity",
			Message:    fmt.Sprintf("Only one of procedure, function or table may be set. Received: %v.", args...),
			Fields:     FieldValidations{"procedure": "exactly one of procedure, function, table"},
		},
		constant.ErrInvalidIdentifier: ValidationKnownFieldsError{
			EntityType: entityType,
			Code:       constant.ErrInvalidIdentifier.Error(),
			Title:      "Invalid Identifier",
			Message:    fmt.Sprintf("The identifier '%v' is not a valid schema or entity name.", args...),
			Fields:     FieldValidations{fmt.Sprint(args...): "invalid identifier"},
		},
		constant.ErrInvalidLoginPayload: ValidationKnownFieldsError{
			EntityType: entityType,
			Code:       constant.ErrInvalidLoginPayload.Error(),
			Title:      "Invalid Login Payload",
			Message:    "The login payload must be a JSON object with usuario and contrasena.",
			Fields:     FieldValidations{"usuario": "required", "contrasena": "required"},
		},
		constant.ErrEntityWithoutParameters: UnprocessableOperationError{
			EntityType: entityType,
			Code:       constant.ErrEntityWithoutParameters.Error(),
			Title:      "Entity Without Parameters",
			Message:    "Entity has no parameters",
		},
		constant.ErrParameterLengthExceeded: parameterLengthError(entityType, args...),
		constant.ErrUnboundParameter: ValidationError{
			EntityType: entityType,
			Code:       constant.ErrUnboundParameter.Error(),
			Title:      "Unbound Parameter",
			Message:    fmt.Sprintf("The entity declares no '%v' parameter to receive the payload.", args...),
			Field:      fmt.Sprint(args...),
		},
		constant.ErrMetadataQuery: MetadataError{
			EntityType: entityType,
			Code:       constant.ErrMetadataQuery.Error(),
			Title:      "Metadata Query Failed",
			Message:    "The entity metadata could not be read. Please try again later or contact support.",
			Err:        cause,
		},
		constant.ErrExecution: ExecutionError{
			EntityType: entityType,
			Code:       constant.ErrExecution.Error(),
			Title:      "Execution Failed",
			Message:    "The entity could not be executed. Please try again later or contact support.",
			Err:        cause,
		},
		constant.ErrInvalidTenantCredential: ConnectionError{
			EntityType: entityType,
			Code:       constant.ErrInvalidTenantCredential.Error(),
			Title:      "Invalid Tenant Credential",
			Message:    "The tenant connection parameters are incomplete or malformed.",
			Err:        cause,
		},
		constant.ErrUnsupportedTenantDriver: ConnectionError{
			EntityType: entityType,
			Code:       constant.ErrUnsupportedTenantDriver.Error(),
			Title:      "Unsupported Tenant Driver",
			Message:    fmt.Sprintf("The tenant driver '%v' is not supported.", args...),
			Err:        cause,
		},
		constant.ErrTenantConnection: ConnectionError{
			EntityType: entityType,
			Code:       constant.ErrTenantConnection.Error(),
			Title:      "Tenant Connection Failed",
			Message:    "The tenant database could not be reached. Please try again later or contact support.",
			Err:        cause,
		},
		constant.ErrTenantUnavailable: ConnectionError{
			EntityType: entityType,
			Code:       constant.ErrTenantUnavailable.Error(),
			Title:      "Tenant Unavailable",
			Message:    "The tenant database is temporarily unavailable. Please try again later.",
			Err:        cause,
		},
		constant.ErrCredentialLookup: AuthenticationFailure{
			Stage:      "credential_lookup",
			StatusCode: http.StatusBadRequest,
			Code:       constant.ErrCredentialLookup.Error(),
			Title:      "Authentication Failed",
			Message:    "invalid username or password",
			Field:      "usuario",
			Err:        cause,
		},
		constant.ErrPrincipalNotFound: AuthenticationFailure{
			Stage:      "principal_resolution",
			StatusCode: http.StatusBadRequest,
			Code:       constant.ErrPrincipalNotFound.Error(),
			Title:      "Authentication Failed",
			Message:    "user does not exist",
			Field:      "usuario",
		},
		constant.ErrPrincipalLookup: AuthenticationFailure{
			Stage:      "principal_resolution",
			StatusCode: http.StatusInternalServerError,
			Code:       constant.ErrPrincipalLookup.Error(),
			Title:      "Authentication Failed",
			Message:    "the user could not be resolved, please try again later",
			Err:        cause,
		},
		constant.ErrSessionNotFound: UnauthorizedError{
			EntityType: entityType,
			Code:       constant.ErrSessionNotFound.Error(),
			Title:      "Session Required",
			Message:    "No authenticated session was found. Please log in and try again.",
			Err:        cause,
		},
		constant.ErrSessionStore: InternalServerError{
			EntityType: entityType,
			Code:       constant.ErrSessionStore.Error(),
			Title:      "Session Store Failure",
			Message:    "The session could not be stored or read. Please try again later.",
			Err:        cause,
		},
	}

	if mappedError, found := errorMap[err]; found {
		return mappedError
	}

	return err
}

func parameterLengthError(entityType string, args ...any) error {
	var (
		field string
		limit any
	)

	if len(args) > 0 {
		field = fmt.Sprint(args[0])
	}

	if len(args) > 1 {
		limit = args[1]
	}

	return ValidationError{
		EntityType: entityType,
		Code:       constant.ErrParameterLengthExceeded.Error(),
		Title:      "Parameter Length Exceeded",
		Message:    strings.ToUpper(fmt.Sprintf("Field [%s] cannot exceed [%v] characters!", field, limit)),
		Field:      field,
	}
}

func splitCause(args []any) ([]any, error) {
	if len(args) == 0 {
		return args, nil
	}

	if cause, ok := args[len(args)-1].(error); ok {
		return args[:len(args)-1], cause
	}

	return args, nil
}
