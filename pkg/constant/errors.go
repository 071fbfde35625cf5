// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

import (
	"errors"
)

// List of errors that can be returned.
// Each code is resolved to a typed error and message by pkg.ValidateBusinessError.
var (
	ErrMissingRequiredFields   = errors.New("GTW-0001")
	ErrInvalidRequestBody      = errors.New("GTW-0002")
	ErrMissingEntityName       = errors.New("GTW-0003")
	ErrAmbiguousEntityKind     = errors.New("GTW-0004")
	ErrInvalidIdentifier       = errors.New("GTW-0005")
	ErrEntityWithoutParameters = errors.New("GTW-0006")
	ErrParameterLengthExceeded = errors.New("GTW-0007")
	ErrMetadataQuery           = errors.New("GTW-0008")
	ErrExecution               = errors.New("GTW-0009")
	ErrInvalidTenantCredential = errors.New("GTW-0010")
	ErrTenantConnection        = errors.New("GTW-0011")
	ErrCredentialLookup        = errors.New("GTW-0012")
	ErrPrincipalNotFound       = errors.New("GTW-0013")
	ErrPrincipalLookup         = errors.New("GTW-0014")
	ErrSessionNotFound         = errors.New("GTW-0015")
	ErrSessionStore            = errors.New("GTW-0016")
	ErrInvalidLoginPayload     = errors.New("GTW-0017")
	ErrTenantUnavailable       = errors.New("GTW-0018")
	ErrInternalServer          = errors.New("GTW-0019")
	ErrUnsupportedTenantDriver = errors.New("GTW-0020")
	ErrRateLimitExceeded       = errors.New("GTW-0021")
	ErrUnboundParameter        = errors.New("GTW-0022")
)
