// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import (
	"errors"
	"time"
)

// ErrIncompleteSession is returned when a session lacks its credential or principal.
var ErrIncompleteSession = errors.New("session must hold both a tenant credential and a principal")

// Session binds one tenant credential to one authenticated principal.
type Session struct {
	ID         string           `json:"id"`
	Credential TenantCredential `json:"conexion"`
	Principal  *Principal       `json:"usuario"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Validate enforces that credential and principal are present together.
func (s *Session) Validate() error {
	if s == nil || s.Principal == nil || s.Credential.Host == "" || s.Credential.Driver == "" {
		return ErrIncompleteSession
	}

	return nil
}
