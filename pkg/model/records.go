// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import "encoding/json"

// RegisterRecordsInput is a bulk write against one tenant table.
// Campos and Valores are comma-joined and aligned by position.
type RegisterRecordsInput struct {
	Tabla   string `json:"tabla" validate:"required,max=128"`
	Campos  string `json:"campos" validate:"required"`
	Valores string `json:"valores" validate:"required"`
}

// Payload is the single json argument of the bulk write entity.
func (r RegisterRecordsInput) Payload() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
