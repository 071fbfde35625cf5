// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import (
	"net/http"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
)

// Envelope is the uniform response body of the gateway.
type Envelope struct {
	Data       any    `json:"data"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
}

// ExecutionResult holds the rows of an invocation and the status they carry.
type ExecutionResult struct {
	Rows       []map[string]any
	StatusCode int
}

// NewExecutionResult extracts the status code from the first row.
// Empty results and rows without a valid embedded status are 200.
func NewExecutionResult(rows []map[string]any) *ExecutionResult {
	if rows == nil {
		rows = []map[string]any{}
	}

	result := &ExecutionResult{Rows: rows, StatusCode: http.StatusOK}

	if len(rows) == 0 {
		return result
	}

	if status, ok := AsInt64(rows[0][constant.StatusCodeField]); ok && status >= 100 && status <= 599 {
		result.StatusCode = int(status)
	}

	return result
}

// Envelope wraps the result rows for the caller.
func (r *ExecutionResult) Envelope() Envelope {
	return Envelope{Data: r.Rows, StatusCode: r.StatusCode}
}
