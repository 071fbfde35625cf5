// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleSpanError records err on span and marks the span as failed.
func HandleSpanError(span trace.Span, message string, err error) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, message)
}

// HandleSpanBusinessErrorEvent records an expected failure as an event without failing the span.
func HandleSpanBusinessErrorEvent(span trace.Span, message string, err error) {
	if span == nil || err == nil {
		return
	}

	span.AddEvent(message)
	span.RecordError(err)
}
