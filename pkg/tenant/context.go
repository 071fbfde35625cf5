// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package tenant

import "context"

type handleContextKey struct{}

// ContextWithHandle returns a context carrying the request's tenant handle.
func ContextWithHandle(ctx context.Context, handle *Handle) context.Context {
	return context.WithValue(ctx, handleContextKey{}, handle)
}

// HandleFromContext returns the tenant handle of the request, if any.
func HandleFromContext(ctx context.Context) (*Handle, bool) {
	handle, ok := ctx.Value(handleContextKey{}).(*Handle)

	return handle, ok && handle != nil
}
