// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
)

// secretColumns never leave the principal lookup.
var secretColumns = map[string]struct{}{
	"contrasena": {},
	"password":   {},
}

// Principal is the authenticated user record of a tenant.
type Principal struct {
	ID         int64
	Username   string
	Attributes map[string]any

	// MissingID is set when the user row carried no usable id_usuario.
	MissingID bool
}

// PrincipalFromRow builds a principal from a user row, dropping secret columns.
func PrincipalFromRow(row map[string]any) *Principal {
	p := &Principal{Attributes: make(map[string]any, len(row))}

	for k, v := range row {
		key := strings.ToLower(k)
		if _, secret := secretColumns[key]; secret {
			continue
		}

		if b, ok := v.([]byte); ok {
			v = string(b)
		}

		p.Attributes[key] = v
	}

	if id, ok := AsInt64(p.Attributes[constant.PrincipalIDField]); ok {
		p.ID = id
	} else {
		p.MissingID = true
	}

	if username, ok := p.Attributes["usuario"].(string); ok {
		p.Username = username
	}

	return p
}

// MarshalJSON writes the user record as a flat object.
func (p Principal) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Attributes)+2)
	for k, v := range p.Attributes {
		out[k] = v
	}

	if !p.MissingID {
		out[constant.PrincipalIDField] = p.ID
	}

	out["usuario"] = p.Username

	return json.Marshal(out)
}

// UnmarshalJSON restores a principal written by MarshalJSON.
func (p *Principal) UnmarshalJSON(data []byte) error {
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}

	*p = *PrincipalFromRow(row)

	return nil
}

type principalContextKey struct{}

// ContextWithPrincipal returns a context carrying the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the principal of the request, if any.
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, _ := ctx.Value(principalContextKey{}).(*Principal)

	return principal
}
