// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalFromRow_DropsSecrets(t *testing.T) {
	t.Parallel()

	principal := PrincipalFromRow(map[string]any{
		"ID_USUARIO": int64(42),
		"usuario":    []byte("jperez"),
		"contrasena": "hunter2",
		"email":      "jperez@example.com",
	})

	assert.Equal(t, int64(42), principal.ID)
	assert.Equal(t, "jperez", principal.Username)
	assert.NotContains(t, principal.Attributes, "contrasena")
	assert.Equal(t, "jperez@example.com", principal.Attributes["email"])
}

func TestPrincipal_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	original := PrincipalFromRow(map[string]any{"id_usuario": int64(7), "usuario": "ana", "pin": "1234"})

	out, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id_usuario":7,"usuario":"ana","pin":"1234"}`, string(out))

	var restored Principal
	require.NoError(t, json.Unmarshal(out, &restored))
	assert.Equal(t, int64(7), restored.ID)
	assert.Equal(t, "ana", restored.Username)
}

func TestPrincipalFromRow_WithoutID(t *testing.T) {
	t.Parallel()

	principal := PrincipalFromRow(map[string]any{"usuario": "ana"})
	assert.True(t, principal.MissingID)

	out, err := json.Marshal(principal)
	require.NoError(t, err)
	assert.JSONEq(t, `{"usuario":"ana"}`, string(out))

	var restored Principal
	require.NoError(t, json.Unmarshal(out, &restored))
	assert.True(t, restored.MissingID, "a missing id survives the session store")

	assert.False(t, PrincipalFromRow(map[string]any{"id_usuario": int64(0)}).MissingID)
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	assert.Nil(t, PrincipalFromContext(context.Background()))

	principal := &Principal{ID: 9}
	ctx := ContextWithPrincipal(context.Background(), principal)

	assert.Same(t, principal, PrincipalFromContext(ctx))
}

func TestSession_Validate(t *testing.T) {
	t.Parallel()

	credential := TenantCredential{Driver: "sqlsrv", Host: "h"}

	assert.ErrorIs(t, (*Session)(nil).Validate(), ErrIncompleteSession)
	assert.ErrorIs(t, (&Session{Credential: credential}).Validate(), ErrIncompleteSession)
	assert.ErrorIs(t, (&Session{Principal: &Principal{ID: 1}}).Validate(), ErrIncompleteSession)
	assert.NoError(t, (&Session{Credential: credential, Principal: &Principal{ID: 1}}).Validate())
}
