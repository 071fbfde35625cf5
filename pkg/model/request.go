// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
)

// Control fields recognized in a generic invocation request.
const (
	FieldSchema    = "schema"
	FieldProcedure = "procedure"
	FieldFunction  = "function"
	FieldTable     = "table"
	FieldReturns   = "returns"
	FieldData      = "data"
)

var keyAliases = map[string]string{
	"procedimiento": FieldProcedure,
	"esquema":       FieldSchema,
}

// RequestEnvelope is a normalized generic invocation request.
type RequestEnvelope struct {
	Schema  string
	Kind    EntityKind
	Name    string
	Returns bool
	Values  map[string]any
}

// DecodeRequest parses a JSON object body, keeping numbers as json.Number.
func DecodeRequest(body []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil || raw == nil {
		return nil, pkg.ValidateBusinessError(constant.ErrInvalidRequestBody, "request")
	}

	return raw, nil
}

// UnwrapData returns the object under a top-level "data" key, or raw itself.
func UnwrapData(raw map[string]any) map[string]any {
	if inner, ok := raw[FieldData].(map[string]any); ok {
		return inner
	}

	return raw
}

// NormalizeKey lower-cases a key, splitting camelCase words with '_' and
// resolving the procedimiento/esquema aliases. An upper-case run is one word
// ("IDUsuario" is "id_usuario") and all-caps keys stay whole ("ID_USUARIO").
func NormalizeKey(key string) string {
	runes := []rune(strings.TrimSpace(key))

	var b strings.Builder

	b.Grow(len(runes) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && wordBoundary(runes, i) {
			b.WriteByte('_')
		}

		b.WriteRune(unicode.ToLower(r))
	}

	normalized := b.String()
	if alias, ok := keyAliases[normalized]; ok {
		return alias
	}

	return normalized
}

// wordBoundary reports whether the upper-case rune at i starts a new word.
func wordBoundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}

	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

// NormalizeRequest returns a copy of raw with normalized keys, null and empty
// string values dropped and "true"/"false" strings turned into booleans.
// Other strings keep their case; upper-casing is a per-parameter coercion rule.
// Keys are visited in sorted order so collisions resolve deterministically.
func NormalizeRequest(raw map[string]any) map[string]any {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	normalized := make(map[string]any, len(raw))

	for _, k := range keys {
		value := raw[k]
		if value == nil {
			continue
		}

		if s, ok := value.(string); ok {
			if s == "" {
				continue
			}

			switch {
			case strings.EqualFold(s, "true"):
				value = true
			case strings.EqualFold(s, "false"):
				value = false
			}
		}

		normalized[NormalizeKey(k)] = value
	}

	return normalized
}

// NewRequestEnvelope unwraps, normalizes and splits raw into control fields and values.
func NewRequestEnvelope(raw map[string]any) (*RequestEnvelope, error) {
	values := NormalizeRequest(UnwrapData(raw))

	envelope := &RequestEnvelope{
		Returns: true,
		Values:  values,
	}

	var kinds []string

	for _, kind := range EntityKinds {
		value, ok := values[string(kind)]
		if !ok {
			continue
		}

		kinds = append(kinds, string(kind))
		envelope.Kind = kind
		envelope.Name = strings.TrimSpace(fmt.Sprint(value))
	}

	if len(kinds) > 1 {
		return nil, pkg.ValidateBusinessError(constant.ErrAmbiguousEntityKind, "request", strings.Join(kinds, ", "))
	}

	if envelope.Name == "" {
		return nil, pkg.ValidateBusinessError(constant.ErrMissingEntityName, "request")
	}

	if schema, ok := values[FieldSchema]; ok {
		envelope.Schema = strings.TrimSpace(fmt.Sprint(schema))
	}

	if returns, ok := values[FieldReturns]; ok {
		envelope.Returns = truthyFlag(returns)
	}

	for _, control := range []string{FieldSchema, FieldProcedure, FieldFunction, FieldTable, FieldReturns} {
		delete(values, control)
	}

	return envelope, nil
}

// Descriptor returns the entity identity of the envelope, defaulting the schema.
func (r *RequestEnvelope) Descriptor(defaultSchema string) EntityDescriptor {
	schema := r.Schema
	if schema == "" {
		schema = defaultSchema
	}

	return EntityDescriptor{Schema: schema, Name: r.Name, Kind: r.Kind}
}

func truthyFlag(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err != nil || b
	default:
		return true
	}
}
