// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import "strings"

// EntityKind is the kind of database object a generic invocation targets.
type EntityKind string

const (
	EntityKindProcedure EntityKind = "procedure"
	EntityKindFunction  EntityKind = "function"
	EntityKindTable     EntityKind = "table"
)

// EntityKinds lists the kinds in the order control fields are resolved.
var EntityKinds = []EntityKind{EntityKindProcedure, EntityKindFunction, EntityKindTable}

// IsRoutine reports whether the kind is described by the parameter catalog.
func (k EntityKind) IsRoutine() bool {
	return k == EntityKindProcedure || k == EntityKindFunction
}

// SQLType is the coercion class of a parameter's declared type.
type SQLType string

const (
	SQLTypeBit      SQLType = "bit"
	SQLTypeInt      SQLType = "int"
	SQLTypeDecimal  SQLType = "decimal"
	SQLTypeNumeric  SQLType = "numeric"
	SQLTypeDatetime SQLType = "datetime"
	SQLTypeOther    SQLType = "other"
)

// ParameterDescriptor describes one parameter of a routine or one column of a table.
type ParameterDescriptor struct {
	Position  int     `json:"position"`
	Name      string  `json:"name"`
	Type      SQLType `json:"type"`
	DataType  string  `json:"data_type"`
	MaxLength *int    `json:"max_length"`
	Default   *string `json:"default,omitempty"`
	Nullable  *bool   `json:"nullable,omitempty"`
}

// HasPrefix reports whether the parameter name starts with prefix.
func (p ParameterDescriptor) HasPrefix(prefix string) bool {
	return strings.HasPrefix(p.Name, prefix)
}

// Contains reports whether the parameter name contains fragment.
func (p ParameterDescriptor) Contains(fragment string) bool {
	return strings.Contains(p.Name, fragment)
}

// EntityDescriptor is a schema-qualified entity and its ordered parameters.
type EntityDescriptor struct {
	Schema     string                `json:"schema"`
	Name       string                `json:"name"`
	Kind       EntityKind            `json:"kind"`
	Parameters []ParameterDescriptor `json:"parameters"`
}

// HasParameter reports whether a parameter named name is declared.
func (e EntityDescriptor) HasParameter(name string) bool {
	for _, p := range e.Parameters {
		if p.Name == name {
			return true
		}
	}

	return false
}

// QualifiedName returns schema.name without quoting.
func (e EntityDescriptor) QualifiedName() string {
	return e.Schema + "." + e.Name
}
