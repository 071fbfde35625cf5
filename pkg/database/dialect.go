// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package database

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const (
	sqlServerDefaultPort = "1433"
	postgresDefaultPort  = "5432"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*$`)

// ValidIdentifier reports whether s can be used as a schema or entity name.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Dialect captures what differs between the supported tenant engines:
// driver registration, placeholder style, identifier quoting, invocation
// syntax and the mapping of catalog types to coercion classes.
type Dialect struct {
	Name          string
	DriverName    string
	DefaultSchema string
	DefaultPort   string

	placeholder squirrel.PlaceholderFormat
	quote       func(string) string
	types       map[string]model.SQLType
	dsn         func(model.TenantCredential) string
}

// SQLServer is the dialect of the default connection and of most tenants.
var SQLServer = Dialect{
	Name:          "sqlserver",
	DriverName:    "sqlserver",
	DefaultSchema: constant.DefaultSchema,
	DefaultPort:   sqlServerDefaultPort,
	placeholder:   squirrel.AtP,
	quote:         quoteBracket,
	types: map[string]model.SQLType{
		"bit":      model.SQLTypeBit,
		"int":      model.SQLTypeInt,
		"decimal":  model.SQLTypeDecimal,
		"numeric":  model.SQLTypeNumeric,
		"datetime": model.SQLTypeDatetime,
	},
	dsn: sqlServerDSN,
}

// Postgres serves tenants whose credential names a PostgreSQL driver.
var Postgres = Dialect{
	Name:          "postgres",
	DriverName:    "pgx",
	DefaultSchema: constant.DefaultPostgresSchema,
	DefaultPort:   postgresDefaultPort,
	placeholder:   squirrel.Dollar,
	quote:         pq.QuoteIdentifier,
	types: map[string]model.SQLType{
		"boolean":                     model.SQLTypeBit,
		"smallint":                    model.SQLTypeInt,
		"integer":                     model.SQLTypeInt,
		"bigint":                      model.SQLTypeInt,
		"numeric":                     model.SQLTypeNumeric,
		"real":                        model.SQLTypeDecimal,
		"double precision":            model.SQLTypeDecimal,
		"timestamp without time zone": model.SQLTypeDatetime,
		"timestamp with time zone":    model.SQLTypeDatetime,
	},
	dsn: postgresDSN,
}

// DialectForDriver resolves the dialect named by a credential driver.
func DialectForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlsrv", "sqlserver", "mssql":
		return SQLServer, nil
	case "pgsql", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("driver %q: %w", driver, constant.ErrUnsupportedTenantDriver)
	}
}

// Builder returns a squirrel statement builder using the dialect placeholders.
func (d Dialect) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.placeholder)
}

// TypeOf maps a catalog data type to its coercion class. Unknown types are free text.
func (d Dialect) TypeOf(dataType string) model.SQLType {
	if t, ok := d.types[strings.ToLower(strings.TrimSpace(dataType))]; ok {
		return t
	}

	return model.SQLTypeOther
}

// QualifiedName quotes schema and name for use in a statement.
func (d Dialect) QualifiedName(schema, name string) (string, error) {
	if !ValidIdentifier(schema) || !ValidIdentifier(name) {
		return "", fmt.Errorf("%s.%s: %w", schema, name, constant.ErrInvalidIdentifier)
	}

	return d.quote(schema) + "." + d.quote(name), nil
}

// Placeholders returns n positional markers in the dialect format.
func (d Dialect) Placeholders(n int) ([]string, error) {
	if n == 0 {
		return nil, nil
	}

	joined, err := d.placeholder.ReplacePlaceholders(strings.TrimSuffix(strings.Repeat("?,", n), ","))
	if err != nil {
		return nil, err
	}

	return strings.Split(joined, ","), nil
}

// InvocationStatement builds the statement that invokes entity with argc arguments.
func (d Dialect) InvocationStatement(entity model.EntityDescriptor, argc int) (string, error) {
	qualified, err := d.QualifiedName(entity.Schema, entity.Name)
	if err != nil {
		return "", err
	}

	markers, err := d.Placeholders(argc)
	if err != nil {
		return "", err
	}

	args := strings.Join(markers, ", ")

	switch {
	case d.Name == SQLServer.Name && entity.Kind == model.EntityKindProcedure:
		if args == "" {
			return "SET NOCOUNT ON; EXEC " + qualified, nil
		}

		return "SET NOCOUNT ON; EXEC " + qualified + " " + args, nil
	case d.Name == SQLServer.Name:
		return "SET NOCOUNT ON; SELECT " + qualified + "(" + args + ")", nil
	case entity.Kind == model.EntityKindProcedure:
		return "CALL " + qualified + "(" + args + ")", nil
	default:
		return "SELECT * FROM " + qualified + "(" + args + ")", nil
	}
}

// DSN renders the driver connection string for credential.
func (d Dialect) DSN(credential model.TenantCredential) string {
	return d.dsn(credential)
}

func quoteBracket(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

func hostPort(credential model.TenantCredential, defaultPort string) string {
	port := credential.Port
	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(credential.Host, port)
}

var sqlServerOptions = map[string]string{
	"encrypt":                  "encrypt",
	"trust_server_certificate": "TrustServerCertificate",
	"app_name":                 "app name",
	"connect_timeout":          "connection timeout",
}

func sqlServerDSN(credential model.TenantCredential) string {
	query := url.Values{}
	query.Set("database", credential.Database)

	for option, param := range sqlServerOptions {
		if v, ok := credential.Options[option]; ok && v != "" {
			query.Set(param, v)
		}
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(credential.Username, credential.Password),
		Host:     hostPort(credential, sqlServerDefaultPort),
		RawQuery: query.Encode(),
	}

	if instance := credential.Options["instance"]; instance != "" {
		u.Host = credential.Host
		u.Path = "/" + instance
	}

	return u.String()
}

var postgresOptions = map[string]string{
	"sslmode":         "sslmode",
	"app_name":        "application_name",
	"connect_timeout": "connect_timeout",
}

func postgresDSN(credential model.TenantCredential) string {
	query := url.Values{}

	for option, param := range postgresOptions {
		if v, ok := credential.Options[option]; ok && v != "" {
			query.Set(param, v)
		}
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(credential.Username, credential.Password),
		Host:     hostPort(credential, postgresDefaultPort),
		Path:     "/" + credential.Database,
		RawQuery: query.Encode(),
	}

	return u.String()
}
