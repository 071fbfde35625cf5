// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package database

import (
	"errors"
	"net/url"
	"testing"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIdentifier(t *testing.T) {
	t.Parallel()

	valid := []string{"dbo", "p_get_orders", "_x", "Tabla1", "fn$calc", "t#tmp"}
	for _, s := range valid {
		assert.True(t, ValidIdentifier(s), s)
	}

	invalid := []string{"", "1abc", "dbo.p", "p; DROP TABLE x", "p]", "p--", "a b", "[dbo]"}
	for _, s := range invalid {
		assert.False(t, ValidIdentifier(s), s)
	}
}

func TestDialectForDriver(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"sqlsrv", "SQLServer", " mssql "} {
		d, err := DialectForDriver(driver)
		require.NoError(t, err)
		assert.Equal(t, SQLServer.Name, d.Name)
	}

	for _, driver := range []string{"pgsql", "postgres", "PostgreSQL"} {
		d, err := DialectForDriver(driver)
		require.NoError(t, err)
		assert.Equal(t, Postgres.Name, d.Name)
	}

	_, err := DialectForDriver("oracle")
	assert.True(t, errors.Is(err, constant.ErrUnsupportedTenantDriver))
}

func TestDialect_TypeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect  Dialect
		dataType string
		expected model.SQLType
	}{
		{SQLServer, "bit", model.SQLTypeBit},
		{SQLServer, "INT", model.SQLTypeInt},
		{SQLServer, "decimal", model.SQLTypeDecimal},
		{SQLServer, "numeric", model.SQLTypeNumeric},
		{SQLServer, "datetime", model.SQLTypeDatetime},
		{SQLServer, "bigint", model.SQLTypeOther},
		{SQLServer, "datetime2", model.SQLTypeOther},
		{SQLServer, "varchar", model.SQLTypeOther},
		{Postgres, "boolean", model.SQLTypeBit},
		{Postgres, "integer", model.SQLTypeInt},
		{Postgres, "numeric", model.SQLTypeNumeric},
		{Postgres, "timestamp with time zone", model.SQLTypeDatetime},
		{Postgres, "character varying", model.SQLTypeOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.dialect.TypeOf(tt.dataType), "%s %s", tt.dialect.Name, tt.dataType)
	}
}

func TestDialect_QualifiedName(t *testing.T) {
	t.Parallel()

	name, err := SQLServer.QualifiedName("dbo", "p_get_orders")
	require.NoError(t, err)
	assert.Equal(t, "[dbo].[p_get_orders]", name)

	name, err = Postgres.QualifiedName("public", "fn_total")
	require.NoError(t, err)
	assert.Equal(t, `"public"."fn_total"`, name)

	_, err = SQLServer.QualifiedName("dbo", "p]; DROP TABLE x --")
	assert.True(t, errors.Is(err, constant.ErrInvalidIdentifier))
}

func TestDialect_Placeholders(t *testing.T) {
	t.Parallel()

	markers, err := SQLServer.Placeholders(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"@p1", "@p2", "@p3"}, markers)

	markers, err = Postgres.Placeholders(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"$1", "$2"}, markers)

	markers, err = SQLServer.Placeholders(0)
	require.NoError(t, err)
	assert.Empty(t, markers)
}

func TestDialect_InvocationStatement(t *testing.T) {
	t.Parallel()

	procedure := model.EntityDescriptor{Schema: "dbo", Name: "p_get_orders", Kind: model.EntityKindProcedure}
	function := model.EntityDescriptor{Schema: "dbo", Name: "fn_total", Kind: model.EntityKindFunction}
	table := model.EntityDescriptor{Schema: "dbo", Name: "clientes", Kind: model.EntityKindTable}

	tests := []struct {
		name     string
		dialect  Dialect
		entity   model.EntityDescriptor
		argc     int
		expected string
	}{
		{"procedure", SQLServer, procedure, 2, "SET NOCOUNT ON; EXEC [dbo].[p_get_orders] @p1, @p2"},
		{"procedure without arguments", SQLServer, procedure, 0, "SET NOCOUNT ON; EXEC [dbo].[p_get_orders]"},
		{"function", SQLServer, function, 2, "SET NOCOUNT ON; SELECT [dbo].[fn_total](@p1, @p2)"},
		{"table", SQLServer, table, 1, "SET NOCOUNT ON; SELECT [dbo].[clientes](@p1)"},
		{"postgres procedure", Postgres, procedure, 2, `CALL "dbo"."p_get_orders"($1, $2)`},
		{"postgres function", Postgres, function, 1, `SELECT * FROM "dbo"."fn_total"($1)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			statement, err := tt.dialect.InvocationStatement(tt.entity, tt.argc)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, statement)
		})
	}

	_, err := SQLServer.InvocationStatement(model.EntityDescriptor{Schema: "dbo", Name: "x y"}, 0)
	assert.True(t, errors.Is(err, constant.ErrInvalidIdentifier))
}

func TestDialect_DSN(t *testing.T) {
	t.Parallel()

	credential := model.TenantCredential{
		Driver:   "sqlsrv",
		Host:     "db.tenant.local",
		Database: "empresa",
		Username: "app",
		Password: "p@ss:w/rd",
		Options:  map[string]string{"encrypt": "disable", "trust_server_certificate": "true"},
	}

	u, err := url.Parse(SQLServer.DSN(credential))
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "db.tenant.local:1433", u.Host)
	assert.Equal(t, "app", u.User.Username())

	password, _ := u.User.Password()
	assert.Equal(t, "p@ss:w/rd", password)
	assert.Equal(t, "empresa", u.Query().Get("database"))
	assert.Equal(t, "disable", u.Query().Get("encrypt"))
	assert.Equal(t, "true", u.Query().Get("TrustServerCertificate"))

	credential.Options = map[string]string{"instance": "SQLEXPRESS"}
	u, err = url.Parse(SQLServer.DSN(credential))
	require.NoError(t, err)
	assert.Equal(t, "db.tenant.local", u.Host)
	assert.Equal(t, "/SQLEXPRESS", u.Path)

	pg := model.TenantCredential{
		Driver:   "pgsql",
		Host:     "pg.local",
		Port:     "6432",
		Database: "empresa",
		Username: "app",
		Password: "secret",
		Options:  map[string]string{"sslmode": "require"},
	}

	u, err = url.Parse(Postgres.DSN(pg))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "pg.local:6432", u.Host)
	assert.Equal(t, "/empresa", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))

	pg.Port = ""
	u, err = url.Parse(Postgres.DSN(pg))
	require.NoError(t, err)
	assert.Equal(t, "pg.local:"+Postgres.DefaultPort, u.Host)
	assert.Equal(t, "5432", Postgres.DefaultPort)
	assert.Equal(t, "1433", SQLServer.DefaultPort)
}
