// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"
)

// Repository is the data access surface of one database: entity introspection,
// entity invocation and principal lookup.
//
//go:generate mockgen --destination=repository.mock.go --package=database . Repository
type Repository interface {
	DescribeEntity(ctx context.Context, schema, name string, kind model.EntityKind) (model.EntityDescriptor, error)
	Invoke(ctx context.Context, entity model.EntityDescriptor, args []any, returns bool) ([]map[string]any, error)
	FindPrincipal(ctx context.Context, table, username, password string) (map[string]any, error)
	Ping(ctx context.Context) error
	Dialect() Dialect
	CloseConnection() error
}

// ExternalDataSource runs catalog and invocation statements over a Connection.
type ExternalDataSource struct {
	connection *Connection
}

// Compile-time interface satisfaction check.
var _ Repository = (*ExternalDataSource)(nil)

// NewDataSourceRepository creates an ExternalDataSource, establishing the connection.
// Returns nil and error if connection fails.
func NewDataSourceRepository(ctx context.Context, c *Connection) (*ExternalDataSource, error) {
	ds := &ExternalDataSource{
		connection: c,
	}

	if _, err := c.GetDB(ctx); err != nil {
		return nil, fmt.Errorf("failed to establish %s connection: %w", c.Dialect.Name, err)
	}

	return ds, nil
}

// Dialect returns the dialect of the underlying connection.
func (ds *ExternalDataSource) Dialect() Dialect {
	return ds.connection.Dialect
}

// CloseConnection closes the underlying pool.
func (ds *ExternalDataSource) CloseConnection() error {
	return ds.connection.Close()
}

// Ping verifies the pool is reachable.
func (ds *ExternalDataSource) Ping(ctx context.Context) error {
	db, err := ds.connection.GetDB(ctx)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, constant.HealthCheckTimeout)
	defer cancel()

	return db.PingContext(pingCtx)
}

// DescribeEntity returns the ordered parameters of a routine, or the columns of a table.
func (ds *ExternalDataSource) DescribeEntity(ctx context.Context, schema, name string, kind model.EntityKind) (model.EntityDescriptor, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.database.describe_entity")
	defer span.End()

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.entity", schema+"."+name),
		attribute.String("app.request.entity_kind", string(kind)),
	)

	descriptor := model.EntityDescriptor{Schema: schema, Name: name, Kind: kind}

	if !ValidIdentifier(schema) || !ValidIdentifier(name) {
		return descriptor, fmt.Errorf("%s.%s: %w", schema, name, constant.ErrInvalidIdentifier)
	}

	db, err := ds.connection.GetDB(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to get database connection", err)

		return descriptor, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, constant.SchemaDiscoveryTimeout)
	defer cancel()

	if kind.IsRoutine() {
		descriptor.Parameters, err = ds.queryParameters(queryCtx, db, schema, name)
	} else {
		descriptor.Parameters, err = ds.queryColumns(queryCtx, db, schema, name)
	}

	if err != nil {
		pkg.HandleSpanError(span, "Failed to query entity metadata", err)
		logger.Errorf("Failed to describe %s %s.%s: %v", kind, schema, name, err)

		return descriptor, err
	}

	logger.Infof("Described %s %s.%s with %d parameters", kind, schema, name, len(descriptor.Parameters))

	return descriptor, nil
}

func (ds *ExternalDataSource) queryParameters(ctx context.Context, db *sql.DB, schema, name string) ([]model.ParameterDescriptor, error) {
	query, args, err := ds.parametersQuery(schema, name).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error generating SQL: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapTimeout(ctx, "error querying parameters", err)
	}
	defer rows.Close()

	var (
		parameters []model.ParameterDescriptor
		routine    string
	)

	for rows.Next() {
		var (
			p         model.ParameterDescriptor
			specific  string
			maxLength sql.NullInt64
		)

		if err := rows.Scan(&p.Position, &specific, &p.DataType, &p.Name, &maxLength); err != nil {
			return nil, fmt.Errorf("error scanning parameter: %w", err)
		}

		// Overloads share a name; only the first specific routine is described.
		if routine == "" {
			routine = specific
		}

		if specific != routine {
			continue
		}

		p.Type = ds.connection.Dialect.TypeOf(p.DataType)
		p.MaxLength = normalizeMaxLength(maxLength)
		parameters = append(parameters, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parameters: %w", err)
	}

	return parameters, nil
}

func (ds *ExternalDataSource) parametersQuery(schema, name string) squirrel.SelectBuilder {
	builder := ds.connection.Dialect.Builder()

	if ds.connection.Dialect.Name == Postgres.Name {
		return builder.
			Select(
				"p.ordinal_position AS position",
				"p.specific_name AS routine",
				"p.data_type AS type",
				"COALESCE(p.parameter_name, '') AS name",
				"p.character_maximum_length AS max_length",
			).
			From("information_schema.parameters p").
			Join("information_schema.routines r ON r.specific_schema = p.specific_schema AND r.specific_name = p.specific_name").
			Where(squirrel.Eq{"r.routine_schema": schema}).
			Where(squirrel.Eq{"r.routine_name": name}).
			Where("p.parameter_mode IN ('IN', 'INOUT')").
			OrderBy("p.specific_name", "p.ordinal_position")
	}

	return builder.
		Select(
			"ordinal_position AS position",
			"specific_name AS routine",
			"data_type AS type",
			"REPLACE(parameter_name, '@', '') AS name",
			"character_maximum_length AS max_length",
		).
		From("information_schema.parameters").
		Where(squirrel.Eq{"specific_schema": schema}).
		Where(squirrel.Eq{"specific_name": name}).
		Where(squirrel.Gt{"ordinal_position": 0}).
		OrderBy("ordinal_position")
}

func (ds *ExternalDataSource) queryColumns(ctx context.Context, db *sql.DB, schema, table string) ([]model.ParameterDescriptor, error) {
	query, args, err := ds.connection.Dialect.Builder().
		Select(
			"ordinal_position AS position",
			"data_type AS type",
			"column_name AS name",
			"column_default AS default_value",
			"is_nullable AS nullable",
			"character_maximum_length AS max_length",
		).
		From("information_schema.columns").
		Where(squirrel.Eq{"table_schema": schema}).
		Where(squirrel.Eq{"table_name": table}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error generating SQL: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapTimeout(ctx, "error querying columns", err)
	}
	defer rows.Close()

	var columns []model.ParameterDescriptor

	for rows.Next() {
		var (
			c            model.ParameterDescriptor
			defaultValue sql.NullString
			nullable     string
			maxLength    sql.NullInt64
		)

		if err := rows.Scan(&c.Position, &c.DataType, &c.Name, &defaultValue, &nullable, &maxLength); err != nil {
			return nil, fmt.Errorf("error scanning column: %w", err)
		}

		c.Type = ds.connection.Dialect.TypeOf(c.DataType)
		c.MaxLength = normalizeMaxLength(maxLength)

		if defaultValue.Valid {
			c.Default = &defaultValue.String
		}

		isNullable := nullable == "YES"
		c.Nullable = &isNullable

		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

// Invoke executes entity with args. When returns is false the statement runs
// without reading a result set and the returned rows are nil.
func (ds *ExternalDataSource) Invoke(ctx context.Context, entity model.EntityDescriptor, args []any, returns bool) ([]map[string]any, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.database.invoke")
	defer span.End()

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.entity", entity.QualifiedName()),
		attribute.String("app.request.entity_kind", string(entity.Kind)),
		attribute.Int("app.request.argument_count", len(args)),
		attribute.Bool("app.request.returns", returns),
	)

	statement, err := ds.connection.Dialect.InvocationStatement(entity, len(args))
	if err != nil {
		return nil, err
	}

	db, err := ds.connection.GetDB(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to get database connection", err)

		return nil, err
	}

	logger.Infof("Executing SQL: %s with %d arguments", statement, len(args))

	queryCtx, cancel := context.WithTimeout(ctx, constant.QueryTimeoutMedium)
	defer cancel()

	if !returns {
		if _, err := db.ExecContext(queryCtx, statement, args...); err != nil {
			pkg.HandleSpanError(span, "Failed to execute statement", err)

			return nil, wrapTimeout(queryCtx, "error executing statement", err)
		}

		return nil, nil
	}

	rows, err := db.QueryContext(queryCtx, statement, args...)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to execute query", err)

		return nil, wrapTimeout(queryCtx, "error executing query", err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to read result set", err)

		return nil, err
	}

	span.SetAttributes(attribute.Int("app.response.row_count", len(result)))

	return result, nil
}

// FindPrincipal returns the first row of table matching username and password
// exactly, or nil when no row matches.
func (ds *ExternalDataSource) FindPrincipal(ctx context.Context, table, username, password string) (map[string]any, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.database.find_principal")
	defer span.End()

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.table", table),
	)

	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("%s: %w", table, constant.ErrInvalidIdentifier)
	}

	builder := ds.connection.Dialect.Builder().
		Select("*").
		From(table).
		Where(squirrel.Eq{"usuario": username}).
		Where(squirrel.Eq{"contrasena": password})

	if ds.connection.Dialect.Name == Postgres.Name {
		builder = builder.Limit(1)
	} else {
		builder = builder.Options("TOP 1")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error generating SQL: %w", err)
	}

	db, err := ds.connection.GetDB(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to get database connection", err)

		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, constant.QueryTimeoutMedium)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, query, args...)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to query principal", err)

		return nil, wrapTimeout(queryCtx, "error querying principal", err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to read principal", err)

		return nil, err
	}

	if len(result) == 0 {
		logger.Warnf("No principal in %s matches the supplied username", table)

		return nil, nil
	}

	return result[0], nil
}

func normalizeMaxLength(v sql.NullInt64) *int {
	if !v.Valid || v.Int64 < 0 {
		return nil
	}

	n := int(v.Int64)

	return &n
}

func wrapTimeout(ctx context.Context, message string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: timeout: %w", message, err)
	}

	return fmt.Errorf("%s: %w", message, err)
}
