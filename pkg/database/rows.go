// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package database

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
)

// scanRows reads every row of the first result set into a column-keyed map.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error getting column names: %w", err)
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))

	for i := range values {
		pointers[i] = &values[i]
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}

		result = append(result, createRowMap(columns, values))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// createRowMap maps column names to their respective values.
func createRowMap(columns []string, values []any) map[string]any {
	row := make(map[string]any, len(columns))

	for i, column := range columns {
		row[column] = convertValue(values[i])
	}

	return row
}

// convertValue turns driver byte slices into JSON documents or text.
// Decimal and money columns arrive as bytes and become their text form.
func convertValue(value any) any {
	b, ok := value.([]byte)
	if !ok {
		return value
	}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var document any
		if err := json.Unmarshal(trimmed, &document); err == nil {
			return document
		}
	}

	return string(b)
}
