package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// normalize walks a decoded driver value and replaces SurrealDB record
// ids with "table:id" strings and datetimes with time.Time, so the value
// can be round-tripped through encoding/json into a record struct.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case models.RecordID:
		return t.String()
	case *models.RecordID:
		if t == nil {
			return nil
		}
		return t.String()
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t == nil {
			return nil
		}
		return t.Time
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}

// decodeRecord converts one raw record into T
func decodeRecord[T any](raw interface{}) (*T, error) {
	if raw == nil {
		return nil, database.ErrNotFound
	}
	data, err := json.Marshal(normalize(raw))
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &out, nil
}

// statementRows returns the records produced by the last statement of a Query
func statementRows(results []interface{}) []interface{} {
	if len(results) == 0 {
		return nil
	}
	resp, ok := results[len(results)-1].(map[string]interface{})
	if !ok {
		return nil
	}
	switch r := resp["result"].(type) {
	case []interface{}:
		return r
	case nil:
		return nil
	default:
		return []interface{}{r}
	}
}

// decodeRows decodes every record of the last statement into T
func decodeRows[T any](results []interface{}) ([]*T, error) {
	rows := statementRows(results)
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRecord[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// firstRow decodes the first record of the last statement, or ErrNotFound
func firstRow[T any](results []interface{}) (*T, error) {
	rows := statementRows(results)
	if len(rows) == 0 {
		return nil, database.ErrNotFound
	}
	return decodeRecord[T](rows[0])
}

// countOf reads the count from a `SELECT count() ... GROUP ALL` result
func countOf(results []interface{}) int {
	rows := statementRows(results)
	if len(rows) == 0 {
		return 0
	}
	m, ok := normalize(rows[0]).(map[string]interface{})
	if !ok {
		return 0
	}
	switch c := m["count"].(type) {
	case float64:
		return int(c)
	case int:
		return c
	case int64:
		return int(c)
	case uint64:
		return int(c)
	}
	return 0
}

// notFoundAsNil maps ErrNotFound to a nil result, matching the
// repositories' "nil, nil when missing" contract
func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
