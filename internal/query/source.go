package query

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Order is one column of a sort specification
type Order struct {
	Field string
	Desc  bool
}

// Limit restricts a result window. A zero Count means unlimited.
type Limit struct {
	Offset int
	Count  int
}

// Row is one result row keyed by column name
type Row map[string]interface{}

// Int64 reads an integer column, accepting the numeric types drivers return
func (r Row) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// String reads a text column
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool reads a boolean column
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case nil:
		return false
	}
	return r.Int64(key) != 0
}

// Time reads a timestamp column
func (r Row) Time(key string) time.Time {
	if t, ok := r[key].(time.Time); ok {
		return t.UTC()
	}
	return time.Time{}
}

// DataSource is the relational store the feed engine reads from
type DataSource interface {
	Select(ctx context.Context, table string, fields []string, where Condition, order []Order, limit Limit) ([]Row, error)
	Count(ctx context.Context, table string, where Condition) (int64, error)
	Exists(ctx context.Context, table string, where Condition) (bool, error)
	Update(ctx context.Context, table string, set map[string]interface{}, where Condition) (int64, error)
}
