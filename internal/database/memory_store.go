package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/johnrirwin/channelfeed/internal/query"
)

// StoreStats counts the operations a MemoryStore has served
type StoreStats struct {
	Selects int
	Counts  int
	Exists  int
	Updates int
}

// MemoryStore is an in-process DataSource that evaluates condition trees
// directly. It backs local development without Postgres and the tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]query.Row
	stats  StoreStats
	err    error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]query.Row)}
}

// Insert appends rows to a table. Rows are copied.
func (m *MemoryStore) Insert(table string, rows ...query.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[table] = append(m.tables[table], copyRow(r))
	}
}

// Rows returns a copy of a table's contents
func (m *MemoryStore) Rows(table string) []query.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]query.Row, len(m.tables[table]))
	for i, r := range m.tables[table] {
		out[i] = copyRow(r)
	}
	return out
}

// Stats returns the operation counters
func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// FailWith makes every following operation return err; nil clears it
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Select runs a filtered, ordered and limited read
func (m *MemoryStore) Select(ctx context.Context, table string, fields []string, where query.Condition, order []query.Order, limit query.Limit) ([]query.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.stats.Selects++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	matched, err := m.filter(table, where, nil)
	if err != nil {
		return nil, err
	}

	if len(order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range order {
				c := compareValues(matched[i][o.Field], matched[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if limit.Offset > 0 {
		if limit.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[limit.Offset:]
		}
	}
	if limit.Count > 0 && len(matched) > limit.Count {
		matched = matched[:limit.Count]
	}

	out := make([]query.Row, len(matched))
	for i, r := range matched {
		out[i] = project(r, fields)
	}
	return out, nil
}

// Count returns the number of matching rows
func (m *MemoryStore) Count(ctx context.Context, table string, where query.Condition) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.stats.Counts++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	matched, err := m.filter(table, where, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Exists reports whether any row matches
func (m *MemoryStore) Exists(ctx context.Context, table string, where query.Condition) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	m.stats.Exists++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return false, m.err
	}
	matched, err := m.filter(table, where, nil)
	if err != nil {
		return false, err
	}
	return len(matched) > 0, nil
}

// Update sets columns on every matching row
func (m *MemoryStore) Update(ctx context.Context, table string, set map[string]interface{}, where query.Condition) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Updates++
	if m.err != nil {
		return 0, m.err
	}

	var n int64
	for _, row := range m.tables[table] {
		ok, err := m.eval(where, &scope{table: table, row: row})
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		for k, v := range set {
			row[k] = v
		}
		n++
	}
	return n, nil
}

// scope is one level of select nesting, used to resolve correlated columns
type scope struct {
	table  string
	row    query.Row
	parent *scope
}

func (s *scope) lookup(col query.Column) (interface{}, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.table == col.Table {
			return cur.row[col.Name], nil
		}
	}
	return nil, fmt.Errorf("unknown column reference %s.%s", col.Table, col.Name)
}

func (m *MemoryStore) filter(table string, where query.Condition, parent *scope) ([]query.Row, error) {
	var out []query.Row
	for _, row := range m.tables[table] {
		ok, err := m.eval(where, &scope{table: table, row: row, parent: parent})
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *MemoryStore) eval(cond query.Condition, s *scope) (bool, error) {
	switch v := cond.(type) {
	case nil, query.True:
		return true, nil
	case query.And:
		for _, c := range v {
			ok, err := m.eval(c, s)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case query.Or:
		for _, c := range v {
			ok, err := m.eval(c, s)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case query.Not:
		ok, err := m.eval(v.C, s)
		return !ok, err
	case query.Cmp:
		left := s.row[v.Field]
		right := v.Value
		if col, ok := right.(query.Column); ok {
			var err error
			if right, err = s.lookup(col); err != nil {
				return false, err
			}
		}
		if left == nil || right == nil {
			return false, nil
		}
		c := compareValues(left, right)
		switch v.Op {
		case query.Eq:
			return c == 0, nil
		case query.Ne:
			return c != 0, nil
		case query.Lt:
			return c < 0, nil
		case query.Le:
			return c <= 0, nil
		case query.Gt:
			return c > 0, nil
		case query.Ge:
			return c >= 0, nil
		}
		return false, fmt.Errorf("unsupported operator %q", v.Op)
	case query.BitsSet:
		return s.row.Int64(v.Field)&v.Mask != 0, nil
	case query.In:
		val := s.row[v.Field]
		if val == nil {
			return false, nil
		}
		for _, candidate := range v.Values {
			if candidate != nil && compareValues(val, candidate) == 0 {
				return true, nil
			}
		}
		return false, nil
	case query.IsNull:
		return s.row[v.Field] == nil, nil
	case query.Flag:
		return s.row.Bool(v.Field), nil
	case query.InSelect:
		val := s.row[v.Field]
		if val == nil {
			return false, nil
		}
		rows, err := m.filter(v.Select.Table, v.Select.Where, s)
		if err != nil {
			return false, err
		}
		for _, r := range rows {
			if candidate := r[v.Select.Column]; candidate != nil && compareValues(val, candidate) == 0 {
				return true, nil
			}
		}
		return false, nil
	case query.Exists:
		rows, err := m.filter(v.Select.Table, v.Select.Where, s)
		if err != nil {
			return false, err
		}
		return len(rows) > 0, nil
	case query.Match:
		return v.Search.Matches(s.row.String(v.Field)), nil
	}
	return false, fmt.Errorf("unsupported condition %T", cond)
}

// compareValues orders two column values of compatible types
func compareValues(a, b interface{}) int {
	if ta, ok := a.(time.Time); ok {
		tb, _ := b.(time.Time)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		}
		return 0
	}
	if sa, ok := a.(string); ok {
		sb := fmt.Sprint(b)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	}
	if ba, ok := a.(bool); ok {
		a = boolInt(ba)
	}
	if bb, ok := b.(bool); ok {
		b = boolInt(bb)
	}
	fa, fb := toFloat(a), toFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func copyRow(r query.Row) query.Row {
	out := make(query.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func project(r query.Row, fields []string) query.Row {
	if len(fields) == 0 {
		return copyRow(r)
	}
	out := make(query.Row, len(fields))
	for _, f := range fields {
		out[f] = r[f]
	}
	return out
}

var _ query.DataSource = (*MemoryStore)(nil)
