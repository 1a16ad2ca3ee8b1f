package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/johnrirwin/channelfeed/internal/query"
)

// compiler renders a condition tree as a Postgres WHERE clause with
// positional parameters.
type compiler struct {
	args []interface{}
}

func (c *compiler) bind(v interface{}) string {
	c.args = append(c.args, v)
	return "$" + strconv.Itoa(len(c.args))
}

func quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

func (c *compiler) compile(cond query.Condition) (string, error) {
	switch v := cond.(type) {
	case nil, query.True:
		return "TRUE", nil
	case query.And:
		return c.join(v, " AND ", "TRUE")
	case query.Or:
		return c.join(v, " OR ", "FALSE")
	case query.Not:
		inner, err := c.compile(v.C)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case query.Cmp:
		if !validOp(v.Op) {
			return "", fmt.Errorf("unsupported operator %q", v.Op)
		}
		if col, ok := v.Value.(query.Column); ok {
			return fmt.Sprintf("%s %s %s.%s", quote(v.Field), v.Op, quote(col.Table), quote(col.Name)), nil
		}
		return fmt.Sprintf("%s %s %s", quote(v.Field), v.Op, c.bind(v.Value)), nil
	case query.BitsSet:
		return fmt.Sprintf("(%s & %s) <> 0", quote(v.Field), c.bind(v.Mask)), nil
	case query.In:
		if len(v.Values) == 0 {
			return "FALSE", nil
		}
		return fmt.Sprintf("%s = ANY(%s)", quote(v.Field), c.bind(typedArray(v.Values))), nil
	case query.IsNull:
		return quote(v.Field) + " IS NULL", nil
	case query.Flag:
		return quote(v.Field), nil
	case query.InSelect:
		sub, err := c.subselect(v.Select, quote(v.Select.Column))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s IN (%s)", quote(v.Field), sub), nil
	case query.Exists:
		sub, err := c.subselect(v.Select, "1")
		if err != nil {
			return "", err
		}
		return "EXISTS (" + sub + ")", nil
	case query.Match:
		return c.match(v), nil
	}
	return "", fmt.Errorf("unsupported condition %T", cond)
}

func (c *compiler) join(conds []query.Condition, sep, empty string) (string, error) {
	if len(conds) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(conds))
	for _, cond := range conds {
		s, err := c.compile(cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+s+")")
	}
	return strings.Join(parts, sep), nil
}

func (c *compiler) subselect(sel query.Select, column string) (string, error) {
	where, err := c.compile(sel.Where)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", column, quote(sel.Table), where), nil
}

func (c *compiler) match(m query.Match) string {
	term := func(t string) string {
		return fmt.Sprintf("to_tsvector('simple', %s) @@ phraseto_tsquery('simple', %s)", quote(m.Field), c.bind(t))
	}

	var parts []string
	for _, t := range m.Search.Must {
		parts = append(parts, term(t))
	}
	if len(m.Search.Must) == 0 && len(m.Search.Should) > 0 {
		alts := make([]string, len(m.Search.Should))
		for i, t := range m.Search.Should {
			alts[i] = term(t)
		}
		parts = append(parts, "("+strings.Join(alts, " OR ")+")")
	}
	for _, t := range m.Search.MustNot {
		parts = append(parts, "NOT ("+term(t)+")")
	}
	if len(parts) == 0 {
		return "FALSE"
	}
	return strings.Join(parts, " AND ")
}

func validOp(op query.Op) bool {
	switch op {
	case query.Eq, query.Ne, query.Lt, query.Le, query.Gt, query.Ge:
		return true
	}
	return false
}

// typedArray converts In values into a lib/pq array parameter
func typedArray(values []interface{}) interface{} {
	ints := make([]int64, 0, len(values))
	strs := make([]string, 0, len(values))
	for _, v := range values {
		switch val := v.(type) {
		case int64:
			ints = append(ints, val)
		case int:
			ints = append(ints, int64(val))
		case string:
			strs = append(strs, val)
		default:
			return pq.Array(values)
		}
	}
	if len(strs) == 0 {
		return pq.Array(ints)
	}
	if len(ints) == 0 {
		return pq.Array(strs)
	}
	return pq.Array(values)
}

// buildSelect renders a complete SELECT statement
func buildSelect(table string, fields []string, where query.Condition, order []query.Order, limit query.Limit) (string, []interface{}, error) {
	c := &compiler{}
	cond, err := c.compile(where)
	if err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(fields) > 0 {
		quoted := make([]string, len(fields))
		for i, f := range fields {
			quoted[i] = quote(f)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE %s", cols, quote(table), cond)
	if len(order) > 0 {
		parts := make([]string, len(order))
		for i, o := range order {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts[i] = quote(o.Field) + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if limit.Count > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(limit.Count))
	}
	if limit.Offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(limit.Offset))
	}
	return sb.String(), c.args, nil
}
