// Package query holds the storage-neutral condition tree used to describe
// feed queries. Adapters in internal/database compile it for Postgres or
// evaluate it in memory.
package query

// Condition is a node of a predicate tree
type Condition interface {
	isCondition()
}

// Op is a comparison operator
type Op string

const (
	Eq Op = "="
	Ne Op = "<>"
	Lt Op = "<"
	Le Op = "<="
	Gt Op = ">"
	Ge Op = ">="
)

// And is satisfied when every child is. An empty And is true.
type And []Condition

// Or is satisfied when any child is. An empty Or is false.
type Or []Condition

// Not negates its child
type Not struct {
	C Condition
}

// Cmp compares a column of the current row with a value. Value may be a
// Column to correlate with an enclosing select.
type Cmp struct {
	Field string
	Op    Op
	Value interface{}
}

// Column references a column of an enclosing select by table name
type Column struct {
	Table string
	Name  string
}

// BitsSet is satisfied when any bit of Mask is set in Field
type BitsSet struct {
	Field string
	Mask  int64
}

// In is satisfied when Field equals one of Values. An empty list is false.
type In struct {
	Field  string
	Values []interface{}
}

// IsNull is satisfied when Field has no value
type IsNull struct {
	Field string
}

// Flag is satisfied when the boolean column Field is true
type Flag struct {
	Field string
}

// InSelect is satisfied when Field is among the values produced by Select
type InSelect struct {
	Field  string
	Select Select
}

// Exists is satisfied when Select yields at least one row
type Exists struct {
	Select Select
}

// Match is a full-text boolean search against a text column
type Match struct {
	Field  string
	Search Search
}

// True is always satisfied
type True struct{}

// Select is a single-column sub-select
type Select struct {
	Table  string
	Column string
	Where  Condition
}

func (And) isCondition()      {}
func (Or) isCondition()       {}
func (Not) isCondition()      {}
func (Cmp) isCondition()      {}
func (BitsSet) isCondition()  {}
func (In) isCondition()       {}
func (IsNull) isCondition()   {}
func (Flag) isCondition()     {}
func (InSelect) isCondition() {}
func (Exists) isCondition()   {}
func (Match) isCondition()    {}
func (True) isCondition()     {}

// AndOf joins conditions, flattening nested conjunctions and skipping nil
// and True nodes.
func AndOf(conds ...Condition) Condition {
	out := make(And, 0, len(conds))
	for _, c := range conds {
		switch v := c.(type) {
		case nil, True:
		case And:
			for _, inner := range v {
				if inner == nil {
					continue
				}
				if _, ok := inner.(True); ok {
					continue
				}
				out = append(out, inner)
			}
		default:
			out = append(out, c)
		}
	}
	switch len(out) {
	case 0:
		return True{}
	case 1:
		return out[0]
	}
	return out
}

// Values converts a typed slice into In values
func Values[T any](vals []T) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
