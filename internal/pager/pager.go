// Package pager implements keyset pagination over a single sort column.
package pager

import "github.com/johnrirwin/channelfeed/internal/query"

// Bounds are the exclusive cursor limits of a request; nil means unset
type Bounds struct {
	Min interface{}
	Max interface{}
}

// PreviousPage reports whether only the lower bound is set. The query then
// runs ascending from Min and the rows are reversed after the fetch.
func (b Bounds) PreviousPage() bool {
	return b.Min != nil && b.Max == nil
}

// Result is a bounded query
type Result struct {
	Where   query.Condition
	Order   []query.Order
	Reverse bool
}

// Bound restricts where to the cursor window on column and picks the fetch
// direction. Display order is always descending.
func Bound(where query.Condition, column string, b Bounds) Result {
	conds := []query.Condition{where}
	if b.Max != nil {
		conds = append(conds, query.Cmp{Field: column, Op: query.Lt, Value: b.Max})
	}
	if b.Min != nil {
		conds = append(conds, query.Cmp{Field: column, Op: query.Gt, Value: b.Min})
	}

	res := Result{
		Where: query.AndOf(conds...),
		Order: []query.Order{{Field: column, Desc: true}},
	}
	if b.PreviousPage() {
		res.Order[0].Desc = false
		res.Reverse = true
	}
	return res
}

// Reverse flips a slice in place
func Reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
