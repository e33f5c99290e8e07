package entity

import (
	"fmt"
	"regexp"
)

// FilterOp is a query predicate operator
type FilterOp string

const (
	OpEqual         FilterOp = "=="
	OpArrayContains FilterOp = "array-contains"
)

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Filter is a single conjunctive predicate
type Filter struct {
	Field string
	Op    FilterOp
	Value interface{}
}

// Order is a single sort key
type Order struct {
	Field     string
	Direction Direction
}

// Query is an immutable set of filters, sort keys and a limit. Every builder method
// returns a new Query and leaves the receiver untouched, so a base query can be
// shared and extended safely.
type Query struct {
	filters []Filter
	orders  []Order
	limit   int
}

// NewQuery returns an empty query matching every document of a collection
func NewQuery() *Query {
	return &Query{}
}

func (q *Query) clone() *Query {
	if q == nil {
		return &Query{}
	}
	return &Query{
		filters: append([]Filter(nil), q.filters...),
		orders:  append([]Order(nil), q.orders...),
		limit:   q.limit,
	}
}

// Where adds an equality filter: field == value
func (q *Query) Where(field string, value interface{}) *Query {
	next := q.clone()
	next.filters = append(next.filters, Filter{Field: field, Op: OpEqual, Value: value})
	return next
}

// WhereArrayContains adds an array-membership filter: value ∈ field
func (q *Query) WhereArrayContains(field string, value interface{}) *Query {
	next := q.clone()
	next.filters = append(next.filters, Filter{Field: field, Op: OpArrayContains, Value: value})
	return next
}

// OrderBy appends a sort key
func (q *Query) OrderBy(field string, direction Direction) *Query {
	next := q.clone()
	next.orders = append(next.orders, Order{Field: field, Direction: direction})
	return next
}

// Limit caps the result count; zero means unlimited
func (q *Query) Limit(n int) *Query {
	next := q.clone()
	next.limit = n
	return next
}

// Filters returns a copy of the filters
func (q *Query) Filters() []Filter {
	if q == nil {
		return nil
	}
	return append([]Filter(nil), q.filters...)
}

// Orders returns a copy of the sort keys
func (q *Query) Orders() []Order {
	if q == nil {
		return nil
	}
	return append([]Order(nil), q.orders...)
}

// LimitValue returns the result cap, zero when unlimited
func (q *Query) LimitValue() int {
	if q == nil {
		return 0
	}
	return q.limit
}

var fieldPathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidFieldPath reports whether path is a dotted field path stores accept
func ValidFieldPath(path string) bool {
	return fieldPathPattern.MatchString(path)
}

// Validate checks the query against what every store supports
func (q *Query) Validate() error {
	if q == nil {
		return nil
	}
	if q.limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrUnsupportedQuery, q.limit)
	}
	for _, f := range q.filters {
		if !ValidFieldPath(f.Field) {
			return fmt.Errorf("%w: invalid field path %q", ErrUnsupportedQuery, f.Field)
		}
		switch f.Op {
		case OpEqual, OpArrayContains:
		default:
			return fmt.Errorf("%w: operator %q", ErrUnsupportedQuery, f.Op)
		}
		if f.Value == nil {
			return fmt.Errorf("%w: nil value for %q", ErrUnsupportedQuery, f.Field)
		}
	}
	for _, o := range q.orders {
		if !ValidFieldPath(o.Field) {
			return fmt.Errorf("%w: invalid field path %q", ErrUnsupportedQuery, o.Field)
		}
		if o.Direction != Asc && o.Direction != Desc {
			return fmt.Errorf("%w: direction %q", ErrUnsupportedQuery, o.Direction)
		}
	}
	return nil
}

// Matches evaluates the query's filters against a document's data
func (q *Query) Matches(data JSON) bool {
	if q == nil {
		return true
	}
	for _, f := range q.filters {
		v, ok := data.Lookup(f.Field)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !ValuesEqual(v, f.Value) {
				return false
			}
		case OpArrayContains:
			found := false
			for _, el := range AsSlice(v) {
				if ValuesEqual(el, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// AsSlice converts a list value to []interface{}, or nil when v is not a list
func AsSlice(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}
