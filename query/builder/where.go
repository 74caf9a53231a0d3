// Package builder provides a fluent API that builds queries from table and
// column names instead of schema objects.
package builder

import (
	"github.com/satishbabariya/relq/query"
)

// WhereBuilder builds WHERE and HAVING conditions. Fields are column names,
// optionally qualified with a table name or alias ("c.name"), or aliases of
// selected aggregates.
type WhereBuilder struct {
	conditions []condition
	groups     []*WhereBuilder
	operator   query.LogicalOperator
}

type condition struct {
	field    string
	operator query.OperatorType
	value    any
}

// NewWhereBuilder creates a builder whose conditions are combined with AND.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{operator: query.LogicAnd}
}

func (w *WhereBuilder) add(field string, op query.OperatorType, value any) *WhereBuilder {
	w.conditions = append(w.conditions, condition{field: field, operator: op, value: value})
	return w
}

// Equals adds field = value. A nil value means IS NULL.
func (w *WhereBuilder) Equals(field string, value any) *WhereBuilder {
	return w.add(field, query.OpEquals, value)
}

// NotEquals adds field <> value. A nil value means IS NOT NULL.
func (w *WhereBuilder) NotEquals(field string, value any) *WhereBuilder {
	return w.add(field, query.OpDifferentFrom, value)
}

func (w *WhereBuilder) GreaterThan(field string, value any) *WhereBuilder {
	return w.add(field, query.OpGreaterThan, value)
}

func (w *WhereBuilder) LessThan(field string, value any) *WhereBuilder {
	return w.add(field, query.OpLessThan, value)
}

func (w *WhereBuilder) GreaterOrEqual(field string, value any) *WhereBuilder {
	return w.add(field, query.OpGreaterThanOrEqual, value)
}

func (w *WhereBuilder) LessOrEqual(field string, value any) *WhereBuilder {
	return w.add(field, query.OpLessThanOrEqual, value)
}

func (w *WhereBuilder) In(field string, values ...any) *WhereBuilder {
	return w.add(field, query.OpIn, values)
}

func (w *WhereBuilder) NotIn(field string, values ...any) *WhereBuilder {
	return w.add(field, query.OpNotIn, values)
}

// Like adds a LIKE condition with % and _ wildcards.
func (w *WhereBuilder) Like(field, pattern string) *WhereBuilder {
	return w.add(field, query.OpLike, pattern)
}

func (w *WhereBuilder) NotLike(field, pattern string) *WhereBuilder {
	return w.add(field, query.OpNotLike, pattern)
}

func (w *WhereBuilder) IsNull(field string) *WhereBuilder {
	return w.add(field, query.OpIsNull, nil)
}

func (w *WhereBuilder) IsNotNull(field string) *WhereBuilder {
	return w.add(field, query.OpIsNotNull, nil)
}

// Param adds field = ? with a parameter bound at execution.
func (w *WhereBuilder) Param(field string) *WhereBuilder {
	return w.add(field, query.OpEquals, query.NewParameter())
}

// SetOperator sets how the conditions of this builder are combined.
func (w *WhereBuilder) SetOperator(op query.LogicalOperator) *WhereBuilder {
	w.operator = op
	return w
}

// AND adds a group whose members must all hold.
func (w *WhereBuilder) AND(builders ...*WhereBuilder) *WhereBuilder {
	return w.group(query.LogicAnd, builders)
}

// OR adds a group of which at least one member must hold.
func (w *WhereBuilder) OR(builders ...*WhereBuilder) *WhereBuilder {
	return w.group(query.LogicOr, builders)
}

func (w *WhereBuilder) group(op query.LogicalOperator, builders []*WhereBuilder) *WhereBuilder {
	g := &WhereBuilder{operator: op}
	for _, b := range builders {
		if b != nil && !b.IsEmpty() {
			g.groups = append(g.groups, b)
		}
	}
	if !g.IsEmpty() {
		w.groups = append(w.groups, g)
	}
	return w
}

// IsEmpty reports whether no condition was added.
func (w *WhereBuilder) IsEmpty() bool {
	return len(w.conditions) == 0 && len(w.groups) == 0
}

// build resolves the conditions. AND builders yield one filter per member so
// that the query keeps them as separate conjuncts.
func (w *WhereBuilder) build(r *resolver) ([]*query.FilterItem, error) {
	var filters []*query.FilterItem
	for _, c := range w.conditions {
		item, err := r.resolve(c.field)
		if err != nil {
			return nil, err
		}
		filters = append(filters, query.NewFilter(item, c.operator, c.value))
	}
	for _, g := range w.groups {
		children, err := g.build(r)
		if err != nil {
			return nil, err
		}
		switch {
		case len(children) == 1:
			filters = append(filters, children[0])
		case g.operator == query.LogicOr:
			filters = append(filters, query.Or(children...))
		default:
			filters = append(filters, query.And(children...))
		}
	}
	if w.operator == query.LogicOr && len(filters) > 1 {
		return []*query.FilterItem{query.Or(filters...)}, nil
	}
	return filters, nil
}
