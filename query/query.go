// Package query models what to retrieve: the select, from, where, group by,
// having and order by clauses of a relational query plus pagination.
package query

import "github.com/satishbabariya/relq/schema"

// Query is mutable while it is being built and treated as read-only once handed
// to an engine. Use Clone to derive variations.
type Query struct {
	selectItems []*SelectItem
	distinct    bool
	fromItems   []*FromItem
	whereItems  []*FilterItem
	groupBy     []*GroupByItem
	having      []*FilterItem
	orderBy     []*OrderByItem
	firstRow    int
	maxRows     *int
}

// New creates an empty query.
func New() *Query {
	return &Query{firstRow: 1}
}

// Select appends select items.
func (q *Query) Select(items ...*SelectItem) *Query {
	q.selectItems = append(q.selectItems, items...)
	return q
}

// SelectColumns appends bare column select items.
func (q *Query) SelectColumns(cols ...*schema.Column) *Query {
	for _, c := range cols {
		q.selectItems = append(q.selectItems, NewColumnItem(c))
	}
	return q
}

// SelectAll appends every column of every from item added so far.
func (q *Query) SelectAll() *Query {
	for _, f := range q.fromItems {
		for _, leaf := range f.Leaves() {
			switch {
			case leaf.Table != nil:
				for _, c := range leaf.Table.Columns() {
					q.selectItems = append(q.selectItems, NewColumnItem(c).Of(leaf))
				}
			case leaf.SubQuery != nil:
				for _, item := range leaf.SubQuery.selectItems {
					q.selectItems = append(q.selectItems, NewSubQueryItem(leaf, item))
				}
			}
		}
	}
	return q
}

// SelectCount appends COUNT(*).
func (q *Query) SelectCount() *Query {
	return q.Select(CountAll())
}

// ReplaceSelect replaces the select list.
func (q *Query) ReplaceSelect(items ...*SelectItem) *Query {
	q.selectItems = append([]*SelectItem(nil), items...)
	return q
}

// From appends from items.
func (q *Query) From(items ...*FromItem) *Query {
	q.fromItems = append(q.fromItems, items...)
	return q
}

// FromTable appends a table from item, optionally aliased, and returns the query.
func (q *Query) FromTable(t *schema.Table, alias string) *Query {
	return q.From(NewTableFrom(t).As(alias))
}

// Where appends filters that are AND-ed together.
func (q *Query) Where(filters ...*FilterItem) *Query {
	q.whereItems = append(q.whereItems, filters...)
	return q
}

// GroupBy appends grouping expressions.
func (q *Query) GroupBy(items ...*SelectItem) *Query {
	for _, item := range items {
		q.groupBy = append(q.groupBy, NewGroupBy(item))
	}
	return q
}

// GroupByColumns groups by bare columns.
func (q *Query) GroupByColumns(cols ...*schema.Column) *Query {
	for _, c := range cols {
		q.groupBy = append(q.groupBy, NewGroupBy(NewColumnItem(c)))
	}
	return q
}

// Having appends filters over grouped rows.
func (q *Query) Having(filters ...*FilterItem) *Query {
	q.having = append(q.having, filters...)
	return q
}

// OrderBy appends sort keys.
func (q *Query) OrderBy(items ...*OrderByItem) *Query {
	q.orderBy = append(q.orderBy, items...)
	return q
}

// SetDistinct toggles SELECT DISTINCT.
func (q *Query) SetDistinct(distinct bool) *Query {
	q.distinct = distinct
	return q
}

// SetFirstRow sets the 1-based index of the first row to return.
func (q *Query) SetFirstRow(firstRow int) *Query {
	q.firstRow = firstRow
	return q
}

// SetMaxRows limits the number of returned rows.
func (q *Query) SetMaxRows(maxRows int) *Query {
	q.maxRows = &maxRows
	return q
}

// ClearMaxRows removes the row limit.
func (q *Query) ClearMaxRows() *Query {
	q.maxRows = nil
	return q
}

// SelectItems returns the select list.
func (q *Query) SelectItems() []*SelectItem { return append([]*SelectItem(nil), q.selectItems...) }

// FromItems returns the from list.
func (q *Query) FromItems() []*FromItem { return append([]*FromItem(nil), q.fromItems...) }

// WhereItems returns the where filters.
func (q *Query) WhereItems() []*FilterItem { return append([]*FilterItem(nil), q.whereItems...) }

// GroupByItems returns the grouping expressions.
func (q *Query) GroupByItems() []*GroupByItem { return append([]*GroupByItem(nil), q.groupBy...) }

// HavingItems returns the having filters.
func (q *Query) HavingItems() []*FilterItem { return append([]*FilterItem(nil), q.having...) }

// OrderByItems returns the sort keys.
func (q *Query) OrderByItems() []*OrderByItem { return append([]*OrderByItem(nil), q.orderBy...) }

// IsDistinct reports whether duplicate rows are removed.
func (q *Query) IsDistinct() bool { return q.distinct }

// FirstRow returns the 1-based index of the first row to return.
func (q *Query) FirstRow() int {
	if q.firstRow == 0 {
		return 1
	}
	return q.firstRow
}

// MaxRows returns the row limit and whether one is set.
func (q *Query) MaxRows() (int, bool) {
	if q.maxRows == nil {
		return 0, false
	}
	return *q.maxRows, true
}

// IsAggregated reports whether rows are grouped or aggregated.
func (q *Query) IsAggregated() bool {
	if len(q.groupBy) > 0 {
		return true
	}
	for _, item := range q.selectItems {
		if item.IsAggregate() {
			return true
		}
	}
	for _, f := range q.having {
		for _, item := range f.SelectItems() {
			if item.IsAggregate() {
				return true
			}
		}
	}
	return false
}

// Tables returns the distinct physical tables read by the query, including
// tables nested in joins but not in sub-queries.
func (q *Query) Tables() []*schema.Table {
	var out []*schema.Table
	seen := map[*schema.Table]bool{}
	for _, f := range q.fromItems {
		for _, leaf := range f.Leaves() {
			if leaf.Table != nil && !seen[leaf.Table] {
				seen[leaf.Table] = true
				out = append(out, leaf.Table)
			}
		}
	}
	return out
}

// Filters returns every filter of the query in declaration order: join
// on-conditions first, then WHERE, then HAVING.
func (q *Query) Filters() []*FilterItem {
	var out []*FilterItem
	for _, f := range q.fromItems {
		out = f.collectFilters(out)
	}
	out = append(out, q.whereItems...)
	return append(out, q.having...)
}

// Parameters returns every parameter placeholder in declaration order.
func (q *Query) Parameters() []*Parameter {
	var out []*Parameter
	for _, f := range q.Filters() {
		out = append(out, f.Parameters()...)
	}
	return out
}

// Clone copies every clause list so that the copy can be modified without
// affecting q. Select items and from items are shared.
func (q *Query) Clone() *Query {
	cp := &Query{
		selectItems: append([]*SelectItem(nil), q.selectItems...),
		distinct:    q.distinct,
		fromItems:   append([]*FromItem(nil), q.fromItems...),
		groupBy:     append([]*GroupByItem(nil), q.groupBy...),
		orderBy:     append([]*OrderByItem(nil), q.orderBy...),
		firstRow:    q.firstRow,
	}
	for _, f := range q.whereItems {
		cp.whereItems = append(cp.whereItems, f.Clone())
	}
	for _, f := range q.having {
		cp.having = append(cp.having, f.Clone())
	}
	if q.maxRows != nil {
		n := *q.maxRows
		cp.maxRows = &n
	}
	return cp
}

// MapFilters returns a clone whose filters, including join on-conditions,
// have every leaf operand replaced by fn. Join from items are copied so the
// original query is left untouched.
func (q *Query) MapFilters(fn func(operand any) any) *Query {
	cp := q.Clone()
	for i, f := range q.whereItems {
		cp.whereItems[i] = f.Map(fn)
	}
	for i, f := range q.having {
		cp.having[i] = f.Map(fn)
	}
	for i, f := range q.fromItems {
		cp.fromItems[i] = mapJoin(f, fn)
	}
	return cp
}

// mapJoin rewrites on-conditions in place on copies of join items. Table and
// sub-query leaves keep their identity because select items point at them.
func mapJoin(f *FromItem, fn func(operand any) any) *FromItem {
	if !f.IsJoin() || !hasParameters(f) {
		return f
	}
	cp := *f
	cp.Left = mapJoin(f.Left, fn)
	cp.Right = mapJoin(f.Right, fn)
	if f.On != nil {
		cp.On = make([]*FilterItem, len(f.On))
		for i, c := range f.On {
			cp.On[i] = c.Map(fn)
		}
	}
	return &cp
}

func hasParameters(f *FromItem) bool {
	for _, c := range f.collectFilters(nil) {
		if len(c.Parameters()) > 0 {
			return true
		}
	}
	return false
}
