package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// OrderByBuilder builds ORDER BY clauses.
type OrderByBuilder struct {
	orderBy []order
}

type order struct {
	field     string
	direction query.Direction
}

// NewOrderByBuilder creates an empty ORDER BY builder.
func NewOrderByBuilder() *OrderByBuilder {
	return &OrderByBuilder{}
}

func (o *OrderByBuilder) Asc(field string) *OrderByBuilder {
	o.orderBy = append(o.orderBy, order{field: field, direction: query.Ascending})
	return o
}

func (o *OrderByBuilder) Desc(field string) *OrderByBuilder {
	o.orderBy = append(o.orderBy, order{field: field, direction: query.Descending})
	return o
}

// QueryBuilder builds complete queries against a schema. Name resolution
// errors are reported by Build.
type QueryBuilder struct {
	schema   *schema.Schema
	from     *query.FromItem
	leaves   []*query.FromItem
	columns  []string
	aggs     []aggregate
	groupBy  []string
	where    *WhereBuilder
	having   *WhereBuilder
	orderBy  *OrderByBuilder
	distinct bool
	limit    *int
	offset   *int
	err      error
}

// NewQueryBuilder starts a query reading table, optionally under alias.
func NewQueryBuilder(s *schema.Schema, table, alias string) *QueryBuilder {
	q := &QueryBuilder{
		schema:  s,
		where:   NewWhereBuilder(),
		having:  NewWhereBuilder(),
		orderBy: NewOrderByBuilder(),
	}
	leaf, err := q.table(table, alias)
	if err != nil {
		q.err = err
		return q
	}
	q.from = leaf
	return q
}

func (q *QueryBuilder) table(name, alias string) (*query.FromItem, error) {
	t, err := q.schema.ResolveTable(name)
	if err != nil {
		return nil, err
	}
	leaf := query.NewTableFrom(t).As(alias)
	q.leaves = append(q.leaves, leaf)
	return leaf, nil
}

// Join adds a join of table, matching leftField with rightField. Fields are
// resolved like select columns.
func (q *QueryBuilder) Join(join query.JoinType, table, alias, leftField, rightField string) *QueryBuilder {
	if q.err != nil {
		return q
	}
	right, err := q.table(table, alias)
	if err != nil {
		q.err = err
		return q
	}
	r := q.resolver()
	left, err := r.resolve(leftField)
	if err != nil {
		q.err = err
		return q
	}
	other, err := r.resolve(rightField)
	if err != nil {
		q.err = err
		return q
	}
	q.from = query.NewJoin(join, q.from, right, query.NewFilter(left, query.OpEquals, other))
	return q
}

// Select sets the columns to select. No columns and no aggregates means
// every column.
func (q *QueryBuilder) Select(columns ...string) *QueryBuilder {
	q.columns = columns
	return q
}

func (q *QueryBuilder) Distinct() *QueryBuilder {
	q.distinct = true
	return q
}

func (q *QueryBuilder) Where(where *WhereBuilder) *QueryBuilder {
	q.where = where
	return q
}

func (q *QueryBuilder) OrderBy(field string, direction query.Direction) *QueryBuilder {
	q.orderBy.orderBy = append(q.orderBy.orderBy, order{field: field, direction: direction})
	return q
}

// OrderByAll appends the clauses of o.
func (q *QueryBuilder) OrderByAll(o *OrderByBuilder) *QueryBuilder {
	q.orderBy.orderBy = append(q.orderBy.orderBy, o.orderBy...)
	return q
}

func (q *QueryBuilder) Limit(limit int) *QueryBuilder {
	q.limit = &limit
	return q
}

// Offset skips the first offset rows.
func (q *QueryBuilder) Offset(offset int) *QueryBuilder {
	q.offset = &offset
	return q
}

// Build resolves every name and returns the query.
func (q *QueryBuilder) Build() (*query.Query, error) {
	if q.err != nil {
		return nil, q.err
	}
	r := q.resolver()
	out := query.New().From(q.from).SetDistinct(q.distinct)

	for _, name := range q.columns {
		item, err := r.resolve(name)
		if err != nil {
			return nil, err
		}
		out.Select(item)
		r.selected = append(r.selected, item)
	}
	for _, a := range q.aggs {
		item, err := a.item(r)
		if err != nil {
			return nil, err
		}
		out.Select(item)
		r.selected = append(r.selected, item)
	}
	if len(q.columns) == 0 && len(q.aggs) == 0 {
		out.SelectAll()
	}

	where, err := q.where.build(r)
	if err != nil {
		return nil, err
	}
	out.Where(where...)

	for _, name := range q.groupBy {
		item, err := r.resolve(name)
		if err != nil {
			return nil, err
		}
		out.GroupBy(item)
	}

	r.aliases = true
	having, err := q.having.build(r)
	if err != nil {
		return nil, err
	}
	out.Having(having...)

	for _, o := range q.orderBy.orderBy {
		item, err := r.resolve(o.field)
		if err != nil {
			return nil, err
		}
		out.OrderBy(&query.OrderByItem{Item: item, Direction: o.direction})
	}

	if q.limit != nil {
		out.SetMaxRows(*q.limit)
	}
	if q.offset != nil {
		out.SetFirstRow(*q.offset + 1)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *QueryBuilder) resolver() *resolver {
	return &resolver{leaves: q.leaves}
}

// resolver maps field names onto select items of the query being built.
type resolver struct {
	leaves   []*query.FromItem
	selected []*query.SelectItem
	aliases  bool
}

func (r *resolver) resolve(field string) (*query.SelectItem, error) {
	if r.aliases {
		for _, item := range r.selected {
			if item.Alias != "" && item.Alias == field {
				return item, nil
			}
		}
	}

	qualifier, name := "", field
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		qualifier, name = field[:i], field[i+1:]
	}
	var found *query.SelectItem
	for _, leaf := range r.leaves {
		if qualifier != "" && qualifier != leaf.Alias && qualifier != leaf.Table.Name() {
			continue
		}
		c, err := leaf.Table.Column(name)
		if err != nil {
			if errors.Is(err, schema.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if found != nil {
			return nil, fmt.Errorf("%w: field %s is ambiguous", query.ErrInvalidQuery, field)
		}
		found = query.NewColumnItem(c)
		if leaf.Alias != "" || len(r.leaves) > 1 {
			found.Of(leaf)
		}
	}
	if found == nil {
		return nil, &schema.NotFoundError{Kind: "column", Name: field}
	}
	return found, nil
}
