package builder

import (
	"github.com/satishbabariya/relq/query"
)

type aggregate struct {
	function query.FunctionType
	field    string
	alias    string
}

func (a aggregate) item(r *resolver) (*query.SelectItem, error) {
	if a.field == "" {
		return query.CountAll().As(a.alias), nil
	}
	item, err := r.resolve(a.field)
	if err != nil {
		return nil, err
	}
	return item.WithFunction(a.function).As(a.alias), nil
}

func (q *QueryBuilder) aggregate(fn query.FunctionType, field, alias string) *QueryBuilder {
	q.aggs = append(q.aggs, aggregate{function: fn, field: field, alias: alias})
	return q
}

// Count adds COUNT(*). Aggregates are selected after the plain columns.
func (q *QueryBuilder) Count(alias string) *QueryBuilder {
	return q.aggregate(query.FunctionCount, "", alias)
}

func (q *QueryBuilder) Sum(field, alias string) *QueryBuilder {
	return q.aggregate(query.FunctionSum, field, alias)
}

func (q *QueryBuilder) Avg(field, alias string) *QueryBuilder {
	return q.aggregate(query.FunctionAvg, field, alias)
}

func (q *QueryBuilder) Min(field, alias string) *QueryBuilder {
	return q.aggregate(query.FunctionMin, field, alias)
}

func (q *QueryBuilder) Max(field, alias string) *QueryBuilder {
	return q.aggregate(query.FunctionMax, field, alias)
}

func (q *QueryBuilder) GroupBy(fields ...string) *QueryBuilder {
	q.groupBy = append(q.groupBy, fields...)
	return q
}

// Having filters groups. Fields may name aggregate aliases.
func (q *QueryBuilder) Having(having *WhereBuilder) *QueryBuilder {
	q.having = having
	return q
}
