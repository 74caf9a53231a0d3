// Package parser turns the SQL subset understood by relq into a query.Query
// resolved against a schema:
//
//	SELECT [DISTINCT] items FROM sources [WHERE ...] [GROUP BY ...]
//	[HAVING ...] [ORDER BY ... [ASC|DESC]] [LIMIT n] [OFFSET n]
//
// Sources are tables, aliased sub-queries and [INNER|LEFT|RIGHT] JOIN ... ON
// chains. A ? marks a parameter to be bound when the query is executed.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// ErrSyntax is wrapped by every error about the shape of the input.
var ErrSyntax = errors.New("syntax error")

// Parse parses sql and resolves its tables and columns against s.
func Parse(sql string, s *schema.Schema) (*query.Query, error) {
	stmt, err := sqlParser.ParseString("", sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return (&converter{schema: s}).statement(stmt)
}

// MustParse is like Parse but panics on failure.
func MustParse(sql string, s *schema.Schema) *query.Query {
	q, err := Parse(sql, s)
	if err != nil {
		panic(err)
	}
	return q
}

type converter struct {
	schema   *schema.Schema
	leaves   []*query.FromItem
	selected []*query.SelectItem
}

func (c *converter) statement(stmt *statement) (*query.Query, error) {
	q := query.New().SetDistinct(stmt.Distinct)

	for _, f := range stmt.From {
		from, err := c.from(f)
		if err != nil {
			return nil, err
		}
		q.From(from)
	}

	for _, item := range stmt.Items {
		if item.Star {
			q.SelectAll()
			continue
		}
		si, err := c.value(item.Value, false)
		if err != nil {
			return nil, err
		}
		if item.Alias != "" {
			si = si.Clone().As(unquoteIdent(item.Alias))
		}
		q.Select(si)
	}
	c.selected = q.SelectItems()

	if stmt.Where != nil {
		where, err := c.conjuncts(stmt.Where, false)
		if err != nil {
			return nil, err
		}
		q.Where(where...)
	}
	for _, g := range stmt.GroupBy {
		item, err := c.value(g, true)
		if err != nil {
			return nil, err
		}
		q.GroupBy(item)
	}
	if stmt.Having != nil {
		having, err := c.conjuncts(stmt.Having, true)
		if err != nil {
			return nil, err
		}
		q.Having(having...)
	}
	for _, o := range stmt.OrderBy {
		item, err := c.value(o.Value, true)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(o.Direction, "DESC") {
			q.OrderBy(query.Desc(item))
		} else {
			q.OrderBy(query.Asc(item))
		}
	}
	if stmt.Limit != nil {
		q.SetMaxRows(*stmt.Limit)
	}
	if stmt.Offset != nil {
		q.SetFirstRow(*stmt.Offset + 1)
	}
	return q, nil
}

func (c *converter) from(f *fromExpr) (*query.FromItem, error) {
	cur, err := c.source(f.Source)
	if err != nil {
		return nil, err
	}
	for _, j := range f.Joins {
		right, err := c.source(j.Right)
		if err != nil {
			return nil, err
		}
		on, err := c.conjuncts(j.On, false)
		if err != nil {
			return nil, err
		}
		joinType := query.JoinInner
		switch strings.ToUpper(j.Type) {
		case "LEFT":
			joinType = query.JoinLeft
		case "RIGHT":
			joinType = query.JoinRight
		}
		cur = query.NewJoin(joinType, cur, right, on...)
	}
	return cur, nil
}

func (c *converter) source(src *tableSource) (*query.FromItem, error) {
	alias := unquoteIdent(src.Alias)
	var leaf *query.FromItem
	if src.Sub != nil {
		inner, err := (&converter{schema: c.schema}).statement(src.Sub)
		if err != nil {
			return nil, err
		}
		if alias == "" {
			return nil, fmt.Errorf("%w at %s: sub-query needs an alias", ErrSyntax, src.Pos)
		}
		leaf = query.NewSubQueryFrom(inner, alias)
	} else {
		t, err := c.schema.ResolveTable(joinIdent(src.Name))
		if err != nil {
			return nil, err
		}
		leaf = query.NewTableFrom(t).As(alias)
	}
	c.leaves = append(c.leaves, leaf)
	return leaf, nil
}

// conjuncts splits a top-level AND into separate filters.
func (c *converter) conjuncts(cond *orCondition, aliases bool) ([]*query.FilterItem, error) {
	if len(cond.And) == 1 {
		out := make([]*query.FilterItem, 0, len(cond.And[0].Terms))
		for _, term := range cond.And[0].Terms {
			f, err := c.condition(term, aliases)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	}
	f, err := c.or(cond, aliases)
	if err != nil {
		return nil, err
	}
	return []*query.FilterItem{f}, nil
}

func (c *converter) or(cond *orCondition, aliases bool) (*query.FilterItem, error) {
	children := make([]*query.FilterItem, 0, len(cond.And))
	for _, and := range cond.And {
		terms := make([]*query.FilterItem, 0, len(and.Terms))
		for _, term := range and.Terms {
			f, err := c.condition(term, aliases)
			if err != nil {
				return nil, err
			}
			terms = append(terms, f)
		}
		if len(terms) == 1 {
			children = append(children, terms[0])
		} else {
			children = append(children, query.And(terms...))
		}
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return query.Or(children...), nil
}

func (c *converter) condition(cond *condition, aliases bool) (*query.FilterItem, error) {
	if cond.Group != nil {
		return c.or(cond.Group, aliases)
	}
	p := cond.Predicate
	left, err := c.value(p.Left, aliases)
	if err != nil {
		return nil, err
	}
	switch {
	case p.IsNull != nil:
		if p.IsNull.Not {
			return query.NewFilter(left, query.OpIsNotNull, nil), nil
		}
		return query.NewFilter(left, query.OpIsNull, nil), nil
	case p.In != nil:
		values := make([]any, len(p.In.Values))
		for i, v := range p.In.Values {
			if values[i], err = c.operand(v, aliases); err != nil {
				return nil, err
			}
		}
		op := query.OpIn
		if p.In.Not {
			op = query.OpNotIn
		}
		return query.NewFilter(left, op, values), nil
	case p.Like != nil:
		pattern, err := c.operand(p.Like.Pattern, aliases)
		if err != nil {
			return nil, err
		}
		op := query.OpLike
		if p.Like.Not {
			op = query.OpNotLike
		}
		return query.NewFilter(left, op, pattern), nil
	}
	right, err := c.operand(p.Compare.Right, aliases)
	if err != nil {
		return nil, err
	}
	op, err := comparisonOperator(p.Compare.Op)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrSyntax, p.Pos, err)
	}
	return query.NewFilter(left, op, right), nil
}

func comparisonOperator(op string) (query.OperatorType, error) {
	switch op {
	case "=":
		return query.OpEquals, nil
	case "<>", "!=":
		return query.OpDifferentFrom, nil
	case "<":
		return query.OpLessThan, nil
	case ">":
		return query.OpGreaterThan, nil
	case "<=":
		return query.OpLessThanOrEqual, nil
	case ">=":
		return query.OpGreaterThanOrEqual, nil
	}
	return "", fmt.Errorf("unknown operator %q", op)
}

func (c *converter) operand(o *operand, aliases bool) (any, error) {
	switch {
	case o.Param:
		return query.NewParameter(), nil
	case o.Null:
		return nil, nil
	case o.Bool != nil:
		return strings.EqualFold(*o.Bool, "TRUE"), nil
	case o.Number != nil:
		return parseNumber(*o.Number)
	case o.String != nil:
		return unquoteString(*o.String), nil
	}
	return c.value(o.Value, aliases)
}

// literal is an operand that must not depend on rows, as in function
// parameters.
func (c *converter) literal(o *operand) (any, error) {
	if o.Param || o.Value != nil {
		return nil, fmt.Errorf("%w: function parameters must be literals", ErrSyntax)
	}
	return c.operand(o, false)
}

func (c *converter) value(v *valueExpr, aliases bool) (*query.SelectItem, error) {
	if v.Call == nil {
		return c.column(v.Column, aliases)
	}
	call := v.Call
	fn, ok := query.ParseFunctionType(call.Name)
	if !ok {
		return nil, fmt.Errorf("%w at %s: unknown function %s", ErrSyntax, v.Pos, call.Name)
	}
	params := make([]any, len(call.Params))
	for i, p := range call.Params {
		var err error
		if params[i], err = c.literal(p); err != nil {
			return nil, err
		}
	}
	if call.Star {
		if fn != query.FunctionCount {
			return nil, fmt.Errorf("%w at %s: %s(*) is not supported", ErrSyntax, v.Pos, fn)
		}
		return query.CountAll(), nil
	}
	arg, err := c.value(call.Arg, aliases)
	if err != nil {
		return nil, err
	}
	if arg.Function != "" {
		return nil, fmt.Errorf("%w at %s: nested function %s", ErrSyntax, v.Pos, fn)
	}
	return arg.WithFunction(fn, params...), nil
}

// column resolves a possibly qualified column reference. With aliases set,
// an unqualified name may also denote an aliased select item.
func (c *converter) column(parts []string, aliases bool) (*query.SelectItem, error) {
	for i := range parts {
		parts[i] = unquoteIdent(parts[i])
	}
	label := strings.Join(parts, ".")
	if aliases && len(parts) == 1 {
		for _, item := range c.selected {
			if item.Alias != "" && strings.EqualFold(item.Alias, parts[0]) {
				return item, nil
			}
		}
	}

	name := parts[len(parts)-1]
	qualifier := strings.Join(parts[:len(parts)-1], ".")

	var found []*query.SelectItem
	for _, leaf := range c.leaves {
		viaAlias := false
		if qualifier != "" {
			var ok bool
			if ok, viaAlias = c.qualifies(leaf, qualifier); !ok {
				continue
			}
		}
		item := c.lookup(leaf, name, viaAlias)
		if item != nil {
			found = append(found, item)
		}
	}
	switch len(found) {
	case 0:
		return nil, &schema.NotFoundError{Kind: "column", Name: label}
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w: column %s is ambiguous", query.ErrInvalidQuery, label)
}

// qualifies reports whether qualifier names leaf, and whether it did so
// through the alias.
func (c *converter) qualifies(leaf *query.FromItem, qualifier string) (ok, viaAlias bool) {
	if leaf.Alias != "" && strings.EqualFold(leaf.Alias, qualifier) {
		return true, true
	}
	if !leaf.IsTable() {
		return false, false
	}
	t := leaf.Table
	return strings.EqualFold(t.Name(), qualifier) || strings.EqualFold(t.QualifiedLabel(), qualifier), false
}

func (c *converter) lookup(leaf *query.FromItem, name string, viaAlias bool) *query.SelectItem {
	if leaf.IsSubQuery() {
		for _, inner := range leaf.SubQuery.SelectItems() {
			if strings.EqualFold(inner.Label(), name) {
				return query.NewSubQueryItem(leaf, inner)
			}
		}
		return nil
	}
	col, err := leaf.Table.Column(name)
	if err != nil {
		return nil
	}
	item := query.NewColumnItem(col)
	if viaAlias || c.tableCount(leaf.Table) > 1 {
		item.Of(leaf)
	}
	return item
}

func (c *converter) tableCount(t *schema.Table) int {
	n := 0
	for _, leaf := range c.leaves {
		if leaf.Table == t && leaf.IsTable() {
			n++
		}
	}
	return n
}

func parseNumber(s string) (any, error) {
	if !strings.Contains(s, ".") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %s", ErrSyntax, s)
	}
	return f, nil
}

func unquoteString(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, "''", "'")
}

func unquoteIdent(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '"' && s[len(s)-1] == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case s[0] == '`' && s[len(s)-1] == '`':
		return s[1 : len(s)-1]
	}
	return s
}

func joinIdent(parts []string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = unquoteIdent(p)
	}
	return strings.Join(out, ".")
}
