package query

import (
	"strings"

	"github.com/satishbabariya/relq/schema"
)

// FromItem is one source of rows in a query: a table, an explicit join of two
// from items, a relationship-derived join or a sub-query.
type FromItem struct {
	Table      *schema.Table
	Alias      string
	SubQuery   *Query
	Expression string

	Join         JoinType
	Left         *FromItem
	Right        *FromItem
	On           []*FilterItem
	Relationship *schema.Relationship
}

// NewTableFrom reads rows from a table.
func NewTableFrom(t *schema.Table) *FromItem {
	return &FromItem{Table: t}
}

// NewSubQueryFrom reads rows from a nested query.
func NewSubQueryFrom(q *Query, alias string) *FromItem {
	return &FromItem{SubQuery: q, Alias: alias}
}

// NewJoin joins two from items on the given conditions.
func NewJoin(join JoinType, left, right *FromItem, on ...*FilterItem) *FromItem {
	return &FromItem{Join: join, Left: left, Right: right, On: on}
}

// NewRelationshipJoin joins the primary table (left) with the foreign table
// (right) of a relationship. The on-conditions are implied by the column pairs.
func NewRelationshipJoin(join JoinType, rel *schema.Relationship) *FromItem {
	return &FromItem{
		Join:         join,
		Left:         NewTableFrom(rel.PrimaryTable()),
		Right:        NewTableFrom(rel.ForeignTable()),
		Relationship: rel,
	}
}

// As sets the alias. It mutates the receiver and is meant for query construction.
func (f *FromItem) As(alias string) *FromItem {
	f.Alias = alias
	return f
}

// IsTable reports whether the item reads a single physical table.
func (f *FromItem) IsTable() bool { return f.Table != nil && f.Join == "" }

// IsJoin reports whether the item joins two from items.
func (f *FromItem) IsJoin() bool { return f.Join != "" }

// IsSubQuery reports whether the item reads a nested query.
func (f *FromItem) IsSubQuery() bool { return f.SubQuery != nil && f.Join == "" }

// JoinConditions returns the on-conditions of a join. For relationship joins
// they are derived from the primary/foreign column pairs.
func (f *FromItem) JoinConditions() []*FilterItem {
	if len(f.On) > 0 || f.Relationship == nil {
		return f.On
	}
	primary := f.Relationship.PrimaryColumns()
	foreign := f.Relationship.ForeignColumns()
	conditions := make([]*FilterItem, len(primary))
	for i := range primary {
		left := NewColumnItem(primary[i]).Of(f.Left)
		right := NewColumnItem(foreign[i]).Of(f.Right)
		conditions[i] = NewFilter(left, OpEquals, right)
	}
	return conditions
}

// Leaves returns the table and sub-query items underneath f, left to right.
func (f *FromItem) Leaves() []*FromItem {
	if !f.IsJoin() {
		return []*FromItem{f}
	}
	return append(f.Left.Leaves(), f.Right.Leaves()...)
}

// Contains reports whether other is f or nested inside f.
func (f *FromItem) Contains(other *FromItem) bool {
	if f == other {
		return true
	}
	if f.IsJoin() {
		return f.Left.Contains(other) || f.Right.Contains(other)
	}
	return false
}

// Label returns the alias, falling back to the table name.
func (f *FromItem) Label() string {
	if f.Alias != "" {
		return f.Alias
	}
	if f.Table != nil {
		return f.Table.Name()
	}
	return ""
}

// String renders the item as it would appear in a FROM clause.
func (f *FromItem) String() string { return f.ToSQL() }

// ToSQL renders the item as it would appear in a FROM clause.
func (f *FromItem) ToSQL() string {
	var sb strings.Builder
	switch {
	case f.IsJoin():
		sb.WriteString(f.Left.ToSQL())
		sb.WriteByte(' ')
		sb.WriteString(string(f.Join))
		sb.WriteString(" JOIN ")
		sb.WriteString(f.Right.ToSQL())
		conditions := f.JoinConditions()
		if len(conditions) > 0 {
			sb.WriteString(" ON ")
			for i, c := range conditions {
				if i > 0 {
					sb.WriteString(" AND ")
				}
				sb.WriteString(c.ToSQL())
			}
		}
		return sb.String()
	case f.Table != nil:
		sb.WriteString(f.Table.QualifiedLabel())
	case f.SubQuery != nil:
		sb.WriteByte('(')
		sb.WriteString(f.SubQuery.ToSQL())
		sb.WriteByte(')')
	default:
		sb.WriteString(f.Expression)
	}
	if f.Alias != "" {
		sb.WriteByte(' ')
		sb.WriteString(f.Alias)
	}
	return sb.String()
}

func (f *FromItem) collectFilters(dst []*FilterItem) []*FilterItem {
	if !f.IsJoin() {
		return dst
	}
	dst = f.Left.collectFilters(dst)
	dst = f.Right.collectFilters(dst)
	return append(dst, f.On...)
}
