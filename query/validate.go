package query

import "github.com/satishbabariya/relq/schema"

// Validate checks that the clauses of q can be combined. Sub-queries are
// validated recursively.
func (q *Query) Validate() error {
	if len(q.selectItems) == 0 {
		return invalid("SELECT", "no select items")
	}
	if len(q.fromItems) == 0 {
		return invalid("FROM", "no from items")
	}
	if q.firstRow < 1 {
		return invalid("OFFSET", "first row must be 1 or greater, got %d", q.firstRow)
	}
	if n, ok := q.MaxRows(); ok && n < 0 {
		return invalid("LIMIT", "max rows must not be negative, got %d", n)
	}

	leaves := make([]*FromItem, 0, len(q.fromItems))
	for _, f := range q.fromItems {
		if err := validateFrom(f); err != nil {
			return err
		}
		leaves = append(leaves, f.Leaves()...)
	}

	for _, g := range q.groupBy {
		if g.Item.IsAggregate() {
			return invalid("GROUP BY", "aggregate %s cannot be grouped on", g.Item.ToSQL(false))
		}
	}
	if len(q.groupBy) == 0 {
		for _, f := range q.having {
			for _, item := range f.SelectItems() {
				if !item.IsAggregate() {
					return invalid("HAVING", "%s is neither aggregated nor grouped", item.ToSQL(false))
				}
			}
		}
	}

	for _, item := range q.referencedItems() {
		if err := checkItemSource(item, leaves); err != nil {
			return err
		}
	}
	return nil
}

func validateFrom(f *FromItem) error {
	switch {
	case f.IsJoin():
		if f.Left == nil || f.Right == nil {
			return invalid("FROM", "join is missing a side")
		}
		if len(f.JoinConditions()) == 0 {
			return invalid("FROM", "%s JOIN has no on-conditions", f.Join)
		}
		if err := validateFrom(f.Left); err != nil {
			return err
		}
		return validateFrom(f.Right)
	case f.SubQuery != nil:
		if f.Alias == "" {
			return invalid("FROM", "sub-query requires an alias")
		}
		return f.SubQuery.Validate()
	case f.Table == nil && f.Expression == "":
		return invalid("FROM", "empty from item")
	}
	return nil
}

// referencedItems returns every select item mentioned anywhere in the query.
func (q *Query) referencedItems() []*SelectItem {
	out := append([]*SelectItem(nil), q.selectItems...)
	for _, f := range q.Filters() {
		out = append(out, f.SelectItems()...)
	}
	for _, f := range q.fromItems {
		for _, c := range joinConditions(f) {
			out = append(out, c.SelectItems()...)
		}
	}
	for _, g := range q.groupBy {
		out = append(out, g.Item)
	}
	for _, o := range q.orderBy {
		out = append(out, o.Item)
	}
	return out
}

// joinConditions collects relationship-derived conditions, which are not
// part of Filters because they are not stored on the join.
func joinConditions(f *FromItem) []*FilterItem {
	if !f.IsJoin() {
		return nil
	}
	out := append(joinConditions(f.Left), joinConditions(f.Right)...)
	if len(f.On) == 0 {
		out = append(out, f.JoinConditions()...)
	}
	return out
}

func checkItemSource(item *SelectItem, leaves []*FromItem) error {
	if item.From != nil {
		if !containsFrom(leaves, item.From) {
			return invalid("SELECT", "%s refers to a from item that is not part of the query", item.ToSQL(false))
		}
		if item.Column != nil && item.From.Table != nil && item.From.Table != item.Column.Table() {
			return invalid("SELECT", "column %s does not belong to %s", item.Column.Name(), item.From.Label())
		}
		return nil
	}
	if item.Column == nil {
		return nil
	}
	n := countTable(leaves, item.Column.Table())
	switch {
	case n == 0:
		return invalid("SELECT", "table of column %s is not part of the query", item.Column.QualifiedLabel())
	case n > 1:
		return invalid("SELECT", "column %s is ambiguous: its table appears %d times", item.Column.QualifiedLabel(), n)
	}
	return nil
}

func containsFrom(leaves []*FromItem, f *FromItem) bool {
	for _, leaf := range leaves {
		if leaf == f {
			return true
		}
	}
	return false
}

func countTable(leaves []*FromItem, t *schema.Table) int {
	n := 0
	for _, leaf := range leaves {
		if leaf.Table == t {
			n++
		}
	}
	return n
}
