package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// plan is the execution strategy of a validated query, derived without
// touching the backend.
type plan struct {
	query    *query.Query
	firstRow int
	maxRows  int // -1 for no limit

	// countTable is set when the query is a single COUNT(*) over one table
	// whose filters the backend may evaluate.
	countTable *query.FromItem

	// single is set when one table is read with bare columns and without
	// grouping or ordering.
	single   *query.FromItem
	pkColumn *schema.Column
	pkValue  any

	leaves    []*query.FromItem
	columns   map[*query.FromItem][]*schema.Column
	pushed    map[*query.FromItem][]*query.FilterItem
	remaining []*query.FilterItem
	grouped   []*query.SelectItem
}

func newPlan(q *query.Query) *plan {
	p := &plan{
		query:    q,
		firstRow: q.FirstRow(),
		maxRows:  -1,
		columns:  make(map[*query.FromItem][]*schema.Column),
		pushed:   make(map[*query.FromItem][]*query.FilterItem),
	}
	if n, ok := q.MaxRows(); ok {
		p.maxRows = n
	}

	from := q.FromItems()
	for _, f := range from {
		p.leaves = append(p.leaves, f.Leaves()...)
	}
	refs := referencedItems(q)
	for _, leaf := range p.leaves {
		if leaf.IsTable() {
			p.columns[leaf] = neededColumns(leaf, refs)
		}
	}

	where := q.WhereItems()
	if len(from) == 1 && from[0].IsTable() {
		if isCountOnly(q) && evaluable(where) {
			p.countTable = from[0]
		}
		if isSimpleSelect(q) {
			p.single = from[0]
			p.pkColumn, p.pkValue = primaryKeyEquality(from[0], where)
		}
	}

	topLevel := make(map[*query.FromItem]bool, len(from))
	for _, f := range from {
		if !f.IsJoin() {
			topLevel[f] = true
		}
	}
	for _, w := range where {
		if leaf := ownerLeaf(w, p.leaves); leaf != nil && topLevel[leaf] && evaluable([]*query.FilterItem{w}) {
			p.pushed[leaf] = append(p.pushed[leaf], w)
			continue
		}
		p.remaining = append(p.remaining, w)
	}

	if q.IsAggregated() {
		p.grouped = aggregatedItems(q)
	}
	return p
}

func isCountOnly(q *query.Query) bool {
	items := q.SelectItems()
	return len(items) == 1 && items[0].IsCountAll() &&
		len(q.GroupByItems()) == 0 && len(q.HavingItems()) == 0
}

func isSimpleSelect(q *query.Query) bool {
	if len(q.GroupByItems()) > 0 || len(q.HavingItems()) > 0 || len(q.OrderByItems()) > 0 {
		return false
	}
	for _, item := range q.SelectItems() {
		if !item.IsBareColumn() {
			return false
		}
	}
	return true
}

// primaryKeyEquality returns the primary key column and literal value when
// where is exactly one equality on the single-column primary key of the
// leaf's table.
func primaryKeyEquality(leaf *query.FromItem, where []*query.FilterItem) (*schema.Column, any) {
	if len(where) != 1 {
		return nil, nil
	}
	w := where[0]
	if w.IsCompound() || w.Item == nil || w.Operator != query.OpEquals || !w.Item.IsBareColumn() {
		return nil, nil
	}
	col := w.Item.Column
	if !col.IsPrimaryKey() || col.Table() != leaf.Table || len(leaf.Table.PrimaryKeys()) != 1 {
		return nil, nil
	}
	if w.Item.From != nil && w.Item.From != leaf {
		return nil, nil
	}
	switch w.Operand.(type) {
	case nil, *query.SelectItem, *query.Parameter, []any:
		return nil, nil
	}
	return col, w.Operand
}

// evaluable reports whether filters can be evaluated row by row, without
// free-form expressions or unbound parameters.
func evaluable(filters []*query.FilterItem) bool {
	for _, f := range filters {
		if len(f.Parameters()) > 0 || hasExpression(f) {
			return false
		}
	}
	return true
}

func hasExpression(f *query.FilterItem) bool {
	if f.IsCompound() {
		return slices.ContainsFunc(f.Children, hasExpression)
	}
	if f.Item == nil {
		return true
	}
	for _, item := range f.SelectItems() {
		if item.Expression != "" && !item.IsCountAll() {
			return true
		}
	}
	return false
}

// ownerLeaf returns the single leaf every item of f reads from, or nil.
func ownerLeaf(f *query.FilterItem, leaves []*query.FromItem) *query.FromItem {
	var owner *query.FromItem
	items := f.SelectItems()
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		leaf := leafOf(item, leaves)
		if leaf == nil || (owner != nil && owner != leaf) {
			return nil
		}
		owner = leaf
	}
	return owner
}

func leafOf(item *query.SelectItem, leaves []*query.FromItem) *query.FromItem {
	if item.From != nil {
		if slices.Contains(leaves, item.From) {
			return item.From
		}
		return nil
	}
	if item.Column == nil {
		return nil
	}
	var found *query.FromItem
	for _, leaf := range leaves {
		if leaf.IsTable() && leaf.Table == item.Column.Table() {
			if found != nil {
				return nil
			}
			found = leaf
		}
	}
	return found
}

// referencedItems lists every select item the query reads, in clause order.
func referencedItems(q *query.Query) []*query.SelectItem {
	items := q.SelectItems()
	for _, f := range q.Filters() {
		items = append(items, f.SelectItems()...)
	}
	for _, f := range q.FromItems() {
		items = append(items, joinItems(f)...)
	}
	for _, g := range q.GroupByItems() {
		items = append(items, g.Item)
	}
	for _, o := range q.OrderByItems() {
		items = append(items, o.Item)
	}
	return items
}

func joinItems(f *query.FromItem) []*query.SelectItem {
	if !f.IsJoin() {
		return nil
	}
	items := append(joinItems(f.Left), joinItems(f.Right)...)
	for _, c := range f.JoinConditions() {
		items = append(items, c.SelectItems()...)
	}
	return items
}

// neededColumns returns the columns of leaf any clause reads, in table
// order. A table nobody reads a column of still contributes its row count,
// so its first primary key (or first column) is read.
func neededColumns(leaf *query.FromItem, refs []*query.SelectItem) []*schema.Column {
	seen := make(map[*schema.Column]bool)
	for _, item := range refs {
		col := item.Column
		if col == nil || col.Table() != leaf.Table {
			continue
		}
		if item.From != nil && item.From != leaf {
			continue
		}
		seen[col] = true
	}
	var cols []*schema.Column
	for _, c := range leaf.Table.Columns() {
		if seen[c] {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		if pks := leaf.Table.PrimaryKeys(); len(pks) > 0 {
			cols = append(cols, pks[0])
		} else if leaf.Table.ColumnCount() > 0 {
			cols = append(cols, leaf.Table.ColumnAt(0))
		}
	}
	return cols
}

// aggregatedItems returns the items grouping has to compute: the select
// list, then whatever HAVING and ORDER BY need on top of it.
func aggregatedItems(q *query.Query) []*query.SelectItem {
	var out []*query.SelectItem
	add := func(item *query.SelectItem) {
		for _, existing := range out {
			if existing.EqualIgnoreAlias(item) {
				return
			}
		}
		out = append(out, item)
	}
	for _, item := range q.SelectItems() {
		add(item)
	}
	for _, h := range q.HavingItems() {
		for _, item := range h.SelectItems() {
			add(item)
		}
	}
	for _, o := range q.OrderByItems() {
		add(o.Item)
	}
	return out
}

// String renders the plan one step per line.
func (p *plan) String() string {
	var sb strings.Builder
	q := p.query
	line := func(step, format string, args ...any) {
		fmt.Fprintf(&sb, "%-12s %s\n", step+":", fmt.Sprintf(format, args...))
	}

	line("query", "%s", q.ToSQL())
	line("native", "offered to backend")
	if p.maxRows == 0 {
		line("empty", "max rows is 0, backend not queried")
		return sb.String()
	}
	if p.countTable != nil {
		line("count", "%s, falls back to scan", p.countTable.Table.QualifiedLabel())
	}
	if p.single != nil {
		if p.pkColumn != nil {
			line("lookup", "%s = %s, falls back to scan", p.pkColumn.QualifiedLabel(), query.FormatOperand(p.pkValue))
		}
		line("scan", "%s %s", p.single.Table.QualifiedLabel(), columnNames(p.columns[p.single]))
		p.writeFilters(line, "where", q.WhereItems())
		line("select", "%s", itemList(q.SelectItems()))
		p.writeTail(line)
		return sb.String()
	}

	for _, leaf := range p.leaves {
		if leaf.IsSubQuery() {
			line("subquery", "%s AS %s", leaf.SubQuery.ToSQL(), leaf.Alias)
		} else {
			line("scan", "%s %s", leaf.ToSQL(), columnNames(p.columns[leaf]))
		}
		p.writeFilters(line, "  filter", p.pushed[leaf])
	}
	for _, f := range q.FromItems() {
		if f.IsJoin() {
			line("join", "%s", f.ToSQL())
		}
	}
	if len(q.FromItems()) > 1 {
		line("product", "%d inputs", len(q.FromItems()))
	}
	p.writeFilters(line, "where", p.remaining)
	if len(p.grouped) > 0 {
		var keys []*query.SelectItem
		for _, g := range q.GroupByItems() {
			keys = append(keys, g.Item)
		}
		line("group", "by [%s] computing %s", itemList(keys), itemList(p.grouped))
		p.writeFilters(line, "having", q.HavingItems())
	}
	if order := q.OrderByItems(); len(order) > 0 {
		parts := make([]string, len(order))
		for i, o := range order {
			parts[i] = o.String()
		}
		line("order", "%s", strings.Join(parts, ", "))
	}
	line("select", "%s", itemList(q.SelectItems()))
	p.writeTail(line)
	return sb.String()
}

func (p *plan) writeFilters(line func(string, string, ...any), step string, filters []*query.FilterItem) {
	for _, f := range filters {
		line(step, "%s", f.ToSQL())
	}
}

func (p *plan) writeTail(line func(string, string, ...any)) {
	if p.query.IsDistinct() {
		line("distinct", "full row")
	}
	if p.firstRow > 1 || p.maxRows >= 0 {
		line("paginate", "first=%d max=%d", p.firstRow, p.maxRows)
	}
}

func columnNames(cols []*schema.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func itemList(items []*query.SelectItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.ToSQL(true)
	}
	return strings.Join(parts, ", ")
}
