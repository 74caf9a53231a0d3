package query

// GroupByItem is one grouping expression.
type GroupByItem struct {
	Item *SelectItem
}

// NewGroupBy groups by the given select item.
func NewGroupBy(item *SelectItem) *GroupByItem {
	return &GroupByItem{Item: item}
}

// String renders the grouping expression.
func (g *GroupByItem) String() string { return g.Item.ToSQL(false) }

// OrderByItem is one sort key.
type OrderByItem struct {
	Item      *SelectItem
	Direction Direction
}

// Asc sorts ascending by item.
func Asc(item *SelectItem) *OrderByItem {
	return &OrderByItem{Item: item, Direction: Ascending}
}

// Desc sorts descending by item.
func Desc(item *SelectItem) *OrderByItem {
	return &OrderByItem{Item: item, Direction: Descending}
}

// IsAscending reports whether the sort direction is ascending.
func (o *OrderByItem) IsAscending() bool { return o.Direction != Descending }

// String renders the sort key.
func (o *OrderByItem) String() string {
	dir := Ascending
	if !o.IsAscending() {
		dir = Descending
	}
	return o.Item.ToSQL(false) + " " + string(dir)
}
