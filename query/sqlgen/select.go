package sqlgen

import (
	"fmt"

	"github.com/satishbabariya/relq/query"
)

// Generate renders a whole query. Every select item is aliased with its
// label so that the query can be nested. It fails with ErrUnsupported when
// any part of q has no equivalent in the dialect.
func (g *Generator) Generate(q *query.Query) (*Query, error) {
	w := g.writer(nil)
	if err := w.selectQuery(q); err != nil {
		return nil, err
	}
	return w.query(), nil
}

func (w *writer) selectQuery(q *query.Query) error {
	if q.IsDistinct() && w.g.dialect.NullsSmallest {
		for _, o := range q.OrderByItems() {
			if !o.IsAscending() {
				return fmt.Errorf("%w: DISTINCT with descending ORDER BY", ErrUnsupported)
			}
		}
	}

	// Each query is its own scope. From items are labelled first so that
	// select items can refer to them.
	outer := w.leaves
	w.leaves = nil
	var from []func() error
	for _, f := range q.FromItems() {
		for _, leaf := range f.Leaves() {
			if err := w.label(leaf); err != nil {
				return err
			}
		}
		from = append(from, func() error { return w.from(f) })
	}
	defer func() { w.leaves = outer }()

	w.write("SELECT ")
	if q.IsDistinct() {
		w.write("DISTINCT ")
	}
	for i, item := range q.SelectItems() {
		if i > 0 {
			w.write(", ")
		}
		if err := w.item(item); err != nil {
			return err
		}
		w.write(" AS " + w.quote(item.Label()))
	}

	if len(from) > 0 {
		w.write(" FROM ")
		for i, render := range from {
			if i > 0 {
				w.write(", ")
			}
			if err := render(); err != nil {
				return err
			}
		}
	}
	if err := w.where(" WHERE ", q.WhereItems()); err != nil {
		return err
	}
	if groupBy := q.GroupByItems(); len(groupBy) > 0 {
		w.write(" GROUP BY ")
		for i, g := range groupBy {
			if i > 0 {
				w.write(", ")
			}
			if err := w.item(g.Item); err != nil {
				return err
			}
		}
	}
	if err := w.where(" HAVING ", q.HavingItems()); err != nil {
		return err
	}
	if err := w.orderBy(q.OrderByItems()); err != nil {
		return err
	}
	maxRows, ok := q.MaxRows()
	if !ok {
		maxRows = -1
	}
	w.limit(q.FirstRow(), maxRows)
	return nil
}

func (w *writer) label(leaf *query.FromItem) error {
	label := leaf.Label()
	if label == "" {
		return fmt.Errorf("%w: from item without a name", ErrUnsupported)
	}
	for other, l := range w.labels {
		if l == label && containsLeaf(w.leaves, other) {
			return fmt.Errorf("%w: %s appears twice without distinct aliases", ErrUnsupported, label)
		}
	}
	w.labels[leaf] = label
	w.leaves = append(w.leaves, leaf)
	return nil
}

func containsLeaf(leaves []*query.FromItem, leaf *query.FromItem) bool {
	for _, l := range leaves {
		if l == leaf {
			return true
		}
	}
	return false
}

func (w *writer) from(f *query.FromItem) error {
	switch {
	case f.IsJoin():
		if f.Join == query.JoinRight && !w.g.rightJoin {
			return fmt.Errorf("%w: RIGHT JOIN", ErrUnsupported)
		}
		if err := w.from(f.Left); err != nil {
			return err
		}
		w.write(" " + string(f.Join) + " JOIN ")
		if err := w.from(f.Right); err != nil {
			return err
		}
		on := f.JoinConditions()
		if len(on) == 0 {
			w.write(" ON 1 = 1")
			return nil
		}
		return w.where(" ON ", on)
	case f.IsTable():
		w.write(w.quote(f.Table.Name()) + " " + w.quote(w.labels[f]))
		return nil
	case f.IsSubQuery():
		w.write("(")
		if err := w.selectQuery(f.SubQuery); err != nil {
			return err
		}
		w.write(") " + w.quote(w.labels[f]))
		return nil
	}
	return fmt.Errorf("%w: from expression %q", ErrUnsupported, f.Expression)
}

// orderBy sorts NULL before every value in both directions, the same way
// the in-memory sort does.
func (w *writer) orderBy(items []*query.OrderByItem) error {
	if len(items) == 0 {
		return nil
	}
	w.write(" ORDER BY ")
	for i, o := range items {
		if i > 0 {
			w.write(", ")
		}
		dir := " ASC"
		if !o.IsAscending() {
			dir = " DESC"
		}
		native := o.IsAscending() == w.g.dialect.NullsSmallest
		if !native && w.g.dialect.NullsSmallest {
			if err := w.item(o.Item); err != nil {
				return err
			}
			w.write(" IS NULL DESC, ")
		}
		if err := w.item(o.Item); err != nil {
			return err
		}
		w.write(dir)
		if !native && !w.g.dialect.NullsSmallest {
			w.write(" NULLS FIRST")
		}
	}
	return nil
}
