package executor

import (
	"slices"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
)

type sortKey struct {
	read       func(*dataset.Row) (any, error)
	compare    func(a, b any) int
	descending bool
}

// OrderBy sorts ds by the given keys. The sort is stable, nulls come first in
// both directions and each key compares values according to its expected
// column type.
func OrderBy(ds dataset.DataSet, orderBy []*query.OrderByItem) (dataset.DataSet, error) {
	if len(orderBy) == 0 {
		return ds, nil
	}
	defer ds.Close()

	keys := make([]sortKey, len(orderBy))
	for i, o := range orderBy {
		read, err := getter(ds.Header(), o.Item)
		if err != nil {
			return nil, err
		}
		keys[i] = sortKey{
			read:       read,
			compare:    Comparator(o.Item.ExpectedType()),
			descending: !o.IsAscending(),
		}
	}

	type entry struct {
		row    *dataset.Row
		values []any
	}
	var entries []entry
	for ds.Next() {
		row := ds.Row()
		values := make([]any, len(keys))
		for i, k := range keys {
			v, err := k.read(row)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		entries = append(entries, entry{row: row, values: values})
	}
	if err := ds.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		for i, k := range keys {
			if c := compareNullsFirst(a.values[i], b.values[i], k); c != 0 {
				return c
			}
		}
		return 0
	})

	rows := make([]*dataset.Row, len(entries))
	for i, e := range entries {
		rows[i] = e.row
	}
	return dataset.NewInMemory(ds.Header(), rows), nil
}

func compareNullsFirst(a, b any, k sortKey) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	c := k.compare(a, b)
	if k.descending {
		return -c
	}
	return c
}
