package executor

import (
	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
)

// CarthesianProduct combines every row of every input, iterating the rightmost
// input fastest. Inputs after the first are buffered; the first is streamed.
// Filters are evaluated while combinations are generated, so the unfiltered
// product is never held in memory.
func CarthesianProduct(inputs []dataset.DataSet, filters ...*query.FilterItem) (dataset.DataSet, error) {
	headers := make([]*dataset.Header, len(inputs))
	for i, in := range inputs {
		headers[i] = in.Header()
	}
	if len(inputs) == 0 {
		return dataset.Empty(dataset.NewHeader()), nil
	}
	if len(inputs) == 1 {
		return Filter(inputs[0], filters...), nil
	}
	header := headers[0].Concat(headers[1:]...)

	first := inputs[0]
	buffered := make([][]*dataset.Row, len(inputs)-1)
	for i, in := range inputs[1:] {
		rows, err := dataset.Collect(in)
		if err != nil {
			closeAll(inputs)
			return nil, err
		}
		if len(rows) == 0 {
			closeAll(inputs)
			return dataset.Empty(header), nil
		}
		buffered[i] = rows
	}

	// pos holds the index into each buffered input; pos is nil until the
	// first row of the streamed input has been read.
	var (
		left *dataset.Row
		pos  []int
	)
	advance := func() bool {
		for i := len(pos) - 1; i >= 0; i-- {
			pos[i]++
			if pos[i] < len(buffered[i]) {
				return true
			}
			pos[i] = 0
		}
		return false
	}

	return dataset.NewIterator(header, func() (*dataset.Row, error) {
		for {
			if pos == nil || !advance() {
				if !first.Next() {
					return nil, eof(first)
				}
				left = first.Row()
				pos = make([]int, len(buffered))
			}
			values := left.Values()
			for i, p := range pos {
				values = append(values, buffered[i][p].Values()...)
			}
			row := dataset.NewRow(header, values...)
			ok, err := Matches(row, filters)
			if err != nil {
				return nil, err
			}
			if ok {
				return row, nil
			}
		}
	}, first.Close), nil
}

func closeAll(inputs []dataset.DataSet) {
	for _, in := range inputs {
		_ = in.Close()
	}
}

// Join applies an explicit join of left and right on the given conditions
// using a nested loop. Every match is emitted. LEFT and RIGHT joins pad the
// other side with nulls when a row has no match. The output lists the left
// columns followed by the right columns for every join type.
func Join(left, right dataset.DataSet, join query.JoinType, on []*query.FilterItem) (dataset.DataSet, error) {
	header := left.Header().Concat(right.Header())
	leftWidth := left.Header().Len()

	// outer is streamed and inner buffered; for RIGHT joins the roles swap.
	outer, inner := left, right
	if join == query.JoinRight {
		outer, inner = right, left
	}
	innerRows, err := dataset.Collect(inner)
	if err != nil {
		_ = outer.Close()
		return nil, err
	}

	combine := func(o, i *dataset.Row) *dataset.Row {
		values := make([]any, header.Len())
		l, r := o, i
		if join == query.JoinRight {
			l, r = i, o
		}
		if l != nil {
			copy(values, l.Values())
		}
		if r != nil {
			copy(values[leftWidth:], r.Values())
		}
		return dataset.NewRow(header, values...)
	}

	var (
		current *dataset.Row
		next    int
		matched bool
	)
	return dataset.NewIterator(header, func() (*dataset.Row, error) {
		for {
			if current == nil {
				if !outer.Next() {
					return nil, eof(outer)
				}
				current, next, matched = outer.Row(), 0, false
			}
			for next < len(innerRows) {
				row := combine(current, innerRows[next])
				next++
				ok, err := Matches(row, on)
				if err != nil {
					return nil, err
				}
				if ok {
					matched = true
					return row, nil
				}
			}
			o := current
			current = nil
			if !matched && join != query.JoinInner {
				return combine(o, nil), nil
			}
		}
	}, outer.Close), nil
}
