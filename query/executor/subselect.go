package executor

import (
	"fmt"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
)

// projection maps the items of an output header onto positions of an input
// header. Items missing from the input but computable from it, such as a
// scalar function over an available column, carry an evaluator instead.
type projection struct {
	header    *dataset.Header
	positions []int
	compute   map[int]func(row *dataset.Row) (any, error)
}

// SubSelect projects ds onto items, reordering, renaming or dropping columns
// and evaluating scalar functions that were not computed upstream. When the
// input holds the same column more than once, repeated requests for it are
// resolved by position.
func SubSelect(ds dataset.DataSet, items []*query.SelectItem) (dataset.DataSet, error) {
	p, err := newProjection(ds.Header(), items)
	if err != nil {
		_ = ds.Close()
		return nil, err
	}
	if p.isIdentity(ds.Header()) {
		return ds, nil
	}
	return dataset.NewIterator(p.header, func() (*dataset.Row, error) {
		if !ds.Next() {
			return nil, eof(ds)
		}
		return p.apply(ds.Row())
	}, ds.Close), nil
}

func newProjection(in *dataset.Header, items []*query.SelectItem) (*projection, error) {
	p := &projection{
		header:    dataset.NewHeader(items...),
		positions: make([]int, len(items)),
		compute:   map[int]func(*dataset.Row) (any, error){},
	}
	used := make(map[int]bool)
	for i, item := range items {
		pos := positionOf(in, item, used)
		if pos >= 0 {
			used[pos] = true
			p.positions[i] = pos
			continue
		}
		p.positions[i] = -1
		eval, err := evaluator(in, item, used)
		if err != nil {
			return nil, err
		}
		p.compute[i] = eval
	}
	return p, nil
}

func evaluator(in *dataset.Header, item *query.SelectItem, used map[int]bool) (func(*dataset.Row) (any, error), error) {
	if !item.IsScalarFunction() {
		return nil, fmt.Errorf("%s is not available in %s", item.ToSQL(false), in)
	}
	arg := item.WithoutFunction()
	pos := positionOf(in, arg, used)
	if pos >= 0 {
		return func(row *dataset.Row) (any, error) {
			return ApplyScalar(item.Function, row.Value(pos), item.FunctionParams)
		}, nil
	}
	inner, err := evaluator(in, arg, used)
	if err != nil {
		return nil, err
	}
	return func(row *dataset.Row) (any, error) {
		v, err := inner(row)
		if err != nil {
			return nil, err
		}
		return ApplyScalar(item.Function, v, item.FunctionParams)
	}, nil
}

func (p *projection) isIdentity(in *dataset.Header) bool {
	if len(p.compute) > 0 || len(p.positions) != in.Len() {
		return false
	}
	for i, pos := range p.positions {
		if pos != i || in.Item(i) != p.header.Item(i) {
			return false
		}
	}
	return true
}

func (p *projection) apply(row *dataset.Row) (*dataset.Row, error) {
	out := row.Project(p.header, p.positions)
	if len(p.compute) == 0 {
		return out, nil
	}
	values := out.Values()
	for i, eval := range p.compute {
		v, err := eval(row)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return dataset.NewStyledRow(p.header, values, out.Styles()), nil
}

// positionOf finds item in h at the strictest equivalence level that matches
// anything, preferring a position not used yet.
func positionOf(h *dataset.Header, item *query.SelectItem, used map[int]bool) int {
	levels := []func(a, b *query.SelectItem) bool{
		func(a, b *query.SelectItem) bool { return a == b },
		(*query.SelectItem).Equal,
		(*query.SelectItem).EqualIgnoreAlias,
		(*query.SelectItem).Matches,
	}
	for _, match := range levels {
		first := -1
		for i := 0; i < h.Len(); i++ {
			if !match(h.Item(i), item) {
				continue
			}
			if !used[i] {
				return i
			}
			if first < 0 {
				first = i
			}
		}
		if first >= 0 {
			return first
		}
	}
	return -1
}

// getter returns a function reading item from rows of h, either directly or by
// evaluating a scalar function over an available argument.
func getter(h *dataset.Header, item *query.SelectItem) (func(*dataset.Row) (any, error), error) {
	if pos := positionOf(h, item, nil); pos >= 0 {
		return func(row *dataset.Row) (any, error) { return row.Value(pos), nil }, nil
	}
	return evaluator(h, item, nil)
}
