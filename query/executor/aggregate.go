package executor

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

type aggregator interface {
	add(v any)
	result() any
}

func newAggregator(item *query.SelectItem) (aggregator, error) {
	switch item.Function {
	case query.FunctionCount:
		return &countAggregator{}, nil
	case query.FunctionSum:
		return &sumAggregator{integral: item.ExpectedType().Kind() == schema.KindInt}, nil
	case query.FunctionAvg:
		return &avgAggregator{}, nil
	case query.FunctionMin:
		return &extremeAggregator{want: -1}, nil
	case query.FunctionMax:
		return &extremeAggregator{want: 1}, nil
	case query.FunctionFirst:
		return &firstAggregator{}, nil
	case query.FunctionLast:
		return &lastAggregator{}, nil
	case query.FunctionRandom:
		return &randomAggregator{}, nil
	}
	return nil, fmt.Errorf("%w: aggregate function %s", ErrUnsupported, item.Function)
}

type countAggregator struct{ n int64 }

func (a *countAggregator) add(v any) {
	if v != nil {
		a.n++
	}
}

func (a *countAggregator) result() any { return a.n }

type sumAggregator struct {
	sum      decimal.Decimal
	integral bool
}

func (a *sumAggregator) add(v any) {
	if d, ok := ToDecimal(v); ok {
		a.sum = a.sum.Add(d)
	}
}

func (a *sumAggregator) result() any {
	if a.integral {
		return a.sum.IntPart()
	}
	f, _ := a.sum.Float64()
	return f
}

type avgAggregator struct {
	sum decimal.Decimal
	n   int64
}

func (a *avgAggregator) add(v any) {
	if d, ok := ToDecimal(v); ok {
		a.sum = a.sum.Add(d)
		a.n++
	}
}

func (a *avgAggregator) result() any {
	if a.n == 0 {
		return nil
	}
	f, _ := a.sum.Div(decimal.NewFromInt(a.n)).Float64()
	return f
}

// extremeAggregator keeps the smallest (want -1) or largest (want 1) value.
type extremeAggregator struct {
	value any
	want  int
}

func (a *extremeAggregator) add(v any) {
	if v == nil {
		return
	}
	if a.value == nil {
		a.value = v
		return
	}
	if c, ok := Compare(v, a.value); ok && c == a.want {
		a.value = v
	}
}

func (a *extremeAggregator) result() any { return a.value }

type firstAggregator struct{ value any }

func (a *firstAggregator) add(v any) {
	if a.value == nil {
		a.value = v
	}
}

func (a *firstAggregator) result() any { return a.value }

type lastAggregator struct{ value any }

func (a *lastAggregator) add(v any) {
	if v != nil {
		a.value = v
	}
}

func (a *lastAggregator) result() any { return a.value }

// randomAggregator keeps a uniformly sampled non-null value.
type randomAggregator struct {
	value any
	seen  int
}

func (a *randomAggregator) add(v any) {
	if v == nil {
		return
	}
	a.seen++
	if rand.IntN(a.seen) == 0 {
		a.value = v
	}
}

func (a *randomAggregator) result() any { return a.value }

// column computes one output item of a partition.
type column struct {
	item  *query.SelectItem
	read  func(*dataset.Row) (any, error)
	isAgg bool
}

type partition struct {
	first *dataset.Row
	aggs  []aggregator
}

// GroupBy partitions ds by the values of groupBy and computes items for each
// partition, emitting partitions in the order they are first encountered.
// Nulls group together, values of different types never do. Non-aggregated
// items take their value from the first row of the partition.
//
// Without grouping items the whole input is one partition, which yields one
// row even when the input is empty.
func GroupBy(ds dataset.DataSet, groupBy []*query.SelectItem, items []*query.SelectItem) (dataset.DataSet, error) {
	defer ds.Close()
	in := ds.Header()

	keys := make([]func(*dataset.Row) (any, error), len(groupBy))
	for i, g := range groupBy {
		read, err := getter(in, g)
		if err != nil {
			return nil, err
		}
		keys[i] = read
	}
	columns := make([]column, len(items))
	for i, item := range items {
		c := column{item: item, isAgg: item.IsAggregate()}
		switch {
		case item.IsCountAll():
			c.read = func(*dataset.Row) (any, error) { return true, nil }
		case c.isAgg:
			read, err := getter(in, item.WithoutFunction())
			if err != nil {
				return nil, err
			}
			c.read = read
		default:
			read, err := getter(in, item)
			if err != nil {
				return nil, err
			}
			c.read = read
		}
		columns[i] = c
	}

	newPartition := func(first *dataset.Row) (*partition, error) {
		p := &partition{first: first, aggs: make([]aggregator, len(columns))}
		for i, c := range columns {
			if !c.isAgg {
				continue
			}
			agg, err := newAggregator(c.item)
			if err != nil {
				return nil, err
			}
			p.aggs[i] = agg
		}
		return p, nil
	}

	var order []*partition
	byKey := make(map[string]*partition)
	keyValues := make([]any, len(keys))
	for ds.Next() {
		row := ds.Row()
		for i, read := range keys {
			v, err := read(row)
			if err != nil {
				return nil, err
			}
			keyValues[i] = v
		}
		key := rowKey(keyValues)
		p, ok := byKey[key]
		if !ok {
			var err error
			if p, err = newPartition(row); err != nil {
				return nil, err
			}
			byKey[key] = p
			order = append(order, p)
		}
		for i, c := range columns {
			if !c.isAgg {
				continue
			}
			v, err := c.read(row)
			if err != nil {
				return nil, err
			}
			p.aggs[i].add(v)
		}
	}
	if err := ds.Err(); err != nil {
		return nil, err
	}
	if len(order) == 0 && len(groupBy) == 0 {
		p, err := newPartition(nil)
		if err != nil {
			return nil, err
		}
		order = append(order, p)
	}

	header := dataset.NewHeader(items...)
	rows := make([]*dataset.Row, len(order))
	for n, p := range order {
		values := make([]any, len(columns))
		for i, c := range columns {
			if c.isAgg {
				values[i] = p.aggs[i].result()
				continue
			}
			if p.first == nil {
				continue
			}
			v, err := c.read(p.first)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		rows[n] = dataset.NewRow(header, values...)
	}
	return dataset.NewInMemory(header, rows), nil
}
