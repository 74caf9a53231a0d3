package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/query/executor"
	"github.com/satishbabariya/relq/schema"
	"github.com/satishbabariya/relq/telemetry"
)

// Explain describes how q would be executed.
func (e *Engine) Explain(q *query.Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	return newPlan(q).String(), nil
}

func (e *Engine) execute(ctx context.Context, q *query.Query, log *slog.Logger) (dataset.DataSet, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	p := newPlan(q)
	if p.maxRows == 0 {
		return dataset.Empty(dataset.NewHeader(q.SelectItems()...)), telemetry.PathEmpty, nil
	}

	native, ok, err := e.backend.ExecuteQuery(ctx, q)
	if err != nil {
		return nil, "", e.fail("execute", "", err)
	}
	if ok {
		ds, err := executor.SubSelect(e.counted(native, "execute", ""), q.SelectItems())
		return ds, telemetry.PathNative, err
	}

	if err := checkEvaluable(q); err != nil {
		return nil, "", err
	}

	if p.countTable != nil {
		ds, ok, err := e.count(ctx, p)
		if err != nil || ok {
			return ds, telemetry.PathCount, err
		}
		log.Debug("count declined by backend", "table", p.countTable.Table.Name())
	}

	if p.single != nil {
		if p.pkColumn != nil {
			ds, ok, err := e.lookup(ctx, p)
			if err != nil || ok {
				return ds, telemetry.PathPrimaryKey, err
			}
			log.Debug("primary key lookup declined by backend", "table", p.single.Table.Name())
		}
		ds, err := e.scan(ctx, p)
		return ds, telemetry.PathSingleTable, err
	}

	ds, err := e.postprocess(ctx, p, log)
	return ds, telemetry.PathMultiTable, err
}

// checkEvaluable rejects filters only a native backend could evaluate.
func checkEvaluable(q *query.Query) error {
	for _, f := range q.Filters() {
		if hasExpression(f) {
			return fmt.Errorf("%w: cannot evaluate %s", ErrUnsupportedOperation, f.ToSQL())
		}
		if params := f.Parameters(); len(params) > 0 {
			return fmt.Errorf("%w: unbound parameter in %s", ErrUnsupportedOperation, f.ToSQL())
		}
	}
	return nil
}

func (e *Engine) count(ctx context.Context, p *plan) (dataset.DataSet, bool, error) {
	table := p.countTable.Table
	n, ok, err := e.backend.Count(ctx, table, p.query.WhereItems())
	if err != nil {
		return nil, false, e.fail("count", table.Name(), err)
	}
	if !ok {
		return nil, false, nil
	}
	ds := dataset.FromValues(dataset.NewHeader(p.query.SelectItems()...), [][]any{{n}})
	return executor.Paginate(ds, p.firstRow, p.maxRows), true, nil
}

func (e *Engine) lookup(ctx context.Context, p *plan) (dataset.DataSet, bool, error) {
	table := p.single.Table
	columns := p.columns[p.single]
	row, ok, err := e.backend.LookupByPrimaryKey(ctx, table, columns, p.pkColumn, p.pkValue)
	if err != nil {
		return nil, false, e.fail("lookup", table.Name(), err)
	}
	if !ok {
		return nil, false, nil
	}
	var ds dataset.DataSet
	if row == nil {
		ds = dataset.Empty(dataset.HeaderOf(columns...))
	} else {
		ds = dataset.NewInMemory(row.Header(), []*dataset.Row{row})
	}
	out, err := e.finishSingle(ds, p, p.firstRow)
	return out, err == nil, err
}

// scan materializes the single table of p, pushing the projection and, when
// nothing filters rows afterwards, the pagination.
func (e *Engine) scan(ctx context.Context, p *plan) (dataset.DataSet, error) {
	q := p.query
	firstRow, maxRows := 1, -1
	pushable := len(q.WhereItems()) == 0 && !q.IsDistinct()
	honored := e.backend.Capabilities().Pagination
	if pushable {
		switch {
		case honored:
			firstRow, maxRows = p.firstRow, p.maxRows
		case p.maxRows >= 0:
			maxRows = p.firstRow - 1 + p.maxRows
		}
	}
	ds, err := e.materialize(ctx, p.single, p.columns[p.single], firstRow, maxRows)
	if err != nil {
		return nil, err
	}
	skip := p.firstRow
	if pushable && honored {
		skip = 1
	}
	return e.finishSingle(ds, p, skip)
}

func (e *Engine) finishSingle(ds dataset.DataSet, p *plan, firstRow int) (dataset.DataSet, error) {
	q := p.query
	ds = executor.Filter(ds, q.WhereItems()...)
	ds, err := executor.SubSelect(ds, q.SelectItems())
	if err != nil {
		return nil, err
	}
	if q.IsDistinct() {
		ds = executor.Distinct(ds)
	}
	return executor.Paginate(ds, firstRow, p.maxRows), nil
}

// postprocess materializes every leaf of the query and evaluates the rest of
// the query client side.
func (e *Engine) postprocess(ctx context.Context, p *plan, log *slog.Logger) (dataset.DataSet, error) {
	q := p.query
	leaves, err := e.materializeLeaves(ctx, p, log)
	if err != nil {
		return nil, err
	}
	opened := make([]dataset.DataSet, 0, len(leaves))
	for _, ds := range leaves {
		opened = append(opened, ds)
	}
	fail := func(err error) (dataset.DataSet, error) {
		for _, ds := range opened {
			_ = ds.Close()
		}
		return nil, err
	}

	from := q.FromItems()
	inputs := make([]dataset.DataSet, len(from))
	for i, f := range from {
		ds, err := build(f, leaves)
		if err != nil {
			return fail(err)
		}
		inputs[i] = ds
		opened = append(opened, ds)
	}
	ds, err := executor.CarthesianProduct(inputs, p.remaining...)
	if err != nil {
		return fail(err)
	}
	opened = append(opened, ds)

	if q.IsAggregated() {
		var keys []*query.SelectItem
		for _, g := range q.GroupByItems() {
			keys = append(keys, g.Item)
		}
		if ds, err = executor.GroupBy(ds, keys, p.grouped); err != nil {
			return fail(err)
		}
		ds = executor.Filter(ds, q.HavingItems()...)
		opened = append(opened, ds)
	}
	if ds, err = executor.OrderBy(ds, q.OrderByItems()); err != nil {
		return fail(err)
	}
	opened = append(opened, ds)
	if ds, err = executor.SubSelect(ds, q.SelectItems()); err != nil {
		return fail(err)
	}
	if q.IsDistinct() {
		ds = executor.Distinct(ds)
	}
	return executor.Paginate(ds, p.firstRow, p.maxRows), nil
}

func build(f *query.FromItem, leaves map[*query.FromItem]dataset.DataSet) (dataset.DataSet, error) {
	if !f.IsJoin() {
		ds, ok := leaves[f]
		if !ok || ds == nil {
			return nil, fmt.Errorf("from item %s was not materialized", f.Label())
		}
		return ds, nil
	}
	left, err := build(f.Left, leaves)
	if err != nil {
		return nil, err
	}
	right, err := build(f.Right, leaves)
	if err != nil {
		return nil, err
	}
	return executor.Join(left, right, f.Join, f.JoinConditions())
}

// materializeLeaves opens every leaf of the plan with the filters pushed to
// it applied. With a worker pool the leaves are read concurrently and
// buffered.
func (e *Engine) materializeLeaves(ctx context.Context, p *plan, log *slog.Logger) (map[*query.FromItem]dataset.DataSet, error) {
	out := make(map[*query.FromItem]dataset.DataSet, len(p.leaves))
	open := func(leaf *query.FromItem) (dataset.DataSet, error) {
		ds, err := e.openLeaf(ctx, p, leaf, log)
		if err != nil {
			return nil, err
		}
		return executor.Filter(ds, p.pushed[leaf]...), nil
	}

	if e.pool == nil || len(p.leaves) < 2 {
		for _, leaf := range p.leaves {
			ds, err := open(leaf)
			if err != nil {
				closeLeaves(out)
				return nil, err
			}
			out[leaf] = ds
		}
		return out, nil
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	for _, leaf := range p.leaves {
		// Sub-queries may need the pool themselves, so they run here.
		if leaf.IsSubQuery() {
			ds, err := open(leaf)
			mu.Lock()
			if err != nil {
				errs = append(errs, err)
			} else {
				out[leaf] = ds
			}
			mu.Unlock()
			continue
		}
		wg.Add(1)
		task := func() {
			defer func() {
				if v := recover(); v != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("materialize %s: panic: %v", leaf.Label(), v))
					mu.Unlock()
				}
				wg.Done()
			}()
			ds, err := open(leaf)
			if err == nil {
				ds, err = dataset.Buffer(ds)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			out[leaf] = ds
		}
		if err := e.pool.Submit(task); err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}
	wg.Wait()
	if len(errs) > 0 {
		closeLeaves(out)
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func closeLeaves(leaves map[*query.FromItem]dataset.DataSet) {
	for _, ds := range leaves {
		_ = ds.Close()
	}
}

// openLeaf reads a table or runs a sub-query, labelling the columns with the
// leaf so that self joins stay distinguishable.
func (e *Engine) openLeaf(ctx context.Context, p *plan, leaf *query.FromItem, log *slog.Logger) (dataset.DataSet, error) {
	if leaf.IsSubQuery() {
		inner, _, err := e.execute(ctx, leaf.SubQuery, log)
		if err != nil {
			return nil, err
		}
		items := inner.Header().Items()
		for i, item := range items {
			items[i] = query.NewSubQueryItem(leaf, item)
		}
		return relabel(inner, dataset.NewHeader(items...)), nil
	}
	return e.materialize(ctx, leaf, p.columns[leaf], 1, -1)
}

// materialize reads columns of the leaf's table and projects the result onto
// column items bound to leaf.
func (e *Engine) materialize(ctx context.Context, leaf *query.FromItem, columns []*schema.Column, firstRow, maxRows int) (dataset.DataSet, error) {
	table := leaf.Table
	ds, err := e.backend.Materialize(ctx, table, columns, firstRow, maxRows)
	if err != nil {
		return nil, e.fail("materialize", table.Name(), err)
	}
	items := make([]*query.SelectItem, len(columns))
	for i, c := range columns {
		items[i] = query.NewColumnItem(c).Of(leaf)
	}
	return executor.SubSelect(e.counted(ds, "materialize", table.Name()), items)
}

// counted reports the rows read from ds and wraps its failures as backend
// errors.
// counted reports backend errors raised while ds is read as engine errors of
// op. Rows read from a table are added to the metrics.
func (e *Engine) counted(ds dataset.DataSet, op, table string) dataset.DataSet {
	n := 0
	return dataset.NewIterator(ds.Header(), func() (*dataset.Row, error) {
		if !ds.Next() {
			if err := ds.Err(); err != nil {
				return nil, e.fail(op, table, err)
			}
			return nil, io.EOF
		}
		n++
		return ds.Row(), nil
	}, func() error {
		if table != "" {
			e.metrics.AddRows(table, n)
		}
		return ds.Close()
	})
}

func relabel(ds dataset.DataSet, header *dataset.Header) dataset.DataSet {
	return dataset.NewIterator(header, func() (*dataset.Row, error) {
		if !ds.Next() {
			if err := ds.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		row := ds.Row()
		return dataset.NewStyledRow(header, row.Values(), row.Styles()), nil
	}, ds.Close)
}
