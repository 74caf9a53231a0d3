// Package compiler validates a query once and binds parameter values to it for
// repeated execution.
package compiler

import (
	"context"
	"fmt"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
)

// Executor runs a fully bound query.
type Executor interface {
	Execute(ctx context.Context, q *query.Query) (dataset.DataSet, error)
}

// CompiledQuery is a validated query together with its parameter placeholders
// in declaration order.
type CompiledQuery struct {
	query      *query.Query
	parameters []*query.Parameter
	sql        string
}

// Compile validates q and records its parameters. The query must not be
// modified afterwards.
func Compile(q *query.Query) (*CompiledQuery, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &CompiledQuery{
		query:      q,
		parameters: q.Parameters(),
		sql:        q.ToSQL(),
	}, nil
}

// Query returns the compiled query with its placeholders.
func (c *CompiledQuery) Query() *query.Query { return c.query }

// Parameters returns the placeholders in binding order.
func (c *CompiledQuery) Parameters() []*query.Parameter {
	return append([]*query.Parameter(nil), c.parameters...)
}

// SQL returns the rendered query with its placeholders. It identifies the
// query shape, e.g. as a statement cache key.
func (c *CompiledQuery) SQL() string { return c.sql }

// Bind returns a copy of the query with the i-th placeholder replaced by
// values[i].
func (c *CompiledQuery) Bind(values ...any) (*query.Query, error) {
	if len(values) != len(c.parameters) {
		return nil, &ArgumentCountError{Expected: len(c.parameters), Actual: len(values)}
	}
	if len(values) == 0 {
		return c.query, nil
	}
	// The same placeholder may be used more than once; it binds to the
	// value of its first position.
	bound := make(map[*query.Parameter]any, len(values))
	for i, p := range c.parameters {
		if _, ok := bound[p]; !ok {
			bound[p] = values[i]
		}
	}
	return c.query.MapFilters(func(operand any) any {
		if p, ok := operand.(*query.Parameter); ok {
			if v, ok := bound[p]; ok {
				return v
			}
		}
		return operand
	}), nil
}

// Execute binds values and runs the query.
func (c *CompiledQuery) Execute(ctx context.Context, exec Executor, values ...any) (dataset.DataSet, error) {
	q, err := c.Bind(values...)
	if err != nil {
		return nil, err
	}
	ds, err := exec.Execute(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("execute compiled query: %w", err)
	}
	return ds, nil
}

func (c *CompiledQuery) String() string {
	return fmt.Sprintf("CompiledQuery[%s]", c.sql)
}
