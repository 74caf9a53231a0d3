// Package engine answers queries against any backend that can at least
// return the rows of a named table. Everything the backend cannot do itself
// (joins, filtering, grouping, ordering, projection, pagination) is
// post-processed with the operators of query/executor.
package engine

import (
	"context"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// Capabilities describes how faithfully a backend honors materialization hints.
type Capabilities struct {
	// Projection means Materialize returns exactly the requested columns.
	Projection bool
	// Pagination means Materialize applies firstRow and maxRows exactly.
	Pagination bool
}

// Backend is the contract a data source implements to be queried.
//
// The optional operations return ok=false to decline; the engine then falls
// back to materializing and post-processing. Declining is never an error.
type Backend interface {
	// MainSchema returns the table and column metadata of the source.
	MainSchema(ctx context.Context) (*schema.Schema, error)

	// Capabilities reports which materialization hints are honored exactly.
	Capabilities() Capabilities

	// Materialize returns the rows of table. Columns, firstRow (1-based) and
	// maxRows (-1 for no limit) are hints the engine re-applies as needed.
	Materialize(ctx context.Context, table *schema.Table, columns []*schema.Column, firstRow, maxRows int) (dataset.DataSet, error)

	// Count returns the number of rows of table matching every filter.
	Count(ctx context.Context, table *schema.Table, filters []*query.FilterItem) (n int64, ok bool, err error)

	// LookupByPrimaryKey returns the row whose primary key column equals
	// value. A nil row with ok=true means no such row exists.
	LookupByPrimaryKey(ctx context.Context, table *schema.Table, columns []*schema.Column, pk *schema.Column, value any) (row *dataset.Row, ok bool, err error)

	// ExecuteQuery answers the whole query natively.
	ExecuteQuery(ctx context.Context, q *query.Query) (ds dataset.DataSet, ok bool, err error)
}

// Unsupported declines every optional operation. Embed it in backends that
// only implement MainSchema and Materialize.
type Unsupported struct{}

// Capabilities reports that no hint is honored exactly.
func (Unsupported) Capabilities() Capabilities { return Capabilities{} }

// Count declines.
func (Unsupported) Count(context.Context, *schema.Table, []*query.FilterItem) (int64, bool, error) {
	return 0, false, nil
}

// LookupByPrimaryKey declines.
func (Unsupported) LookupByPrimaryKey(context.Context, *schema.Table, []*schema.Column, *schema.Column, any) (*dataset.Row, bool, error) {
	return nil, false, nil
}

// ExecuteQuery declines.
func (Unsupported) ExecuteQuery(context.Context, *query.Query) (dataset.DataSet, bool, error) {
	return nil, false, nil
}
