// Package memory is a mutable in-memory backend. It honors projection and
// pagination hints and offers counting, primary key lookups and every write
// capability.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/engine"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/query/executor"
	"github.com/satishbabariya/relq/schema"
)

// Backend keeps rows in memory, indexed by table name. Each stored row has
// one value per column of the table in column order.
type Backend struct {
	engine.Unsupported

	mu     sync.RWMutex
	schema *schema.Schema
	rows   map[string][][]any
}

var (
	_ engine.Backend    = (*Backend)(nil)
	_ engine.Creatable  = (*Backend)(nil)
	_ engine.Insertable = (*Backend)(nil)
	_ engine.Deletable  = (*Backend)(nil)
	_ engine.Droppable  = (*Backend)(nil)
)

// New creates an empty backend over s.
func New(s *schema.Schema) *Backend {
	return &Backend{schema: s, rows: make(map[string][][]any)}
}

// Updater returns the write capabilities of the backend.
func (b *Backend) Updater() engine.Updater {
	return engine.Updater{Create: b, Insert: b, Delete: b, Drop: b}
}

// Load appends rows to the named table without any conversion.
func (b *Backend) Load(table string, rows ...[]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.schema.Table(table)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != t.ColumnCount() {
			return fmt.Errorf("load %s: row %d has %d values for %d columns", table, i, len(row), t.ColumnCount())
		}
		b.rows[t.Name()] = append(b.rows[t.Name()], append([]any(nil), row...))
	}
	return nil
}

// MainSchema returns the current schema.
func (b *Backend) MainSchema(context.Context) (*schema.Schema, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schema, nil
}

// Capabilities reports that projection and pagination are exact.
func (b *Backend) Capabilities() engine.Capabilities {
	return engine.Capabilities{Projection: true, Pagination: true}
}

// Materialize returns a snapshot of the requested columns and rows.
func (b *Backend) Materialize(ctx context.Context, table *schema.Table, columns []*schema.Column, firstRow, maxRows int) (dataset.DataSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored, err := b.snapshot(table)
	if err != nil {
		return nil, err
	}
	if firstRow < 1 {
		firstRow = 1
	}
	start := min(firstRow-1, len(stored))
	end := len(stored)
	if maxRows >= 0 {
		end = min(start+maxRows, end)
	}

	h := dataset.HeaderOf(columns...)
	rows := make([]*dataset.Row, 0, end-start)
	for _, values := range stored[start:end] {
		rows = append(rows, dataset.NewRow(h, project(values, columns)...))
	}
	return dataset.NewInMemory(h, rows), nil
}

// Count counts the rows matching filters. Filters reading anything but
// columns of table are declined.
func (b *Backend) Count(ctx context.Context, table *schema.Table, filters []*query.FilterItem) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if !ownFilters(table, filters) {
		return 0, false, nil
	}
	stored, err := b.snapshot(table)
	if err != nil {
		return 0, false, err
	}
	h := dataset.HeaderOf(table.Columns()...)
	var n int64
	for _, values := range stored {
		ok, err := executor.Matches(dataset.NewRow(h, values...), filters)
		if err != nil {
			return 0, false, nil
		}
		if ok {
			n++
		}
	}
	return n, true, nil
}

// LookupByPrimaryKey scans table for the row whose pk equals value.
func (b *Backend) LookupByPrimaryKey(ctx context.Context, table *schema.Table, columns []*schema.Column, pk *schema.Column, value any) (*dataset.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	stored, err := b.snapshot(table)
	if err != nil {
		return nil, false, err
	}
	h := dataset.HeaderOf(columns...)
	for _, values := range stored {
		if executor.Equal(values[pk.Number()], value) {
			return dataset.NewRow(h, project(values, columns)...), true, nil
		}
	}
	return nil, true, nil
}

// CreateTable adds a table to the schema.
func (b *Backend) CreateTable(ctx context.Context, def engine.TableDefinition) (*schema.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.schema.Table(def.Name); err == nil {
		return nil, fmt.Errorf("table %s already exists", def.Name)
	}
	builder := b.schema.ToBuilder()
	tb := builder.Table(def.Name)
	for _, c := range def.Columns {
		opts := []schema.ColumnOption{schema.Nullable(c.Nullable)}
		if c.PrimaryKey {
			opts = append(opts, schema.PrimaryKey())
		}
		if c.Size > 0 {
			opts = append(opts, schema.Size(c.Size))
		}
		tb.Column(c.Name, c.Type, opts...)
	}
	s, err := builder.Build()
	if err != nil {
		return nil, err
	}
	b.schema = s
	return s.Table(def.Name)
}

// Insert appends rows; columns not listed are null.
func (b *Backend) Insert(ctx context.Context, table *schema.Table, columns []*schema.Column, rows [][]any) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.schema.Table(table.Name())
	if err != nil {
		return 0, err
	}
	positions := make([]int, len(columns))
	for i, c := range columns {
		target, err := t.Column(c.Name())
		if err != nil {
			return 0, err
		}
		positions[i] = target.Number()
	}
	for _, row := range rows {
		values := make([]any, t.ColumnCount())
		for i, pos := range positions {
			values[pos] = row[i]
		}
		b.rows[t.Name()] = append(b.rows[t.Name()], values)
	}
	return int64(len(rows)), nil
}

// Delete removes the rows matching every filter.
func (b *Backend) Delete(ctx context.Context, table *schema.Table, where []*query.FilterItem) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := dataset.HeaderOf(table.Columns()...)
	stored := b.rows[table.Name()]
	kept := make([][]any, 0, len(stored))
	var deleted int64
	for _, values := range stored {
		ok, err := executor.Matches(dataset.NewRow(h, values...), where)
		if err != nil {
			return 0, err
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, values)
	}
	b.rows[table.Name()] = kept
	return deleted, nil
}

// DropTable removes a table and its rows.
func (b *Backend) DropTable(ctx context.Context, table *schema.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.schema.Table(table.Name()); err != nil {
		return err
	}
	s, err := b.schema.ToBuilder().RemoveTable(table.Name()).Build()
	if err != nil {
		return err
	}
	b.schema = s
	delete(b.rows, table.Name())
	return nil
}

func (b *Backend) snapshot(table *schema.Table) ([][]any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, err := b.schema.Table(table.Name()); err != nil {
		return nil, err
	}
	stored := b.rows[table.Name()]
	return stored[:len(stored):len(stored)], nil
}

func project(values []any, columns []*schema.Column) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		if n := c.Number(); n < len(values) {
			out[i] = values[n]
		}
	}
	return out
}

func ownFilters(table *schema.Table, filters []*query.FilterItem) bool {
	for _, f := range filters {
		if len(f.Parameters()) > 0 {
			return false
		}
		for _, item := range f.SelectItems() {
			if item.Column == nil || item.Column.Table() != table || item.SubQueryItem != nil {
				return false
			}
		}
	}
	return true
}
