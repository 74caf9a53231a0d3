package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// ColumnDefinition describes a column of a table to create.
type ColumnDefinition struct {
	Name       string
	Type       schema.ColumnType
	Size       int
	Nullable   bool
	PrimaryKey bool
}

// TableDefinition describes a table to create.
type TableDefinition struct {
	Name    string
	Columns []ColumnDefinition
}

// Creatable creates tables.
type Creatable interface {
	CreateTable(ctx context.Context, def TableDefinition) (*schema.Table, error)
}

// Insertable appends rows. Each row holds one value per column.
type Insertable interface {
	Insert(ctx context.Context, table *schema.Table, columns []*schema.Column, rows [][]any) (int64, error)
}

// Deletable removes the rows matching every filter.
type Deletable interface {
	Delete(ctx context.Context, table *schema.Table, where []*query.FilterItem) (int64, error)
}

// Droppable drops tables.
type Droppable interface {
	DropTable(ctx context.Context, table *schema.Table) error
}

// Updater groups the write capabilities of a backend. Nil members are
// unsupported.
type Updater struct {
	Create Creatable
	Insert Insertable
	Delete Deletable
	Drop   Droppable
}

// Validate checks a table definition before it reaches the backend.
func (d TableDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("create table: missing name")
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("create table %s: no columns", d.Name)
	}
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if c.Name == "" {
			return fmt.Errorf("create table %s: column without name", d.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("create table %s: duplicate column %s", d.Name, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// CreateTable creates a table through the backend.
func (e *Engine) CreateTable(ctx context.Context, def TableDefinition) (*schema.Table, error) {
	if e.updater.Create == nil {
		return nil, fmt.Errorf("%w: create table", ErrUnsupportedOperation)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	t, err := e.updater.Create.CreateTable(ctx, def)
	if err != nil {
		return nil, e.fail("create", def.Name, err)
	}
	e.written("create", def.Name, start)
	return t, nil
}

// Insert appends rows to table.
func (e *Engine) Insert(ctx context.Context, table *schema.Table, columns []*schema.Column, rows [][]any) (int64, error) {
	if e.updater.Insert == nil {
		return 0, fmt.Errorf("%w: insert", ErrUnsupportedOperation)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("insert into %s: row %d has %d values for %d columns", table.Name(), i, len(row), len(columns))
		}
	}
	start := time.Now()
	n, err := e.updater.Insert.Insert(ctx, table, columns, rows)
	if err != nil {
		return 0, e.fail("insert", table.Name(), err)
	}
	e.written("insert", table.Name(), start)
	return n, nil
}

// Delete removes the rows of table matching every filter.
func (e *Engine) Delete(ctx context.Context, table *schema.Table, where ...*query.FilterItem) (int64, error) {
	if e.updater.Delete == nil {
		return 0, fmt.Errorf("%w: delete", ErrUnsupportedOperation)
	}
	start := time.Now()
	n, err := e.updater.Delete.Delete(ctx, table, where)
	if err != nil {
		return 0, e.fail("delete", table.Name(), err)
	}
	e.written("delete", table.Name(), start)
	return n, nil
}

// DropTable drops table.
func (e *Engine) DropTable(ctx context.Context, table *schema.Table) error {
	if e.updater.Drop == nil {
		return fmt.Errorf("%w: drop table", ErrUnsupportedOperation)
	}
	start := time.Now()
	if err := e.updater.Drop.DropTable(ctx, table); err != nil {
		return e.fail("drop", table.Name(), err)
	}
	e.invalidate(table.Name())
	e.written("drop", table.Name(), start)
	return nil
}

func (e *Engine) written(op, table string, start time.Time) {
	e.metrics.ObserveQuery(op, time.Since(start))
	e.logger.Debug("write executed", "op", op, "table", table, "duration", time.Since(start))
}

func (e *Engine) fail(op, table string, err error) error {
	e.metrics.BackendError(op)
	return backendError(op, table, err)
}
