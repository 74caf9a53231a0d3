package sqldb

import (
	"context"
	"fmt"

	"github.com/satishbabariya/relq/engine"
	"github.com/satishbabariya/relq/internal/debug"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/query/sqlgen"
	"github.com/satishbabariya/relq/schema"
)

// CreateTable creates the table and returns it from the refreshed schema.
func (b *Backend) CreateTable(ctx context.Context, def engine.TableDefinition) (*schema.Table, error) {
	columns := make([]sqlgen.ColumnDef, len(def.Columns))
	for i, c := range def.Columns {
		columns[i] = sqlgen.ColumnDef{
			Name:       c.Name,
			Type:       c.Type,
			Size:       c.Size,
			Nullable:   c.Nullable,
			PrimaryKey: c.PrimaryKey,
		}
	}
	if err := b.exec(ctx, b.gen.CreateTable(def.Name, columns)); err != nil {
		return nil, err
	}
	if err := b.Refresh(ctx); err != nil {
		return nil, err
	}
	s, _ := b.MainSchema(ctx)
	return s.Table(def.Name)
}

// Insert adds rows in a single transaction.
func (b *Backend) Insert(ctx context.Context, table *schema.Table, columns []*schema.Column, rows [][]any) (int64, error) {
	lease, err := b.sessions.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer lease.Release()

	tx, err := lease.Value().BeginTx(ctx, nil)
	if err != nil {
		discardBroken(lease, err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, b.gen.Insert(table, columns))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert row %d into %s: %w", i, table.Name(), err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert: %w", err)
	}
	debug.Debug("rows inserted", "table", table.Name(), "rows", n)
	return n, nil
}

// Delete removes the rows matching every filter. Filters the dialect cannot
// express fail with sqlgen.ErrUnsupported.
func (b *Backend) Delete(ctx context.Context, table *schema.Table, where []*query.FilterItem) (int64, error) {
	q, err := b.gen.Delete(table, where)
	if err != nil {
		return 0, err
	}
	lease, err := b.sessions.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer lease.Release()

	debug.Debug("sql exec", "sql", q.SQL, "args", q.Args)
	res, err := lease.Value().ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		discardBroken(lease, err)
		return 0, fmt.Errorf("delete from %s: %w", table.Name(), err)
	}
	return res.RowsAffected()
}

// DropTable drops the table and refreshes the schema.
func (b *Backend) DropTable(ctx context.Context, table *schema.Table) error {
	if err := b.exec(ctx, b.gen.DropTable(table.Name())); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

func (b *Backend) exec(ctx context.Context, stmt string) error {
	lease, err := b.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	debug.Debug("sql exec", "sql", stmt)
	if _, err := lease.Value().ExecContext(ctx, stmt); err != nil {
		discardBroken(lease, err)
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}
