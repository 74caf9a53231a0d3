// Package sqldb is a backend over PostgreSQL, MySQL and SQLite databases
// reached through database/sql. Whole queries are pushed down as SQL when the
// dialect can express them; everything else is read table by table.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/engine"
	"github.com/satishbabariya/relq/internal/debug"
	"github.com/satishbabariya/relq/internal/pool"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/query/cache"
	"github.com/satishbabariya/relq/query/sqlgen"
	"github.com/satishbabariya/relq/schema"
)

// sqliteRightJoin is the first SQLite release supporting RIGHT JOIN.
var sqliteRightJoin = version.Must(version.NewVersion("3.39.0"))

// Backend answers queries against a SQL database.
type Backend struct {
	pool     *pool.Pool
	gen      *sqlgen.Generator
	sessions *cache.LeasePool[*sql.Conn]
	version  *version.Version

	mu     sync.RWMutex
	schema *schema.Schema
}

var (
	_ engine.Backend    = (*Backend)(nil)
	_ engine.Creatable  = (*Backend)(nil)
	_ engine.Insertable = (*Backend)(nil)
	_ engine.Deletable  = (*Backend)(nil)
	_ engine.Droppable  = (*Backend)(nil)
)

// Open connects to the database and reads its schema. The caller must import
// the driver for provider.
func Open(ctx context.Context, provider, dsn string, config pool.Config) (*Backend, error) {
	p, err := pool.New(ctx, provider, dsn, config)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(ctx, p, config.MaxIdleConns)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return b, nil
}

func newBackend(ctx context.Context, p *pool.Pool, idleSessions int) (*Backend, error) {
	gen, err := sqlgen.NewGenerator(p.Driver())
	if err != nil {
		return nil, err
	}
	b := &Backend{pool: p, gen: gen}
	// Idle sessions hold pooled connections; keep fewer than MaxOpenConns so
	// that introspection can still get one.
	if limit := p.Stats().MaxOpenConnections; limit > 0 && idleSessions >= limit {
		idleSessions = limit - 1
	}
	b.sessions = cache.NewLeasePool(idleSessions, b.openSession, (*sql.Conn).Close)

	b.version, err = serverVersion(ctx, p.DB(), p.Driver())
	if err != nil {
		debug.Warn("could not determine server version", "driver", p.Driver(), "error", err)
	}
	if p.Driver() == "sqlite3" && b.version != nil && b.version.LessThan(sqliteRightJoin) {
		gen.SetRightJoin(false)
	}

	if err := b.Refresh(ctx); err != nil {
		return nil, err
	}
	debug.Debug("sql backend opened", "driver", p.Driver(), "version", b.version, "schema", b.schema.Name())
	return b, nil
}

// openSession prepares a dedicated connection so that session settings stay
// in effect for every statement run on it.
func (b *Backend) openSession(ctx context.Context) (*sql.Conn, error) {
	conn, err := b.pool.DB().Conn(ctx)
	if err != nil {
		return nil, err
	}
	if b.pool.Driver() == "sqlite3" {
		// LIKE must be case-sensitive as it is in the engine.
		if _, err := conn.ExecContext(ctx, "PRAGMA case_sensitive_like = ON"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialize session: %w", err)
		}
	}
	return conn, nil
}

func serverVersion(ctx context.Context, db *sql.DB, driver string) (*version.Version, error) {
	var stmt string
	switch driver {
	case "sqlite3":
		stmt = "SELECT sqlite_version()"
	case "postgres":
		stmt = "SHOW server_version"
	default:
		stmt = "SELECT VERSION()"
	}
	var raw string
	if err := db.QueryRowContext(ctx, stmt).Scan(&raw); err != nil {
		return nil, err
	}
	// "16.2 (Debian 16.2-1)" and "8.0.36-0ubuntu0.22.04.1" both start with
	// the release number.
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty version")
	}
	return version.NewVersion(fields[0])
}

// Version returns the database server version, or nil if unknown.
func (b *Backend) Version() *version.Version { return b.version }

// Driver returns the database/sql driver name.
func (b *Backend) Driver() string { return b.pool.Driver() }

// Stats returns the connection pool statistics.
func (b *Backend) Stats() pool.Stats { return b.pool.Stats() }

// Updater returns the write capabilities of the backend.
func (b *Backend) Updater() engine.Updater {
	return engine.Updater{Create: b, Insert: b, Delete: b, Drop: b}
}

// Refresh re-reads the schema from the database.
func (b *Backend) Refresh(ctx context.Context) error {
	s, err := introspect(ctx, b.pool.DB(), b.pool.Driver())
	if err != nil {
		return fmt.Errorf("failed to introspect database: %w", err)
	}
	b.mu.Lock()
	b.schema = s
	b.mu.Unlock()
	return nil
}

// Close releases every connection.
func (b *Backend) Close() error {
	return errors.Join(b.sessions.Close(), b.pool.Close())
}

// MainSchema returns the schema read at open or at the last Refresh.
func (b *Backend) MainSchema(context.Context) (*schema.Schema, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schema, nil
}

// Capabilities reports that projection and pagination are exact.
func (b *Backend) Capabilities() engine.Capabilities {
	return engine.Capabilities{Projection: true, Pagination: true}
}

// Materialize streams the requested columns of table.
func (b *Backend) Materialize(ctx context.Context, table *schema.Table, columns []*schema.Column, firstRow, maxRows int) (dataset.DataSet, error) {
	h := dataset.HeaderOf(columns...)
	read := columns
	if len(read) == 0 {
		// Only the number of rows matters; read one column and drop it.
		read = table.Columns()[:1]
	}
	q := b.gen.Select(table, read, firstRow, maxRows)
	return b.stream(ctx, q, h, columnTypes(read))
}

// Count runs SELECT COUNT(*) and declines filters the dialect cannot express.
func (b *Backend) Count(ctx context.Context, table *schema.Table, filters []*query.FilterItem) (int64, bool, error) {
	q, err := b.gen.Count(table, filters)
	if errors.Is(err, sqlgen.ErrUnsupported) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	lease, err := b.sessions.Acquire(ctx)
	if err != nil {
		return 0, false, err
	}
	defer lease.Release()

	debug.Debug("sql count", "sql", q.SQL, "args", q.Args)
	var n int64
	if err := lease.Value().QueryRowContext(ctx, q.SQL, q.Args...).Scan(&n); err != nil {
		discardBroken(lease, err)
		return 0, false, fmt.Errorf("count %s: %w", table.Name(), err)
	}
	return n, true, nil
}

// LookupByPrimaryKey reads the row whose pk equals value.
func (b *Backend) LookupByPrimaryKey(ctx context.Context, table *schema.Table, columns []*schema.Column, pk *schema.Column, value any) (*dataset.Row, bool, error) {
	q := b.gen.Lookup(table, columns, pk, value)
	ds, err := b.stream(ctx, q, dataset.HeaderOf(columns...), columnTypes(columns))
	if err != nil {
		return nil, false, err
	}
	rows, err := dataset.Collect(ds)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, true, nil
	}
	return rows[0], true, nil
}

// ExecuteQuery pushes q down as a single SQL statement when the dialect can
// express it.
func (b *Backend) ExecuteQuery(ctx context.Context, q *query.Query) (dataset.DataSet, bool, error) {
	if !b.owns(q) {
		return nil, false, nil
	}
	generated, err := b.gen.Generate(q)
	if errors.Is(err, sqlgen.ErrUnsupported) {
		debug.Debug("query not pushed down", "reason", err)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	items := q.SelectItems()
	types := make([]schema.ColumnType, len(items))
	for i, item := range items {
		types[i] = item.ExpectedType()
	}
	ds, err := b.stream(ctx, generated, dataset.NewHeader(items...), types)
	if err != nil {
		return nil, false, err
	}
	return ds, true, nil
}

// owns reports whether every table q reads belongs to the current schema.
func (b *Backend) owns(q *query.Query) bool {
	b.mu.RLock()
	s := b.schema
	b.mu.RUnlock()
	for _, f := range q.FromItems() {
		for _, leaf := range f.Leaves() {
			if leaf.IsSubQuery() {
				if !b.owns(leaf.SubQuery) {
					return false
				}
				continue
			}
			if leaf.Table == nil {
				return false
			}
			t, err := s.Table(leaf.Table.Name())
			if err != nil || t != leaf.Table {
				return false
			}
		}
	}
	return true
}

// stream runs q on a leased session. The session is held until the returned
// DataSet is closed.
func (b *Backend) stream(ctx context.Context, q *sqlgen.Query, h *dataset.Header, types []schema.ColumnType) (dataset.DataSet, error) {
	lease, err := b.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	debug.Debug("sql query", "sql", q.SQL, "args", q.Args)
	rows, err := lease.Value().QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		discardBroken(lease, err)
		_ = lease.Release()
		return nil, fmt.Errorf("query failed: %w", err)
	}

	width := h.Len()
	source := func() (*dataset.Row, error) {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		values := make([]any, len(types))
		dest := make([]any, len(types))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		convertRow(values, types)
		return dataset.NewRow(h, values[:width]...), nil
	}
	closer := func() error {
		return errors.Join(rows.Close(), lease.Release())
	}
	return dataset.NewIterator(h, source, closer), nil
}

func discardBroken(lease *cache.Lease[*sql.Conn], err error) {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		lease.Discard()
	}
}

func columnTypes(columns []*schema.Column) []schema.ColumnType {
	types := make([]schema.ColumnType, len(columns))
	for i, c := range columns {
		types[i] = c.Type()
	}
	return types
}
