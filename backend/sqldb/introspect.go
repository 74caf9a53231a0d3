package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/relq/schema"
)

type tableInfo struct {
	name        string
	view        bool
	columns     []columnInfo
	foreignKeys []foreignKey
}

type columnInfo struct {
	name     string
	native   string
	nullable bool
	pk       bool
	size     int
}

type foreignKey struct {
	columns           []string
	referencedTable   string
	referencedColumns []string
}

// introspect reads the tables of the current database into a schema named
// after it.
func introspect(ctx context.Context, db *sql.DB, driver string) (*schema.Schema, error) {
	var (
		name   string
		tables []tableInfo
		err    error
	)
	switch driver {
	case "sqlite3":
		name = "main"
		tables, err = introspectSQLite(ctx, db)
	case "postgres":
		if err := db.QueryRowContext(ctx, "SELECT current_schema()").Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read current schema: %w", err)
		}
		tables, err = introspectInformationSchema(ctx, db, name, "$1", "$2")
	case "mysql":
		if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read database name: %w", err)
		}
		tables, err = introspectInformationSchema(ctx, db, name, "?", "?")
	default:
		return nil, fmt.Errorf("introspection not supported for %s", driver)
	}
	if err != nil {
		return nil, err
	}
	return buildSchema(name, tables)
}

func buildSchema(name string, tables []tableInfo) (*schema.Schema, error) {
	primaryKeys := make(map[string][]string, len(tables))
	for _, t := range tables {
		for _, c := range t.columns {
			if c.pk {
				primaryKeys[t.name] = append(primaryKeys[t.name], c.name)
			}
		}
	}

	b := schema.NewBuilder(name)
	for _, t := range tables {
		tb := b.Table(t.name)
		if t.view {
			tb.Type(schema.TableTypeView)
		}
		for _, c := range t.columns {
			opts := []schema.ColumnOption{schema.Nullable(c.nullable), schema.NativeType(c.native)}
			if c.pk {
				opts = append(opts, schema.PrimaryKey())
			}
			if c.size > 0 {
				opts = append(opts, schema.Size(c.size))
			}
			tb.Column(c.name, schema.ParseColumnType(c.native), opts...)
		}
	}
	for _, t := range tables {
		for _, fk := range t.foreignKeys {
			referenced := fk.referencedColumns
			// SQLite leaves the target columns empty when the key
			// references the primary key implicitly.
			if len(referenced) == 0 || referenced[0] == "" {
				referenced = primaryKeys[fk.referencedTable]
			}
			b.Relationship(fk.referencedTable, referenced, t.name, fk.columns)
		}
	}
	return b.Build()
}

func introspectSQLite(ctx context.Context, db *sql.DB) ([]tableInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, type
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	var tables []tableInfo
	for rows.Next() {
		var t tableInfo
		var typ string
		if err := rows.Scan(&t.name, &typ); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		t.view = typ == "view"
		tables = append(tables, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		t := &tables[i]
		if t.columns, err = sqliteColumns(ctx, db, t.name); err != nil {
			return nil, fmt.Errorf("failed to introspect columns for %s: %w", t.name, err)
		}
		if t.foreignKeys, err = sqliteForeignKeys(ctx, db, t.name); err != nil {
			return nil, fmt.Errorf("failed to introspect foreign keys for %s: %w", t.name, err)
		}
	}
	return tables, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]columnInfo, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLite(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []columnInfo
	for rows.Next() {
		var (
			cid     int
			c       columnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &c.name, &c.native, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		c.nullable = notNull == 0 && pk == 0
		c.pk = pk > 0
		c.size = nativeSize(c.native)
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func sqliteForeignKeys(ctx context.Context, db *sql.DB, table string) ([]foreignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteSQLite(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// One row per column; rows of the same key share an id.
	byID := make(map[int]*foreignKey)
	var ids []int
	for rows.Next() {
		var (
			id, seq                     int
			refTable, from              string
			to                          sql.NullString
			onUpdate, onDelete, matches string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matches); err != nil {
			return nil, err
		}
		fk, ok := byID[id]
		if !ok {
			fk = &foreignKey{referencedTable: refTable}
			byID[id] = fk
			ids = append(ids, id)
		}
		fk.columns = append(fk.columns, from)
		fk.referencedColumns = append(fk.referencedColumns, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Ints(ids)
	out := make([]foreignKey, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byID[id])
	}
	return out, nil
}

// introspectInformationSchema reads PostgreSQL and MySQL catalogs. p1 and p2
// are the driver's first two placeholders.
func introspectInformationSchema(ctx context.Context, db *sql.DB, schemaName, p1, p2 string) ([]tableInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = `+p1+`
		ORDER BY table_name
	`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	var tables []tableInfo
	for rows.Next() {
		var t tableInfo
		var typ string
		if err := rows.Scan(&t.name, &typ); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		t.view = strings.EqualFold(typ, "VIEW")
		tables = append(tables, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		t := &tables[i]
		if t.columns, err = catalogColumns(ctx, db, schemaName, t.name, p1, p2); err != nil {
			return nil, fmt.Errorf("failed to introspect columns for %s: %w", t.name, err)
		}
		if t.foreignKeys, err = catalogForeignKeys(ctx, db, schemaName, t.name, p1, p2); err != nil {
			return nil, fmt.Errorf("failed to introspect foreign keys for %s: %w", t.name, err)
		}
	}
	return tables, nil
}

func catalogColumns(ctx context.Context, db *sql.DB, schemaName, table, p1, p2 string) ([]columnInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.column_name, c.data_type, c.is_nullable, c.character_maximum_length,
			CASE WHEN pk.column_name IS NULL THEN 0 ELSE 1 END
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.table_schema, kcu.table_name, kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
				AND tc.table_name = kcu.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
		) pk
			ON pk.table_schema = c.table_schema
			AND pk.table_name = c.table_name
			AND pk.column_name = c.column_name
		WHERE c.table_schema = `+p1+`
		  AND c.table_name = `+p2+`
		ORDER BY c.ordinal_position
	`, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []columnInfo
	for rows.Next() {
		var (
			c        columnInfo
			nullable string
			size     sql.NullInt64
			pk       int
		)
		if err := rows.Scan(&c.name, &c.native, &nullable, &size, &pk); err != nil {
			return nil, err
		}
		c.nullable = strings.EqualFold(nullable, "YES")
		c.pk = pk == 1
		if size.Valid && size.Int64 < 1<<31 {
			c.size = int(size.Int64)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// catalogForeignKeys pairs referencing and referenced columns by position
// through referential_constraints, which both databases provide.
func catalogForeignKeys(ctx context.Context, db *sql.DB, schemaName, table, p1, p2 string) ([]foreignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.constraint_name, kcu.column_name, rkcu.table_name, rkcu.column_name
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = rc.constraint_schema
			AND kcu.constraint_name = rc.constraint_name
		JOIN information_schema.key_column_usage rkcu
			ON rkcu.constraint_schema = rc.unique_constraint_schema
			AND rkcu.constraint_name = rc.unique_constraint_name
			AND rkcu.ordinal_position = kcu.ordinal_position
		WHERE kcu.table_schema = `+p1+`
		  AND kcu.table_name = `+p2+`
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out     []foreignKey
		current string
	)
	for rows.Next() {
		var name, column, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refTable, &refColumn); err != nil {
			return nil, err
		}
		if len(out) == 0 || name != current {
			out = append(out, foreignKey{referencedTable: refTable})
			current = name
		}
		fk := &out[len(out)-1]
		fk.columns = append(fk.columns, column)
		fk.referencedColumns = append(fk.referencedColumns, refColumn)
	}
	return out, rows.Err()
}

// nativeSize extracts n from declared types such as VARCHAR(n).
func nativeSize(native string) int {
	open := strings.IndexByte(native, '(')
	end := strings.IndexAny(native, ",)")
	if open < 0 || end < open {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(native[open+1:end], "%d", &n); err != nil {
		return 0
	}
	return n
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
