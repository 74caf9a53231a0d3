// Package sqlgen generates SQL for the relational providers relq can query:
// PostgreSQL, MySQL and SQLite.
package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

// ErrUnsupported is returned when a query uses a construct the dialect cannot
// express. Callers fall back to evaluating the query themselves.
var ErrUnsupported = errors.New("not expressible in SQL dialect")

// Query represents a SQL query with arguments
type Query struct {
	SQL  string
	Args []any
}

// Dialect captures the syntax differences between providers.
type Dialect struct {
	Name string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// QuoteIdentifier quotes a table, column or alias name.
	QuoteIdentifier func(name string) string
	// NullsSmallest is set when the database sorts NULL before any value.
	NullsSmallest bool
	// UnboundedLimit is the LIMIT literal used when only an offset is given.
	UnboundedLimit string
	// NativeType renders a column type for CREATE TABLE.
	NativeType func(c ColumnDef) string
}

// Postgres is the PostgreSQL dialect.
var Postgres = Dialect{
	Name:            "postgres",
	Placeholder:     func(n int) string { return fmt.Sprintf("$%d", n) },
	QuoteIdentifier: quoteIdentifier,
	NativeType:      postgresType,
}

// MySQL is the MySQL dialect.
var MySQL = Dialect{
	Name:            "mysql",
	Placeholder:     func(int) string { return "?" },
	QuoteIdentifier: quoteIdentifierMySQL,
	NullsSmallest:   true,
	UnboundedLimit:  "18446744073709551615",
	NativeType:      mysqlType,
}

// SQLite is the SQLite dialect.
var SQLite = Dialect{
	Name:            "sqlite3",
	Placeholder:     func(int) string { return "?" },
	QuoteIdentifier: quoteIdentifier,
	NullsSmallest:   true,
	UnboundedLimit:  "-1",
	NativeType:      sqliteType,
}

// Generator renders statements in one dialect.
type Generator struct {
	dialect   Dialect
	rightJoin bool
}

// NewGenerator creates a generator for a provider or database/sql driver name.
func NewGenerator(provider string) (*Generator, error) {
	switch strings.ToLower(provider) {
	case "postgresql", "postgres":
		return &Generator{dialect: Postgres, rightJoin: true}, nil
	case "mysql":
		return &Generator{dialect: MySQL, rightJoin: true}, nil
	case "sqlite", "sqlite3":
		return &Generator{dialect: SQLite, rightJoin: true}, nil
	}
	return nil, fmt.Errorf("sqlgen: unsupported provider %q", provider)
}

// Dialect returns the dialect of g.
func (g *Generator) Dialect() Dialect { return g.dialect }

// SetRightJoin enables or disables RIGHT JOIN in generated queries.
func (g *Generator) SetRightJoin(enabled bool) *Generator {
	g.rightJoin = enabled
	return g
}

// ColumnDef describes a column of a table to create.
type ColumnDef struct {
	Name       string
	Type       schema.ColumnType
	Size       int
	Nullable   bool
	PrimaryKey bool
}

// Select reads columns of table, optionally paginated. firstRow is 1-based and
// maxRows < 0 means no limit. Paginated reads are ordered by the primary key
// so that pages are stable.
func (g *Generator) Select(table *schema.Table, columns []*schema.Column, firstRow, maxRows int) *Query {
	w := g.writer(table)
	w.write("SELECT ")
	w.columnList(columns)
	w.write(" FROM ")
	w.write(w.quote(table.Name()))
	if firstRow > 1 || maxRows >= 0 {
		if pks := table.PrimaryKeys(); len(pks) > 0 {
			w.write(" ORDER BY ")
			w.columnList(pks)
		}
		w.limit(firstRow, maxRows)
	}
	return w.query()
}

// Count counts the rows of table matching every filter. It fails with
// ErrUnsupported when a filter reaches outside table.
func (g *Generator) Count(table *schema.Table, where []*query.FilterItem) (*Query, error) {
	w := g.writer(table)
	w.write("SELECT COUNT(*) FROM ")
	w.write(w.quote(table.Name()))
	if err := w.where(" WHERE ", where); err != nil {
		return nil, err
	}
	return w.query(), nil
}

// Lookup reads the row of table whose pk equals value.
func (g *Generator) Lookup(table *schema.Table, columns []*schema.Column, pk *schema.Column, value any) *Query {
	w := g.writer(table)
	w.write("SELECT ")
	w.columnList(columns)
	w.write(" FROM ")
	w.write(w.quote(table.Name()))
	w.write(" WHERE ")
	w.write(w.quote(pk.Name()))
	w.write(" = ")
	w.write(w.arg(value))
	return w.query()
}

// Insert renders a single-row insert with one placeholder per column. The
// arguments are supplied per row by the caller.
func (g *Generator) Insert(table *schema.Table, columns []*schema.Column) string {
	w := g.writer(table)
	w.write("INSERT INTO ")
	w.write(w.quote(table.Name()))
	w.write(" (")
	w.columnList(columns)
	w.write(") VALUES (")
	for i := range columns {
		if i > 0 {
			w.write(", ")
		}
		w.write(g.dialect.Placeholder(i + 1))
	}
	w.write(")")
	return w.sb.String()
}

// Delete removes the rows of table matching every filter. Without filters
// every row is deleted.
func (g *Generator) Delete(table *schema.Table, where []*query.FilterItem) (*Query, error) {
	w := g.writer(table)
	w.write("DELETE FROM ")
	w.write(w.quote(table.Name()))
	if err := w.where(" WHERE ", where); err != nil {
		return nil, err
	}
	return w.query(), nil
}

// CreateTable renders a CREATE TABLE statement.
func (g *Generator) CreateTable(name string, columns []ColumnDef) string {
	var sb strings.Builder
	quote := g.dialect.QuoteIdentifier
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(quote(name))
	sb.WriteString(" (")
	var pks []string
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quote(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(g.dialect.NativeType(c))
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if c.PrimaryKey {
			pks = append(pks, quote(c.Name))
		}
	}
	if len(pks) > 0 {
		sb.WriteString(", PRIMARY KEY (")
		sb.WriteString(strings.Join(pks, ", "))
		sb.WriteByte(')')
	}
	sb.WriteByte(')')
	return sb.String()
}

// DropTable renders a DROP TABLE statement.
func (g *Generator) DropTable(name string) string {
	return "DROP TABLE " + g.dialect.QuoteIdentifier(name)
}

// quoteIdentifier quotes an identifier for PostgreSQL and SQLite
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteIdentifierMySQL quotes an identifier for MySQL
func quoteIdentifierMySQL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
