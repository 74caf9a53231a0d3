package sqldb

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/engine"
	"github.com/satishbabariya/relq/internal/pool"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

const fixtureDDL = `
CREATE TABLE contributor (
	id INTEGER PRIMARY KEY,
	name VARCHAR(64) NOT NULL,
	country VARCHAR(32)
);
CREATE TABLE role (
	contributor_id INTEGER NOT NULL REFERENCES contributor (id),
	project_id INTEGER NOT NULL,
	name VARCHAR(32) NOT NULL
);
INSERT INTO contributor VALUES
	(1, 'kasper', 'denmark'),
	(2, 'asbjorn', 'denmark'),
	(3, 'johny', 'israel'),
	(4, 'daniel', 'canada'),
	(5, 'Jens', NULL);
INSERT INTO role VALUES
	(1, 1, 'founder'),
	(1, 1, 'developer'),
	(1, 2, 'developer'),
	(2, 1, 'developer'),
	(4, 1, 'advisor');
`

// openFixture uses a database file since every connection to ":memory:"
// would see its own empty database.
func openFixture(t *testing.T) *Backend {
	t.Helper()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "oss.db")

	config := pool.DefaultConfig()
	config.HealthCheckInterval = 0
	b, err := Open(ctx, "sqlite", dsn, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = b.pool.DB().ExecContext(ctx, fixtureDDL)
	require.NoError(t, err)
	require.NoError(t, b.Refresh(ctx))
	return b
}

func TestOpenIntrospects(t *testing.T) {
	b := openFixture(t)
	s, err := b.MainSchema(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "main", s.Name())
	require.Len(t, s.Tables(), 2)

	contributor := s.MustTable("contributor")
	pks := contributor.PrimaryKeys()
	require.Len(t, pks, 1)
	assert.Equal(t, "id", pks[0].Name())
	assert.Equal(t, schema.TypeInteger, pks[0].Type())

	name := contributor.MustColumn("name")
	assert.Equal(t, schema.TypeVarchar, name.Type())
	size, ok := name.Size()
	assert.True(t, ok)
	assert.Equal(t, 64, size)
	nullable, _ := contributor.MustColumn("country").Nullable()
	assert.True(t, nullable)

	assert.Len(t, s.Relationships(), 1)
	assert.NotNil(t, b.Version())
	assert.Equal(t, "sqlite3", b.Driver())
}

func TestMaterializePaginates(t *testing.T) {
	b := openFixture(t)
	s, _ := b.MainSchema(context.Background())
	contributor := s.MustTable("contributor")

	ds, err := b.Materialize(context.Background(), contributor, []*schema.Column{contributor.MustColumn("name")}, 2, 2)
	require.NoError(t, err)
	values, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"asbjorn"}, {"johny"}}, values)
	assert.Equal(t, 0, b.sessions.Leased())
}

func TestMaterializeWithoutColumns(t *testing.T) {
	b := openFixture(t)
	s, _ := b.MainSchema(context.Background())

	ds, err := b.Materialize(context.Background(), s.MustTable("role"), nil, 1, -1)
	require.NoError(t, err)
	n, err := dataset.Count(ds)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCount(t *testing.T) {
	b := openFixture(t)
	ctx := context.Background()
	s, _ := b.MainSchema(ctx)
	contributor := s.MustTable("contributor")
	country := query.NewColumnItem(contributor.MustColumn("country"))

	n, ok, err := b.Count(ctx, contributor, []*query.FilterItem{query.NewFilter(country, query.OpEquals, "denmark")})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)

	_, ok, err = b.Count(ctx, contributor, []*query.FilterItem{query.NewFilter(country, query.OpEquals, query.NewParameter())})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupByPrimaryKey(t *testing.T) {
	b := openFixture(t)
	ctx := context.Background()
	s, _ := b.MainSchema(ctx)
	contributor := s.MustTable("contributor")
	columns := []*schema.Column{contributor.MustColumn("name"), contributor.MustColumn("country")}
	id := contributor.MustColumn("id")

	row, ok, err := b.LookupByPrimaryKey(ctx, contributor, columns, id, int64(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, row)
	assert.Equal(t, []any{"johny", "israel"}, row.Values())

	row, ok, err = b.LookupByPrimaryKey(ctx, contributor, columns, id, int64(99))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, row)
}

func newEngine(t *testing.T, b *Backend) *engine.Engine {
	t.Helper()
	e, err := engine.New(b, engine.WithUpdater(b.Updater()))
	require.NoError(t, err)
	return e
}

func TestQueriesThroughEngine(t *testing.T) {
	b := openFixture(t)
	e := newEngine(t, b)
	ctx := context.Background()

	tests := []struct {
		name string
		sql  string
		args []any
		want [][]any
	}{
		{
			name: "join with grouping",
			sql:  "SELECT c.name, COUNT(*) AS n FROM contributor c INNER JOIN role r ON c.id = r.contributor_id GROUP BY c.name ORDER BY c.name",
			want: [][]any{{"asbjorn", int64(1)}, {"daniel", int64(1)}, {"kasper", int64(3)}},
		},
		{
			name: "bound parameter",
			sql:  "SELECT name FROM contributor WHERE id = ?",
			args: []any{3},
			want: [][]any{{"johny"}},
		},
		{
			name: "case sensitive like",
			sql:  "SELECT name FROM contributor WHERE name LIKE 'j%'",
			want: [][]any{{"johny"}},
		},
		{
			name: "nulls sort first",
			sql:  "SELECT name FROM contributor ORDER BY country, name",
			want: [][]any{{"Jens"}, {"daniel"}, {"asbjorn"}, {"kasper"}, {"johny"}},
		},
		{
			name: "nulls sort first descending",
			sql:  "SELECT name FROM contributor ORDER BY country DESC, name",
			want: [][]any{{"Jens"}, {"johny"}, {"asbjorn"}, {"kasper"}, {"daniel"}},
		},
		{
			name: "sub-query",
			sql:  "SELECT t.name FROM (SELECT name, COUNT(*) AS n FROM role GROUP BY name) t WHERE t.n > 1 ORDER BY t.name",
			want: [][]any{{"developer"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := e.Query(ctx, tt.sql, tt.args...)
			require.NoError(t, err)
			values, err := dataset.CollectValues(ds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values)
		})
	}
	assert.Equal(t, 0, b.sessions.Leased())
}

func TestSumOverNullsIsZero(t *testing.T) {
	b := openFixture(t)
	ctx := context.Background()
	_, err := b.pool.DB().ExecContext(ctx, `
CREATE TABLE score (id INTEGER PRIMARY KEY, grp VARCHAR(8) NOT NULL, pts INTEGER);
INSERT INTO score VALUES (1, 'a', NULL), (2, 'a', NULL), (3, 'b', 4);`)
	require.NoError(t, err)
	require.NoError(t, b.Refresh(ctx))
	e := newEngine(t, b)

	cq, err := e.Prepare(ctx, "SELECT grp, SUM(pts) FROM score GROUP BY grp ORDER BY grp")
	require.NoError(t, err)
	ds, ok, err := b.ExecuteQuery(ctx, cq.Query())
	require.NoError(t, err)
	require.True(t, ok)
	values, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a", int64(0)}, {"b", int64(4)}}, values)
}

func TestWrites(t *testing.T) {
	b := openFixture(t)
	e := newEngine(t, b)
	ctx := context.Background()

	project, err := e.CreateTable(ctx, engine.TableDefinition{
		Name: "project",
		Columns: []engine.ColumnDefinition{
			{Name: "id", Type: schema.TypeInteger, PrimaryKey: true},
			{Name: "title", Type: schema.TypeVarchar, Size: 40, Nullable: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "project", project.Name())

	n, err := e.Insert(ctx, project, project.Columns(), [][]any{{1, "relq"}, {2, "engine"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ds, err := e.Query(ctx, "SELECT title FROM project ORDER BY id DESC")
	require.NoError(t, err)
	values, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"engine"}, {"relq"}}, values)

	n, err = e.Delete(ctx, project, query.NewFilter(query.NewColumnItem(project.MustColumn("id")), query.OpEquals, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, e.DropTable(ctx, project))
	s, _ := b.MainSchema(ctx)
	_, err = s.Table("project")
	assert.True(t, schema.IsNotFound(err))
}
