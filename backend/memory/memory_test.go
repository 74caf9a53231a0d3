package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/engine"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

func newBackend(t *testing.T) (*Backend, *schema.Table) {
	t.Helper()
	b := schema.NewBuilder("oss")
	b.Table("contributor").
		Column("id", schema.TypeInteger, schema.PrimaryKey()).
		Column("name", schema.TypeVarchar).
		Column("country", schema.TypeVarchar, schema.Nullable(true))
	s := b.MustBuild()

	mem := New(s)
	require.NoError(t, mem.Load("contributor",
		[]any{1, "kasper", "denmark"},
		[]any{2, "asbjorn", "denmark"},
		[]any{3, "johny", "israel"},
	))
	return mem, s.MustTable("contributor")
}

func TestLoadRejectsShortRows(t *testing.T) {
	mem, _ := newBackend(t)
	assert.Error(t, mem.Load("contributor", []any{4, "daniel"}))
	assert.Error(t, mem.Load("nope", []any{1}))
}

func TestMaterialize(t *testing.T) {
	mem, contributor := newBackend(t)
	columns := []*schema.Column{contributor.MustColumn("country"), contributor.MustColumn("name")}

	ds, err := mem.Materialize(context.Background(), contributor, columns, 2, 1)
	require.NoError(t, err)
	values, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"denmark", "asbjorn"}}, values)

	ds, err = mem.Materialize(context.Background(), contributor, columns, 10, -1)
	require.NoError(t, err)
	n, err := dataset.Count(ds)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCount(t *testing.T) {
	mem, contributor := newBackend(t)
	country := query.NewColumnItem(contributor.MustColumn("country"))

	n, ok, err := mem.Count(context.Background(), contributor, []*query.FilterItem{query.NewFilter(country, query.OpEquals, "denmark")})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)

	_, ok, err = mem.Count(context.Background(), contributor, []*query.FilterItem{query.NewFilter(country, query.OpEquals, query.NewParameter())})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupByPrimaryKey(t *testing.T) {
	mem, contributor := newBackend(t)
	columns := []*schema.Column{contributor.MustColumn("name")}
	id := contributor.MustColumn("id")

	row, ok, err := mem.LookupByPrimaryKey(context.Background(), contributor, columns, id, int64(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, row)
	assert.Equal(t, []any{"johny"}, row.Values())

	row, ok, err = mem.LookupByPrimaryKey(context.Background(), contributor, columns, id, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, row)
}

func TestWrites(t *testing.T) {
	mem, _ := newBackend(t)
	e, err := engine.New(mem, engine.WithUpdater(mem.Updater()))
	require.NoError(t, err)
	ctx := context.Background()

	project, err := e.CreateTable(ctx, engine.TableDefinition{
		Name: "project",
		Columns: []engine.ColumnDefinition{
			{Name: "id", Type: schema.TypeInteger, PrimaryKey: true},
			{Name: "title", Type: schema.TypeVarchar, Nullable: true},
		},
	})
	require.NoError(t, err)

	_, err = e.CreateTable(ctx, engine.TableDefinition{Name: "project", Columns: []engine.ColumnDefinition{{Name: "id"}}})
	assert.Error(t, err)

	n, err := e.Insert(ctx, project, []*schema.Column{project.MustColumn("id")}, [][]any{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ds, err := e.Query(ctx, "SELECT id, title FROM project")
	require.NoError(t, err)
	values, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{1, nil}, {2, nil}}, values)

	n, err = e.Delete(ctx, project, query.NewFilter(query.NewColumnItem(project.MustColumn("id")), query.OpEquals, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, e.DropTable(ctx, project))
	s, err := mem.MainSchema(ctx)
	require.NoError(t, err)
	_, err = s.Table("project")
	assert.True(t, schema.IsNotFound(err))
	_, err = s.Table("contributor")
	assert.NoError(t, err)
}
