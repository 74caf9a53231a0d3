package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/engine"
	"github.com/satishbabariya/relq/schema"
)

const contributorCSV = `id,name,country,score,joined
1,kasper,denmark,4.5,2020-01-02
2,asbjorn,denmark,3,2021-03-04
3,johny,israel,,2019-05-06 10:00:00
`

func newFixture(t *testing.T) (afero.Fs, *Backend) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/oss/contributor.csv", []byte(contributorCSV), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/oss/notes.txt", []byte("not a table"), 0o644))
	b, err := New(fs, "/data/oss")
	require.NoError(t, err)
	return fs, b
}

func TestDetectSchema(t *testing.T) {
	_, b := newFixture(t)
	s, err := b.MainSchema(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "oss", s.Name())
	require.Len(t, s.Tables(), 1)
	contributor := s.MustTable("contributor")

	tests := []struct {
		column   string
		typ      schema.ColumnType
		nullable bool
	}{
		{"id", schema.TypeBigInt, false},
		{"name", schema.TypeVarchar, false},
		{"country", schema.TypeVarchar, false},
		{"score", schema.TypeDouble, true},
		{"joined", schema.TypeDate, true},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			c := contributor.MustColumn(tt.column)
			assert.Equal(t, tt.typ, c.Type())
			nullable, _ := c.Nullable()
			assert.Equal(t, tt.nullable, nullable)
		})
	}
	size, ok := contributor.MustColumn("name").Size()
	assert.True(t, ok)
	assert.Equal(t, 7, size)
}

func TestDetectPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cells    []string
		want     schema.ColumnType
		nullable bool
	}{
		{"integers", []string{"1", "-2", "+3"}, schema.TypeBigInt, false},
		{"integers and decimals", []string{"1", "2.5"}, schema.TypeDouble, false},
		{"booleans", []string{"true", "FALSE"}, schema.TypeBoolean, false},
		{"dates", []string{"2020-01-01"}, schema.TypeDate, false},
		{"dates and timestamps", []string{"2020-01-01", "2020-01-01T10:00:00Z"}, schema.TypeDate, true},
		{"numbers and words", []string{"1", "one"}, schema.TypeBigInt, true},
		{"words and numbers", []string{"one", "1"}, schema.TypeVarchar, false},
		{"not a number", []string{"NaN", "Inf"}, schema.TypeVarchar, false},
		{"numbers and booleans", []string{"1", "true"}, schema.TypeBigInt, true},
		{"empty cell", []string{"1", ""}, schema.TypeBigInt, true},
		{"only empty", []string{"", ""}, schema.TypeVarchar, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d detector
			for _, c := range tt.cells {
				d.add(c)
			}
			typ, nullable, _ := d.result()
			assert.Equal(t, tt.want, typ)
			assert.Equal(t, tt.nullable, nullable)
		})
	}
}

func TestParseCell(t *testing.T) {
	assert.Equal(t, int64(3), parseCell("3", schema.TypeBigInt))
	assert.Equal(t, 3.0, parseCell("3", schema.TypeDouble))
	assert.Equal(t, "3", parseCell("3", schema.TypeVarchar))
	assert.Nil(t, parseCell("one", schema.TypeBigInt))
	assert.Nil(t, parseCell("NaN", schema.TypeDouble))
	assert.Nil(t, parseCell("2019-05-06 10:00:00", schema.TypeDate))
	assert.Nil(t, parseCell("", schema.TypeVarchar))
}

func TestMaterialize(t *testing.T) {
	_, b := newFixture(t)
	s, _ := b.MainSchema(context.Background())
	contributor := s.MustTable("contributor")
	columns := []*schema.Column{contributor.MustColumn("name"), contributor.MustColumn("score"), contributor.MustColumn("joined")}

	ds, err := b.Materialize(context.Background(), contributor, columns, 2, 2)
	require.NoError(t, err)
	values, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	require.Len(t, values, 2)

	assert.Equal(t, "asbjorn", values[0][0])
	assert.Equal(t, 3.0, values[0][1])
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), values[0][2])
	assert.Equal(t, "johny", values[1][0])
	assert.Nil(t, values[1][1])
	assert.Nil(t, values[1][2])
}

func TestQueryThroughEngine(t *testing.T) {
	_, b := newFixture(t)
	e, err := engine.New(b)
	require.NoError(t, err)
	defer e.Close()

	ds, err := e.Query(context.Background(), "SELECT country, COUNT(*) AS n FROM contributor GROUP BY country ORDER BY n DESC")
	require.NoError(t, err)
	values, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"denmark", int64(2)}, {"israel", int64(1)}}, values)

	_, err = e.Insert(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, engine.ErrUnsupportedOperation)
}

func TestReload(t *testing.T) {
	fs, b := newFixture(t)
	require.NoError(t, afero.WriteFile(fs, "/data/oss/role.csv", []byte("contributor_id;name\n1;founder\n"), 0o644))
	require.NoError(t, b.Reload())

	s, _ := b.MainSchema(context.Background())
	role, err := s.Table("role")
	require.NoError(t, err)
	// The default delimiter leaves a single column.
	assert.Equal(t, 1, role.ColumnCount())
}

func TestDelimiterOption(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/role.csv", []byte("contributor_id;name\n1;founder\n"), 0o644))
	b, err := New(fs, "/data", WithDelimiter(';'), WithSampleSize(0))
	require.NoError(t, err)

	s, _ := b.MainSchema(context.Background())
	role := s.MustTable("role")
	require.Equal(t, 2, role.ColumnCount())
	assert.Equal(t, schema.TypeBigInt, role.MustColumn("contributor_id").Type())
}

func TestMissingHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/empty.csv", nil, 0o644))
	_, err := New(fs, "/data")
	assert.ErrorContains(t, err, "missing header")
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contributor.csv"), []byte(contributorCSV), 0o644))
	b, err := New(afero.NewOsFs(), dir)
	require.NoError(t, err)
	require.NoError(t, b.Watch())
	defer b.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "role.csv"), []byte("contributor_id,name\n1,founder\n"), 0o644))
	require.Eventually(t, func() bool {
		s, _ := b.MainSchema(context.Background())
		_, err := s.Table("role")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEngineSeesReloadedSchema(t *testing.T) {
	fs, b := newFixture(t)
	e, err := engine.New(b)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	const sql = "SELECT name FROM contributor WHERE id = 1"
	ds, err := e.Query(ctx, sql)
	require.NoError(t, err)
	values, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"kasper"}}, values)

	require.NoError(t, afero.WriteFile(fs, "/data/oss/contributor.csv", []byte("id,name\n1,jesper\n"), 0o644))
	require.NoError(t, b.Reload())

	ds, err = e.Query(ctx, sql)
	require.NoError(t, err)
	values, err = dataset.CollectValues(ds)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"jesper"}}, values)
}
