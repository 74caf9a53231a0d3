package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/query/parser"
	"github.com/satishbabariya/relq/schema"
)

func testSchema() *schema.Schema {
	b := schema.NewBuilder("oss")
	b.Table("contributor").
		Column("id", schema.TypeInteger, schema.PrimaryKey()).
		Column("name", schema.TypeVarchar).
		Column("country", schema.TypeVarchar, schema.Nullable(true))
	b.Table("role").
		Column("contributor_id", schema.TypeInteger).
		Column("project_id", schema.TypeInteger).
		Column("name", schema.TypeVarchar)
	return b.MustBuild()
}

func TestQueryBuilderMatchesParser(t *testing.T) {
	s := testSchema()

	built, err := NewQueryBuilder(s, "contributor", "").
		Select("name", "country").
		Where(NewWhereBuilder().GreaterThan("id", int64(2)).Like("name", "j%")).
		OrderBy("name", query.Descending).
		Limit(10).
		Offset(20).
		Build()
	require.NoError(t, err)

	parsed, err := parser.Parse("SELECT name, country FROM contributor WHERE id > 2 AND name LIKE 'j%' ORDER BY name DESC LIMIT 10 OFFSET 20", s)
	require.NoError(t, err)
	assert.Equal(t, parsed.ToSQL(), built.ToSQL())
}

func TestQueryBuilderSelectAll(t *testing.T) {
	q, err := NewQueryBuilder(testSchema(), "contributor", "").Build()
	require.NoError(t, err)
	assert.Len(t, q.SelectItems(), 3)
}

func TestQueryBuilderJoin(t *testing.T) {
	s := testSchema()

	q, err := NewQueryBuilder(s, "contributor", "c").
		Join(query.JoinLeft, "role", "r", "c.id", "r.contributor_id").
		Select("c.name", "r.name").
		Where(NewWhereBuilder().In("r.project_id", int64(1), int64(2))).
		Build()
	require.NoError(t, err)

	from := q.FromItems()
	require.Len(t, from, 1)
	require.True(t, from[0].IsJoin())
	assert.Equal(t, query.JoinLeft, from[0].Join)

	items := q.SelectItems()
	require.Len(t, items, 2)
	assert.Same(t, from[0].Left, items[0].From)
	assert.Same(t, from[0].Right, items[1].From)
	assert.Equal(t, []any{int64(1), int64(2)}, q.WhereItems()[0].Operand)
}

func TestAggregates(t *testing.T) {
	s := testSchema()

	q, err := NewQueryBuilder(s, "role", "").
		Select("name").
		Count("n").
		Max("project_id", "last").
		GroupBy("name").
		Having(NewWhereBuilder().GreaterThan("n", 1)).
		OrderBy("n", query.Descending).
		Build()
	require.NoError(t, err)

	assert.True(t, q.IsAggregated())
	items := q.SelectItems()
	require.Len(t, items, 3)
	assert.True(t, items[1].IsCountAll())
	assert.Equal(t, query.FunctionMax, items[2].Function)
	assert.Equal(t, "last", items[2].Alias)

	having := q.HavingItems()
	require.Len(t, having, 1)
	assert.Same(t, items[1], having[0].Item)
}

func TestWhereGroups(t *testing.T) {
	s := testSchema()

	where := NewWhereBuilder().
		IsNotNull("country").
		OR(
			NewWhereBuilder().Equals("name", "kasper"),
			NewWhereBuilder().Equals("name", "johny"),
		)
	q, err := NewQueryBuilder(s, "contributor", "").Select("id").Where(where).Build()
	require.NoError(t, err)

	filters := q.WhereItems()
	require.Len(t, filters, 2)
	assert.Equal(t, query.OpIsNotNull, filters[0].Operator)
	assert.Equal(t, query.LogicOr, filters[1].Logic)
	assert.Len(t, filters[1].Children, 2)

	or, err := NewQueryBuilder(s, "contributor", "").
		Where(NewWhereBuilder().SetOperator(query.LogicOr).Equals("id", 1).Equals("id", 2).Param("name")).
		Build()
	require.NoError(t, err)
	require.Len(t, or.WhereItems(), 1)
	assert.Len(t, or.WhereItems()[0].Children, 3)
	assert.Len(t, or.Parameters(), 1)
}

func TestBuildErrors(t *testing.T) {
	s := testSchema()

	_, err := NewQueryBuilder(s, "nope", "").Build()
	assert.ErrorIs(t, err, schema.ErrNotFound)

	_, err = NewQueryBuilder(s, "contributor", "").Select("nope").Build()
	assert.ErrorIs(t, err, schema.ErrNotFound)

	_, err = NewQueryBuilder(s, "contributor", "").
		Join(query.JoinInner, "role", "", "contributor.id", "role.contributor_id").
		Select("name").
		Build()
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
}
