package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/relq/query"
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
	b.Relationship("contributor", []string{"id"}, "role", []string{"contributor_id"})
	return b.MustBuild()
}

func generator(t *testing.T, provider string) *Generator {
	t.Helper()
	g, err := NewGenerator(provider)
	require.NoError(t, err)
	return g
}

func TestNewGenerator(t *testing.T) {
	assert.Equal(t, "postgres", generator(t, "postgresql").Dialect().Name)
	assert.Equal(t, "mysql", generator(t, "mysql").Dialect().Name)
	assert.Equal(t, "sqlite3", generator(t, "sqlite").Dialect().Name)

	_, err := NewGenerator("mssql")
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	s := testSchema()
	contributor := s.MustTable("contributor")
	columns := []*schema.Column{contributor.MustColumn("id"), contributor.MustColumn("name")}

	q := generator(t, "postgres").Select(contributor, columns, 1, -1)
	assert.Equal(t, `SELECT "id", "name" FROM "contributor"`, q.SQL)
	assert.Empty(t, q.Args)

	q = generator(t, "postgres").Select(contributor, columns, 2, 3)
	assert.Equal(t, `SELECT "id", "name" FROM "contributor" ORDER BY "id" LIMIT 3 OFFSET 1`, q.SQL)

	q = generator(t, "sqlite").Select(contributor, columns, 5, -1)
	assert.Equal(t, `SELECT "id", "name" FROM "contributor" ORDER BY "id" LIMIT -1 OFFSET 4`, q.SQL)

	q = generator(t, "mysql").Select(contributor, columns, 1, 10)
	assert.Equal(t, "SELECT `id`, `name` FROM `contributor` ORDER BY `id` LIMIT 10", q.SQL)
}

func TestCount(t *testing.T) {
	s := testSchema()
	contributor := s.MustTable("contributor")
	country := query.NewColumnItem(contributor.MustColumn("country"))
	id := query.NewColumnItem(contributor.MustColumn("id"))

	q, err := generator(t, "postgres").Count(contributor, []*query.FilterItem{
		query.NewFilter(country, query.OpEquals, "denmark"),
		query.NewFilter(id, query.OpIn, []int{3, 4}),
		query.NewFilter(country, query.OpIsNotNull, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "contributor" WHERE "country" = $1 AND "id" IN ($2, $3) AND "country" IS NOT NULL`, q.SQL)
	assert.Equal(t, []any{"denmark", 3, 4}, q.Args)

	q, err = generator(t, "mysql").Count(contributor, []*query.FilterItem{
		query.Or(query.NewFilter(id, query.OpLessThan, 2), query.NewFilter(id, query.OpIn, []any{})),
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM `contributor` WHERE (`id` < ? OR 1 = 0)", q.SQL)

	role := s.MustTable("role")
	_, err = generator(t, "postgres").Count(contributor, []*query.FilterItem{
		query.NewFilter(query.NewColumnItem(role.MustColumn("name")), query.OpEquals, "founder"),
	})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = generator(t, "postgres").Count(contributor, []*query.FilterItem{
		query.NewFilter(id, query.OpEquals, query.NewParameter()),
	})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLookupInsertDelete(t *testing.T) {
	s := testSchema()
	contributor := s.MustTable("contributor")
	role := s.MustTable("role")

	q := generator(t, "mysql").Lookup(contributor, contributor.Columns(), contributor.MustColumn("id"), 3)
	assert.Equal(t, "SELECT `id`, `name`, `country` FROM `contributor` WHERE `id` = ?", q.SQL)
	assert.Equal(t, []any{3}, q.Args)

	insert := generator(t, "postgres").Insert(role, []*schema.Column{role.MustColumn("contributor_id"), role.MustColumn("name")})
	assert.Equal(t, `INSERT INTO "role" ("contributor_id", "name") VALUES ($1, $2)`, insert)

	q, err := generator(t, "sqlite").Delete(role, nil)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "role"`, q.SQL)

	q, err = generator(t, "sqlite").Delete(role, []*query.FilterItem{
		query.NewFilter(query.NewColumnItem(role.MustColumn("name")), query.OpLike, "dev%"),
	})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "role" WHERE "name" LIKE ?`, q.SQL)
	assert.Equal(t, []any{"dev%"}, q.Args)
}

func TestCreateAndDropTable(t *testing.T) {
	columns := []ColumnDef{
		{Name: "id", Type: schema.TypeInteger, PrimaryKey: true},
		{Name: "name", Type: schema.TypeVarchar, Size: 64},
		{Name: "started", Type: schema.TypeDate, Nullable: true},
	}

	assert.Equal(t,
		`CREATE TABLE "project" ("id" INTEGER NOT NULL, "name" VARCHAR(64) NOT NULL, "started" DATE, PRIMARY KEY ("id"))`,
		generator(t, "sqlite").CreateTable("project", columns))
	assert.Equal(t,
		"CREATE TABLE `project` (`id` INT NOT NULL, `name` VARCHAR(64) NOT NULL, `started` DATE, PRIMARY KEY (`id`))",
		generator(t, "mysql").CreateTable("project", columns))
	assert.Equal(t, `DROP TABLE "project"`, generator(t, "postgres").DropTable("project"))
}

func TestGenerateJoinQuery(t *testing.T) {
	s := testSchema()
	contributor := s.MustTable("contributor")
	role := s.MustTable("role")
	rel := contributor.Relationships()[0]

	count := query.CountAll().As("n")
	q := query.New().
		Select(query.NewColumnItem(contributor.MustColumn("name")), count).
		From(query.NewRelationshipJoin(query.JoinInner, rel)).
		Where(query.NewFilter(query.NewColumnItem(role.MustColumn("name")), query.OpEquals, "developer")).
		GroupBy(query.NewColumnItem(contributor.MustColumn("name"))).
		OrderBy(query.Desc(count)).
		SetMaxRows(2)

	out, err := generator(t, "postgres").Generate(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "contributor"."name" AS "name", COUNT(*) AS "n" `+
		`FROM "contributor" "contributor" INNER JOIN "role" "role" ON "contributor"."id" = "role"."contributor_id" `+
		`WHERE "role"."name" = $1 GROUP BY "contributor"."name" ORDER BY COUNT(*) DESC LIMIT 2`, out.SQL)
	assert.Equal(t, []any{"developer"}, out.Args)

	out, err = generator(t, "sqlite").Generate(q)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `ORDER BY COUNT(*) IS NULL DESC, COUNT(*) DESC LIMIT 2`)
}

func TestGenerateSubQuery(t *testing.T) {
	s := testSchema()
	role := s.MustTable("role")

	inner := query.New().
		Select(query.NewColumnItem(role.MustColumn("name")), query.CountAll().As("n")).
		FromTable(role, "").
		GroupBy(query.NewColumnItem(role.MustColumn("name")))
	leaf := query.NewSubQueryFrom(inner, "t")
	n := query.NewSubQueryItem(leaf, inner.SelectItems()[1])
	q := query.New().
		Select(n).
		From(leaf).
		Where(query.NewFilter(n, query.OpGreaterThan, 1)).
		SetFirstRow(3)

	out, err := generator(t, "postgres").Generate(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "t"."n" AS "t.n" FROM (SELECT "role"."name" AS "name", COUNT(*) AS "n" FROM "role" "role" GROUP BY "role"."name") "t" WHERE "t"."n" > $1 OFFSET 2`, out.SQL)
	assert.Equal(t, []any{1}, out.Args)
}

func TestGenerateUnsupported(t *testing.T) {
	s := testSchema()
	contributor := s.MustTable("contributor")
	role := s.MustTable("role")
	name := query.NewColumnItem(contributor.MustColumn("name"))

	right := query.New().
		Select(name).
		From(query.NewJoin(query.JoinRight, query.NewTableFrom(contributor), query.NewTableFrom(role),
			query.NewFilter(query.NewColumnItem(contributor.MustColumn("id")), query.OpEquals, query.NewColumnItem(role.MustColumn("contributor_id")))))
	_, err := generator(t, "sqlite").Generate(right)
	require.NoError(t, err)
	_, err = generator(t, "sqlite").SetRightJoin(false).Generate(right)
	assert.ErrorIs(t, err, ErrUnsupported)

	tests := map[string]*query.Query{
		"parameter": query.New().Select(name).FromTable(contributor, "").
			Where(query.NewFilter(name, query.OpEquals, query.NewParameter())),
		"scalar function": query.New().Select(name.WithFunction(query.FunctionToNumber)).FromTable(contributor, ""),
		"distinct order": query.New().Select(name).FromTable(contributor, "").SetDistinct(true).OrderBy(query.Desc(name)),
	}
	for label, q := range tests {
		_, err := generator(t, "mysql").Generate(q)
		assert.ErrorIs(t, err, ErrUnsupported, label)
	}
}

func TestGenerateOrdersNullsFirst(t *testing.T) {
	s := testSchema()
	contributor := s.MustTable("contributor")
	country := query.NewColumnItem(contributor.MustColumn("country"))
	q := query.New().Select(country).FromTable(contributor, "")

	asc := q.Clone().OrderBy(query.Asc(country))
	desc := q.Clone().OrderBy(query.Desc(country))

	out, err := generator(t, "postgres").Generate(asc)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `ORDER BY "contributor"."country" ASC NULLS FIRST`)
	out, err = generator(t, "postgres").Generate(desc)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `ORDER BY "contributor"."country" DESC`)
	assert.NotContains(t, out.SQL, "NULLS FIRST")

	out, err = generator(t, "sqlite").Generate(asc)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `ORDER BY "contributor"."country" ASC`)
	assert.NotContains(t, out.SQL, "IS NULL")
	out, err = generator(t, "mysql").Generate(desc)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "ORDER BY `contributor`.`country` IS NULL DESC, `contributor`.`country` DESC")
}

func TestGenerateSumDefaultsToZero(t *testing.T) {
	s := testSchema()
	role := s.MustTable("role")
	sum := query.NewColumnItem(role.MustColumn("project_id")).WithFunction(query.FunctionSum)
	q := query.New().Select(sum).FromTable(role, "")

	out, err := generator(t, "postgres").Generate(q)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `SELECT COALESCE(SUM("role"."project_id"), 0) AS`)
}
