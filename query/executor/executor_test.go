package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/schema"
)

type fixture struct {
	contributor *schema.Table
	role        *schema.Table
}

func newFixture() fixture {
	b := schema.NewBuilder("oss")
	b.Table("contributor").
		Column("id", schema.TypeInteger, schema.PrimaryKey()).
		Column("name", schema.TypeVarchar).
		Column("country", schema.TypeVarchar)
	b.Table("role").
		Column("contributor_id", schema.TypeInteger).
		Column("project_id", schema.TypeInteger).
		Column("name", schema.TypeVarchar)
	s := b.MustBuild()
	return fixture{contributor: s.MustTable("contributor"), role: s.MustTable("role")}
}

func (f fixture) contributors() dataset.DataSet {
	return dataset.FromValues(dataset.HeaderOf(f.contributor.Columns()...), [][]any{
		{1, "kasper", "denmark"},
		{2, "asbjorn", "denmark"},
		{3, "johny", "israel"},
		{4, "daniel", "canada"},
		{5, "sasidhar", "unknown"},
		{6, "jesper", "denmark"},
	})
}

func (f fixture) roles() dataset.DataSet {
	return dataset.FromValues(dataset.HeaderOf(f.role.Columns()...), [][]any{
		{1, 1, "founder"},
		{1, 1, "developer"},
		{1, 2, "developer"},
		{2, 1, "developer"},
		{2, 3, "developer"},
		{4, 1, "advisor"},
		{5, 2, "developer"},
		{6, 1, "founder"},
	})
}

func col(t *schema.Table, name string) *query.SelectItem {
	return query.NewColumnItem(t.MustColumn(name))
}

func values(t *testing.T, ds dataset.DataSet, err error) [][]any {
	t.Helper()
	require.NoError(t, err)
	out, err := dataset.CollectValues(ds)
	require.NoError(t, err)
	return out
}

func TestLike(t *testing.T) {
	tests := []struct {
		s, pattern string
		want       bool
	}{
		{"hello", "hello", true},
		{"hello", "h%", true},
		{"hello", "%llo", true},
		{"hello", "h_llo", true},
		{"hello", "h_lo", false},
		{"hello", "%l%l%", true},
		{"", "%", true},
		{"", "_", false},
		{"100%", `100\%`, true},
		{"1000", `100\%`, false},
		{"æøå", "_ø_", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Like(tt.s, tt.pattern), "%q LIKE %q", tt.s, tt.pattern)
	}
}

func TestEvaluateFilterThreeValuedLogic(t *testing.T) {
	f := newFixture()
	h := dataset.HeaderOf(f.contributor.Columns()...)
	row := dataset.NewRow(h, 1, "kasper", nil)
	country := col(f.contributor, "country")
	name := col(f.contributor, "name")

	tests := []struct {
		filter *query.FilterItem
		want   Truth
	}{
		{query.NewFilter(country, query.OpEquals, "dk"), Unknown},
		{query.NewFilter(country, query.OpDifferentFrom, "dk"), Unknown},
		{query.NewFilter(country, query.OpIsNull, nil), True},
		{query.NewFilter(name, query.OpEquals, "kasper"), True},
		{query.NewFilter(col(f.contributor, "id"), query.OpLessThan, "2"), True},
		{query.NewFilter(col(f.contributor, "id"), query.OpGreaterThanOrEqual, 1.5), False},
		{query.NewFilter(name, query.OpIn, []any{"x", nil}), Unknown},
		{query.NewFilter(name, query.OpNotIn, []any{"x", nil}), Unknown},
		{query.NewFilter(name, query.OpNotIn, []any{"x"}), True},
		{query.NewFilter(name, query.OpLike, "kas%"), True},
		{query.NewFilter(name, query.OpNotLike, "kas%"), False},
		{query.And(
			query.NewFilter(country, query.OpEquals, "dk"),
			query.NewFilter(name, query.OpEquals, "nobody"),
		), False},
		{query.Or(
			query.NewFilter(country, query.OpEquals, "dk"),
			query.NewFilter(name, query.OpEquals, "kasper"),
		), True},
		{query.Or(
			query.NewFilter(country, query.OpEquals, "dk"),
			query.NewFilter(name, query.OpEquals, "nobody"),
		), Unknown},
	}
	for _, tt := range tests {
		got, err := EvaluateFilter(tt.filter, row)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.filter.ToSQL())
	}
}

func TestEvaluateFilterRejectsExpressionsAndUnboundParameters(t *testing.T) {
	f := newFixture()
	row := dataset.NewRow(dataset.HeaderOf(f.contributor.Columns()...), 1, "a", "b")

	_, err := EvaluateFilter(query.NewExpressionFilter("id % 2 = 0"), row)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = EvaluateFilter(query.NewFilter(col(f.contributor, "id"), query.OpEquals, query.NewParameter()), row)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCarthesianProductCardinality(t *testing.T) {
	f := newFixture()

	ds, err := CarthesianProduct([]dataset.DataSet{f.contributors(), f.roles()})
	assert.Len(t, values(t, ds, err), 6*8)

	ds, err = CarthesianProduct([]dataset.DataSet{f.contributors(), f.roles(), f.contributors()})
	assert.Len(t, values(t, ds, err), 6*8*6)

	empty := dataset.Empty(dataset.HeaderOf(f.role.Columns()...))
	ds, err = CarthesianProduct([]dataset.DataSet{f.contributors(), empty})
	assert.Empty(t, values(t, ds, err))

	ds, err = CarthesianProduct([]dataset.DataSet{empty, f.contributors()})
	assert.Empty(t, values(t, ds, err))
}

func TestCarthesianProductOrderAndFilter(t *testing.T) {
	f := newFixture()
	h := dataset.HeaderOf(f.contributor.MustColumn("id"))
	a := dataset.FromValues(h, [][]any{{1}, {2}})
	b := dataset.FromValues(dataset.HeaderOf(f.role.MustColumn("contributor_id")), [][]any{{1}, {2}, {3}})

	ds, err := CarthesianProduct([]dataset.DataSet{a, b})
	assert.Equal(t, [][]any{{1, 1}, {1, 2}, {1, 3}, {2, 1}, {2, 2}, {2, 3}}, values(t, ds, err))

	a = dataset.FromValues(h, [][]any{{1}, {2}})
	b = dataset.FromValues(dataset.HeaderOf(f.role.MustColumn("contributor_id")), [][]any{{1}, {2}, {3}})
	on := query.NewFilter(col(f.contributor, "id"), query.OpEquals, col(f.role, "contributor_id"))
	ds, err = CarthesianProduct([]dataset.DataSet{a, b}, on)
	assert.Equal(t, [][]any{{1, 1}, {2, 2}}, values(t, ds, err))
}

func TestLeftJoinPadsMissingMatches(t *testing.T) {
	f := newFixture()
	left := dataset.FromValues(dataset.HeaderOf(f.contributor.Columns()...), [][]any{
		{1, "a", "x"}, {2, "b", "x"}, {3, "c", "y"}, {4, "d", "y"}, {5, "e", "z"},
	})
	right := dataset.FromValues(dataset.HeaderOf(f.role.Columns()...), [][]any{
		{1, 10, "founder"}, {2, 20, "developer"}, {4, 40, "advisor"},
	})
	on := []*query.FilterItem{query.NewFilter(col(f.contributor, "id"), query.OpEquals, col(f.role, "contributor_id"))}

	ds, err := Join(left, right, query.JoinLeft, on)
	rows := values(t, ds, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []any{3, "c", "y", nil, nil, nil}, rows[2])
	assert.Equal(t, []any{5, "e", "z", nil, nil, nil}, rows[4])
	assert.Equal(t, []any{4, "d", "y", 4, 40, "advisor"}, rows[3])
}

func TestJoinEmitsEveryMatch(t *testing.T) {
	f := newFixture()
	on := []*query.FilterItem{query.NewFilter(col(f.contributor, "id"), query.OpEquals, col(f.role, "contributor_id"))}

	ds, err := Join(f.contributors(), f.roles(), query.JoinInner, on)
	assert.Len(t, values(t, ds, err), 8)

	ds, err = Join(f.contributors(), f.roles(), query.JoinLeft, on)
	// contributor 3 has no roles
	assert.Len(t, values(t, ds, err), 9)
}

func TestRightJoinMirrorsLeftJoin(t *testing.T) {
	f := newFixture()
	extraRole := dataset.FromValues(dataset.HeaderOf(f.role.Columns()...), [][]any{
		{1, 1, "founder"}, {9, 1, "ghost"}, {3, 2, "developer"},
	})
	on := []*query.FilterItem{query.NewFilter(col(f.contributor, "id"), query.OpEquals, col(f.role, "contributor_id"))}

	ds, err := Join(f.contributors(), extraRole, query.JoinRight, on)
	right := values(t, ds, err)

	extraRole = dataset.FromValues(dataset.HeaderOf(f.role.Columns()...), [][]any{
		{1, 1, "founder"}, {9, 1, "ghost"}, {3, 2, "developer"},
	})
	ds, err = Join(extraRole, f.contributors(), query.JoinLeft, on)
	left := values(t, ds, err)

	require.Len(t, right, len(left))
	for i := range left {
		// left join output is role columns then contributor columns
		mirrored := append(append([]any{}, left[i][3:]...), left[i][:3]...)
		assert.Equal(t, mirrored, right[i])
	}
	assert.Equal(t, []any{nil, nil, nil, 9, 1, "ghost"}, right[1])
}

func TestContributorRoleScenario(t *testing.T) {
	f := newFixture()
	on := []*query.FilterItem{query.NewFilter(col(f.contributor, "id"), query.OpEquals, col(f.role, "contributor_id"))}
	roleName := col(f.role, "name")
	sum := query.NewFunctionItem(query.FunctionSum, f.role.MustColumn("project_id"))

	joined, err := Join(f.contributors(), f.roles(), query.JoinInner, on)
	require.NoError(t, err)
	grouped, err := GroupBy(joined, []*query.SelectItem{roleName}, []*query.SelectItem{roleName, sum})
	require.NoError(t, err)
	sorted, err := OrderBy(grouped, []*query.OrderByItem{query.Asc(roleName)})

	assert.Equal(t, [][]any{
		{"advisor", int64(1)},
		{"developer", int64(9)},
		{"founder", int64(2)},
	}, values(t, sorted, err))
}

func TestGroupByNullBucket(t *testing.T) {
	f := newFixture()
	ds := dataset.FromValues(dataset.HeaderOf(f.contributor.Columns()...), [][]any{
		{1, "a", nil}, {2, "b", "dk"}, {3, "c", nil}, {4, "d", "dk"}, {5, "e", "1"}, {6, "f", 1},
	})
	country := col(f.contributor, "country")

	grouped, err := GroupBy(ds, []*query.SelectItem{country}, []*query.SelectItem{country, query.CountAll()})
	assert.Equal(t, [][]any{
		{nil, int64(2)},
		{"dk", int64(2)},
		{"1", int64(1)},
		{1, int64(1)},
	}, values(t, grouped, err))
}

func TestAggregateDefaultsOverNulls(t *testing.T) {
	f := newFixture()
	ds := dataset.FromValues(dataset.HeaderOf(f.role.Columns()...), [][]any{{1, nil, "x"}, {2, nil, "y"}})
	pid := f.role.MustColumn("project_id")
	items := []*query.SelectItem{
		query.NewFunctionItem(query.FunctionCount, pid),
		query.NewFunctionItem(query.FunctionSum, pid),
		query.NewFunctionItem(query.FunctionAvg, pid),
		query.NewFunctionItem(query.FunctionMin, pid),
		query.NewFunctionItem(query.FunctionMax, pid),
		query.NewFunctionItem(query.FunctionFirst, pid),
		query.NewFunctionItem(query.FunctionLast, pid),
		query.NewFunctionItem(query.FunctionRandom, pid),
		query.CountAll(),
	}

	grouped, err := GroupBy(ds, nil, items)
	assert.Equal(t, [][]any{{int64(0), int64(0), nil, nil, nil, nil, nil, nil, int64(2)}}, values(t, grouped, err))

	empty := dataset.Empty(dataset.HeaderOf(f.role.Columns()...))
	grouped, err = GroupBy(empty, nil, []*query.SelectItem{query.CountAll()})
	assert.Equal(t, [][]any{{int64(0)}}, values(t, grouped, err))
}

func TestAggregates(t *testing.T) {
	f := newFixture()
	pid := f.role.MustColumn("project_id")
	items := []*query.SelectItem{
		query.NewFunctionItem(query.FunctionAvg, pid),
		query.NewFunctionItem(query.FunctionMin, pid),
		query.NewFunctionItem(query.FunctionMax, pid),
		query.NewFunctionItem(query.FunctionFirst, pid),
		query.NewFunctionItem(query.FunctionLast, pid),
	}
	grouped, err := GroupBy(f.roles(), nil, items)
	assert.Equal(t, [][]any{{1.5, 1, 3, 1, 1}}, values(t, grouped, err))
}

func TestOrderByIsStableWithNullsFirst(t *testing.T) {
	f := newFixture()
	rows := [][]any{
		{1, "b", "x"}, {2, nil, "x"}, {3, "a", "x"}, {4, "b", "x"}, {5, nil, "x"}, {6, "a", "x"},
	}
	name := col(f.contributor, "name")
	id := col(f.contributor, "id")

	ds := dataset.FromValues(dataset.HeaderOf(f.contributor.Columns()...), rows)
	sorted, err := OrderBy(ds, []*query.OrderByItem{query.Asc(name)})
	assert.Equal(t, []any{2, 5, 3, 6, 1, 4}, firstColumn(values(t, sorted, err)))

	ds = dataset.FromValues(dataset.HeaderOf(f.contributor.Columns()...), rows)
	sorted, err = OrderBy(ds, []*query.OrderByItem{query.Desc(name)})
	assert.Equal(t, []any{2, 5, 1, 4, 3, 6}, firstColumn(values(t, sorted, err)))

	ds = dataset.FromValues(dataset.HeaderOf(f.contributor.Columns()...), rows)
	sorted, err = OrderBy(ds, []*query.OrderByItem{query.Asc(name), query.Desc(id)})
	assert.Equal(t, []any{5, 2, 6, 3, 4, 1}, firstColumn(values(t, sorted, err)))
}

func TestOrderByComparesNumbersNumerically(t *testing.T) {
	f := newFixture()
	ds := dataset.FromValues(dataset.HeaderOf(f.contributor.Columns()...), [][]any{{10}, {9}, {int64(100)}, {2.5}})
	sorted, err := OrderBy(ds, []*query.OrderByItem{query.Asc(col(f.contributor, "id"))})
	assert.Equal(t, []any{2.5, 9, 10, int64(100)}, firstColumn(values(t, sorted, err)))
}

func firstColumn(rows [][]any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[0]
	}
	return out
}

func TestPaginate(t *testing.T) {
	f := newFixture()

	all, err := dataset.CollectValues(f.contributors())
	require.NoError(t, err)

	got, err := dataset.CollectValues(Paginate(f.contributors(), 1, 4))
	require.NoError(t, err)
	assert.Equal(t, all[:4], got)

	got, err = dataset.CollectValues(Paginate(f.contributors(), 3, 2))
	require.NoError(t, err)
	assert.Equal(t, all[2:4], got)

	got, err = dataset.CollectValues(Paginate(f.contributors(), 5, -1))
	require.NoError(t, err)
	assert.Equal(t, all[4:], got)

	got, err = dataset.CollectValues(Paginate(f.contributors(), 1, 0))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = dataset.CollectValues(Paginate(f.contributors(), 10, 3))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDistinctIsIdempotent(t *testing.T) {
	f := newFixture()
	name := col(f.role, "name")

	once, err := SubSelect(f.roles(), []*query.SelectItem{name})
	require.NoError(t, err)
	a, err := dataset.CollectValues(Distinct(once))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"founder"}, {"developer"}, {"advisor"}}, a)

	twice, err := SubSelect(f.roles(), []*query.SelectItem{name})
	require.NoError(t, err)
	b, err := dataset.CollectValues(Distinct(Distinct(twice)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSubSelectResolvesDuplicatesByPosition(t *testing.T) {
	f := newFixture()
	from1 := query.NewTableFrom(f.contributor).As("a")
	from2 := query.NewTableFrom(f.contributor).As("b")
	id := f.contributor.MustColumn("id")
	h := dataset.NewHeader(query.NewColumnItem(id).Of(from1), query.NewColumnItem(id).Of(from2))
	ds := dataset.FromValues(h, [][]any{{1, 2}})

	out, err := SubSelect(ds, []*query.SelectItem{query.NewColumnItem(id), query.NewColumnItem(id)})
	assert.Equal(t, [][]any{{1, 2}}, values(t, out, err))

	ds = dataset.FromValues(h, [][]any{{1, 2}})
	out, err = SubSelect(ds, []*query.SelectItem{query.NewColumnItem(id).Of(from2), query.NewColumnItem(id).Of(from1)})
	assert.Equal(t, [][]any{{2, 1}}, values(t, out, err))
}

func TestSubSelectEvaluatesScalarFunctions(t *testing.T) {
	f := newFixture()
	id := f.contributor.MustColumn("id")
	name := f.contributor.MustColumn("name")

	out, err := SubSelect(f.contributors(), []*query.SelectItem{
		query.NewFunctionItem(query.FunctionToString, id),
		query.NewColumnItem(name).As("who"),
		query.NewFunctionItem(query.FunctionToNumber, name),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"TO_STRING(contributor.id)", "who", "TO_NUMBER(contributor.name)"}, out.Header().Labels())
	rows := values(t, out, nil)
	assert.Equal(t, []any{"1", "kasper", nil}, rows[0])

	_, err = SubSelect(f.contributors(), []*query.SelectItem{col(f.role, "name")})
	assert.Error(t, err)
}

func TestScalarFunctions(t *testing.T) {
	v, err := ApplyScalar(query.FunctionToDate, "2024-02-03", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), v)

	v, err = ApplyScalar(query.FunctionToDate, "03/02/2024", []any{"02/01/2006"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), v)

	v, err = ApplyScalar(query.FunctionToBoolean, "yes", nil)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = ApplyScalar(query.FunctionToNumber, "12.5", nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	v, err = ApplyScalar(query.FunctionToString, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-03", v)

	doc := map[string]any{"address": map[string]any{"lines": []any{"main st", "apt 2"}}}
	v, err = ApplyScalar(query.FunctionMapValue, doc, []any{"address.lines[1]"})
	require.NoError(t, err)
	assert.Equal(t, "apt 2", v)
	assert.Nil(t, MapValue(doc, "address.zip"))
}

func TestCompare(t *testing.T) {
	c, ok := Compare(1, 2.5)
	assert.True(t, ok)
	assert.Equal(t, -1, c)

	c, _ = Compare("10", 9)
	assert.Equal(t, 1, c)

	c, _ = Compare(true, false)
	assert.Equal(t, 1, c)

	c, _ = Compare(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "2021-01-01")
	assert.Equal(t, -1, c)

	_, ok = Compare(nil, 1)
	assert.False(t, ok)
	assert.True(t, Equal(int64(3), 3))
}
