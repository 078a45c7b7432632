package query

import (
	"context"
	stdsql "database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/internal/fixture"
	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/schema/edge"
	"github.com/syssam/tether/schema/field"
)

func openSQLite(t *testing.T) *sql.Driver {
	t.Helper()
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(fixture.DDL)
	require.NoError(t, err)
	_, err = db.Exec(fixture.Seed)
	require.NoError(t, err)
	return sql.OpenDB(dialect.SQLite, db)
}

func TestSQLiteFetch(t *testing.T) {
	drv := openSQLite(t)
	ctx := context.Background()

	students, err := Fetch[fixture.Student](drv, "s").
		Join("s.faculty", "f", edge.LeftOuter).
		Join("s.modules", "m").
		OrderBy("s.id", sql.Asc).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, students, 3)

	ada, alan, grace := students[0], students[1], students[2]
	assert.Equal(t, "Ada", ada.Name)
	require.NotNil(t, ada.Faculty)
	assert.Equal(t, "Science", ada.Faculty.Name)
	codes := make([]string, len(ada.Modules))
	for i, m := range ada.Modules {
		codes[i] = m.Code
	}
	assert.ElementsMatch(t, []string{"CS101", "CS102", "MA101"}, codes)

	assert.Equal(t, "Alan", alan.Name)
	require.Len(t, alan.Modules, 1)
	assert.Equal(t, "MA101", alan.Modules[0].Code)

	assert.Equal(t, "Grace", grace.Name)
	assert.Nil(t, grace.Faculty)
	assert.Empty(t, grace.Modules)
	assert.Equal(t, 2023, grace.Enrolled.Year())
}

func TestSQLiteFetchWhere(t *testing.T) {
	drv := openSQLite(t)
	ctx := context.Background()

	q := Fetch[fixture.Student](drv, "s")
	p := q.P()
	students, err := q.Join("s.faculty", "f").
		Where(sql.Or(p.Between("s.gpa", 3.5, 4.0), p.Like("s.name", "Al", sql.StartsWith)), p.EQ("f.name", "Science")).
		OrderBy("s.gpa", sql.Desc).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ada", students[0].Name)
	assert.Equal(t, "Alan", students[1].Name)

	mq := Fetch[fixture.Module](drv, "m")
	m, err := mq.Where(mq.P().In("m.code", "CS102", "XX999")).Only(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), m.ID)

	f, err := Fetch[fixture.Faculty](drv, "f").OrderBy("f.name", sql.Asc).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Arts", f.Name)
}

func TestSQLiteAggregate(t *testing.T) {
	drv := openSQLite(t)
	ctx := context.Background()

	tuples, err := Aggregate(drv, fixture.Student{}, "s").
		Count("s.id").
		Max("s.gpa").
		Min("s.name").
		All(ctx)
	require.NoError(t, err)
	require.Len(t, tuples, 1)
	assert.Equal(t, Tuple{field.Int64(3), field.Float64(3.9), field.String("Ada")}, tuples[0])

	q := Aggregate(drv, fixture.Student{}, "s")
	tuples, err = q.JoinThrough("s.modules", "m").
		Where(q.P().EQ("s.id", 42)).
		Add(sql.Count("m.id").Unique()).
		Sum("m.credits").
		All(ctx)
	require.NoError(t, err)
	require.Len(t, tuples, 1)
	assert.Equal(t, Tuple{field.Int64(3), field.Int32(20)}, tuples[0])

	// The average of 5, 5 and 10 credits truncates to the column type.
	tuples, err = Aggregate(drv, fixture.Module{}, "m").Avg("m.credits").All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Tuple{{field.Int32(6)}}, tuples)
}

func TestSQLiteRecords(t *testing.T) {
	drv := openSQLite(t)
	reg := schema.NewRegistry()
	defs, err := schema.ReadDefinitions(strings.NewReader(fixture.Definitions))
	require.NoError(t, err)
	require.NoError(t, reg.Define(defs...))

	q := FetchEntity[schema.Record](drv, "Student", "s", WithRegistry(reg))
	rec, err := q.Join("s.modules", "m", edge.Inner).
		Where(q.P().EQ("s.id", 43)).
		Only(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":       int64(43),
		"name":     "Alan",
		"gpa":      3.4,
		"enrolled": mustDate(t, "2022-09-01"),
		"modules": []map[string]any{
			{"id": int64(12), "code": "MA101", "credits": int32(10)},
		},
	}, rec.Map())
}

func mustDate(t *testing.T, s string) any {
	t.Helper()
	v, err := field.Convert(s, field.Info{Type: field.TypeTime, Subkind: field.SubkindDate})
	require.NoError(t, err)
	return v.Interface()
}
