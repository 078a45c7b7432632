package sql

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tether/schema/field"
)

func TestConditionText(t *testing.T) {
	p := NewParams()
	tests := []struct {
		name string
		cond *Condition
		want string
		args []any
	}{
		{"eq", p.EQ("s.id", 42), "(${s.id} = ?)", []any{42}},
		{"neq", p.NEQ("s.name", "Ada"), "(${s.name} != ?)", []any{"Ada"}},
		{"gt", p.GT("s.gpa", 3.5), "(${s.gpa} > ?)", []any{3.5}},
		{"gte", p.GTE("s.gpa", 3.5), "(${s.gpa} >= ?)", []any{3.5}},
		{"lt", p.LT("s.gpa", 2), "(${s.gpa} < ?)", []any{2}},
		{"lte", p.LTE("s.gpa", 2), "(${s.gpa} <= ?)", []any{2}},
		{"between", p.Between("s.gpa", 3, 4), "(${s.gpa} BETWEEN ? AND ?)", []any{3, 4}},
		{"in", p.In("m.code", "CS101", "CS102", "MA101"), "(${m.code} IN (?, ?, ?))", []any{"CS101", "CS102", "MA101"}},
		{"not in", p.NotIn("m.id", 1), "(${m.id} NOT IN (?))", []any{1}},
		{"starts with", p.Like("s.name", "Ad", StartsWith), "(${s.name} LIKE ?)", []any{"Ad%"}},
		{"ends with", p.Like("s.name", "da", EndsWith), "(${s.name} LIKE ?)", []any{"%da"}},
		{"anywhere", p.NotLike("s.name", "d", Anywhere), "(${s.name} NOT LIKE ?)", []any{"%d%"}},
		{"exact", p.Like("s.name", "Ada", Exact), "(${s.name} LIKE ?)", []any{"Ada"}},
		{"is null", p.IsNull("f.id"), "(${f.id} IS NULL)", nil},
		{"not null", p.NotNull("f.id"), "(${f.id} IS NOT NULL)", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.String())
			assert.Equal(t, tt.args, tt.cond.Args())
			assert.True(t, tt.cond.Leaf())
			assert.NoError(t, tt.cond.Err())
		})
	}
	assert.Equal(t, 16, p.Len())
}

func TestParamsOrder(t *testing.T) {
	p := NewParams()
	a := p.EQ("s.id", 42)
	b := p.Between("s.gpa", 3.0, 4.0)
	c := p.In("m.code", "CS101", "MA101")

	assert.Equal(t, []any{42, 3.0, 4.0, "CS101", "MA101"}, p.Values())
	assert.Equal(t, 1, a.Position())
	assert.Equal(t, 2, b.Position())
	assert.Equal(t, 4, c.Position())
	v, ok := p.At(3)
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
	_, ok = p.At(6)
	assert.False(t, ok)

	// Combining never re-appends parameters.
	cond := Or(And(a, b), c)
	assert.Equal(t, 5, p.Len())
	assert.Equal(t, "(((${s.id} = ?) AND (${s.gpa} BETWEEN ? AND ?)) OR (${m.code} IN (?, ?)))", cond.String())
	assert.Equal(t, p.Values(), cond.Args())
	assert.Equal(t, []string{"s.id", "s.gpa", "m.code"}, cond.Paths())
	assert.Equal(t, OpOr, cond.Op())
	assert.Len(t, cond.Children(), 2)

	p.Reset()
	assert.Zero(t, p.Len())
	assert.Equal(t, []any{42}, a.Args(), "conditions keep their values after a reset")
}

func TestCompound(t *testing.T) {
	p := NewParams()
	a, b, c := p.EQ("s.id", 1), p.EQ("s.id", 2), p.EQ("s.id", 3)
	assert.Nil(t, And())
	assert.Nil(t, Or(nil, nil))
	assert.Same(t, a, And(nil, a))
	assert.Equal(t, "((${s.id} = ?) OR (${s.id} = ?) OR (${s.id} = ?))", Or(a, b, c).String())
	assert.Equal(t, []any{3, 1}, And(c, a).Args(), "args follow text order")
}

func TestConditionKeepsValues(t *testing.T) {
	p := NewParams()
	ids := []any{1, 2}
	in := p.In("s.id", ids...)
	notIn := p.NotIn("m.id", ids...)
	ids[0] = 99
	assert.Equal(t, []any{1, 2}, in.Args())
	assert.Equal(t, []any{1, 2}, notIn.Args())
	assert.Equal(t, []any{1, 2, 1, 2}, p.Values())
}

func TestConditionErr(t *testing.T) {
	p := NewParams()
	require.Error(t, p.In("m.id").Err())
	require.Error(t, And(p.EQ("s.id", 1), p.NotIn("m.id")).Err())
	require.Error(t, p.EQ("", 1).Err())
}

func TestParseOp(t *testing.T) {
	for in, want := range map[string]Op{
		"eq": OpEQ, "=": OpEQ, "<>": OpNEQ, "gte": OpGTE, "LIKE": OpLike,
		"not_like": OpNotLike, "between": OpBetween, "not in": OpNotIn, "isnull": OpIsNull, "or": OpOr,
	} {
		op, err := ParseOp(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, op, in)
	}
	_, err := ParseOp("~")
	require.Error(t, err)
}

func TestMatchMode(t *testing.T) {
	for _, m := range []MatchMode{Exact, StartsWith, EndsWith, Anywhere} {
		got, err := ParseMatchMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	m, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, Exact, m)
	_, err = ParseMatchMode("fuzzy")
	require.Error(t, err)
}

func TestAggregateColumn(t *testing.T) {
	a := Sum("s.gpa")
	assert.Equal(t, "SUM(student.gpa)", a.Expr("student.gpa"))
	assert.Equal(t, "this_sum__student__gpa_", a.As("student", "gpa"))
	assert.Equal(t, "SUM(${s.gpa})", a.String())

	c := Count("s.id").Unique()
	assert.True(t, c.Distinct)
	assert.Equal(t, "COUNT(DISTINCT student.student_number)", c.Expr("student.student_number"))
	assert.Equal(t, "this_count__student__student_number_", c.As("student", "student_number"))
	assert.Equal(t, "this_max__student__enrolledon_", Max("s.enrolled").As("Student", "EnrolledOn"))

	for _, f := range []*AggregateColumn{Avg("p"), Min("p"), Max("p"), First("p"), Last("p")} {
		got, err := ParseFunc(string(f.Func))
		require.NoError(t, err)
		assert.Equal(t, f.Func, got)
	}
	f, err := ParseFunc("average")
	require.NoError(t, err)
	assert.Equal(t, FuncAvg, f)
	_, err = ParseFunc("median")
	require.Error(t, err)
}

func TestOrderTerm(t *testing.T) {
	assert.Equal(t, "${s.name} DESC", OrderTerm{Path: "s.name", Direction: Desc}.String())
	assert.Equal(t, "${s.name} ASC", OrderTerm{Path: "s.name"}.String())
	d, err := ParseDirection("desc")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)
	_, err = ParseDirection("sideways")
	require.Error(t, err)
}

func TestExpand(t *testing.T) {
	columns := map[string]string{"s.id": "student.student_number", "f.name": "faculty.name"}
	resolve := func(path string) (string, error) {
		if c, ok := columns[path]; ok {
			return c, nil
		}
		return "", errors.New("unknown " + path)
	}

	got, err := Expand("(${s.id} = ?) AND (${f.name} LIKE ?) ORDER BY ${s.id} ASC", resolve)
	require.NoError(t, err)
	assert.Equal(t, "(student.student_number = ?) AND (faculty.name LIKE ?) ORDER BY student.student_number ASC", got)

	_, err = Expand("(${ghost.field} = ?)", resolve)
	require.EqualError(t, err, "unknown ghost.field")
	_, err = Expand("(${s.id = ?)", resolve)
	require.Error(t, err)

	assert.Equal(t, []string{"s.id", "f.name"}, Placeholders("${s.id} ${f.name} ${broken"))

	alias, name, ok := SplitPath("student.faculty.name")
	require.True(t, ok)
	assert.Equal(t, "student.faculty", alias)
	assert.Equal(t, "name", name)
	for _, bad := range []string{"", "name", ".name", "s."} {
		_, _, ok := SplitPath(bad)
		assert.False(t, ok, bad)
	}
}

func TestBind(t *testing.T) {
	day := time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)
	var nilp *int
	args, err := Bind([]any{
		true, int16(1), int32(2), 3, 4.5, "s",
		decimal.RequireFromString("9.990"),
		field.NewDate(day), day, nil, nilp, field.Null{},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{
		true, int64(1), int64(2), int64(3), 4.5, "s",
		"9.99", day, day, nil, nil, nil,
	}, args)

	_, err = Bind([]any{1, struct{}{}})
	var berr *BindError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 2, berr.Position)
	assert.ErrorIs(t, err, field.ErrUnsupported)
	assert.Contains(t, err.Error(), "parameter 2")
}
