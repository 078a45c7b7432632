package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tether"
	"github.com/syssam/tether/internal/fixture"
	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/schema/edge"
)

func TestCreateRoot(t *testing.T) {
	g := NewGraph(schema.NewRegistry())
	root, err := g.CreateRoot(fixture.Student{}, "s")
	require.NoError(t, err)
	assert.True(t, root.Root())
	assert.Equal(t, -1, root.Parent)
	assert.Empty(t, root.Path)
	assert.Equal(t, "student", root.Entity.Table)
	assert.Len(t, root.Columns, 4)
	assert.Same(t, root, g.Root())

	_, err = g.CreateRoot(fixture.Faculty{}, "f")
	require.Error(t, err)
	assert.Len(t, g.Nodes(), 1)
}

func TestCreateRootUnmapped(t *testing.T) {
	type plain struct{ ID int64 }
	type tableless struct {
		schema.Model
		ID int64 `tether:"id,pk"`
	}
	tests := []struct {
		name   string
		entity any
		cause  error
	}{
		{"no marker", plain{}, tether.ErrNotAnEntity},
		{"no table", tableless{}, tether.ErrNoTableBound},
		{"unknown name", "Ghost", tether.ErrNotAnEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(schema.NewRegistry()).CreateRoot(tt.entity, "x")
			require.Error(t, err)
			assert.True(t, tether.IsUnmappedEntity(err))
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestAddJoin(t *testing.T) {
	g := NewGraph(schema.NewRegistry())
	_, err := g.CreateRoot(fixture.Student{}, "s")
	require.NoError(t, err)

	f, err := g.AddDirectJoin("s", "s.faculty", "f", edge.Default)
	require.NoError(t, err)
	assert.Equal(t, "s.faculty", f.Path)
	assert.Equal(t, 0, f.Parent)
	assert.Equal(t, "faculty", f.Relation.Field)

	m, err := g.AddJoin("s", "modules", "m", edge.Default)
	require.NoError(t, err)
	assert.Equal(t, []int{f.Index(), m.Index()}, g.Root().Children)

	joins := g.Joins()
	require.Len(t, joins, 2)
	assert.False(t, joins[0].Intermediate())
	assert.Equal(t, "INNER JOIN faculty ON (student.faculty_id = faculty.faculty_id)", joins[0].Edges[0].String())
	require.True(t, joins[1].Intermediate())
	assert.Equal(t, "LEFT OUTER JOIN student_module ON (student.student_number = student_module.student_number)", joins[1].Edges[0].String())
	assert.Equal(t, "LEFT OUTER JOIN module ON (student_module.module_id = module.module_id)", joins[1].Edges[1].String())

	n, ok := g.Lookup("s.modules")
	require.True(t, ok)
	assert.Same(t, m, n)
}

func TestAddJoinKind(t *testing.T) {
	g := NewGraph(schema.NewRegistry())
	_, err := g.CreateRoot(fixture.Student{}, "s")
	require.NoError(t, err)
	_, err = g.AddDirectJoin("s", "s.faculty", "f", edge.RightOuter)
	require.NoError(t, err)
	_, err = g.AddIntermediateJoin("s", "s.modules", "m", edge.Inner)
	require.NoError(t, err)
	assert.Equal(t, edge.RightOuter, g.Joins()[0].Edges[0].Kind)
	for _, e := range g.Joins()[1].Edges {
		assert.Equal(t, edge.Inner, e.Kind)
	}
}

func TestAddJoinErrors(t *testing.T) {
	newGraph := func(t *testing.T) *Graph {
		g := NewGraph(schema.NewRegistry())
		_, err := g.CreateRoot(fixture.Student{}, "s")
		require.NoError(t, err)
		return g
	}
	t.Run("plain column", func(t *testing.T) {
		_, err := newGraph(t).AddJoin("s", "s.name", "n", edge.Default)
		assert.True(t, tether.IsJoinNotDeclared(err))
	})
	t.Run("no such field", func(t *testing.T) {
		_, err := newGraph(t).AddJoin("s", "s.ghost", "x", edge.Default)
		assert.True(t, tether.IsJoinNotDeclared(err))
	})
	t.Run("direct through bridge", func(t *testing.T) {
		_, err := newGraph(t).AddDirectJoin("s", "s.modules", "m", edge.Default)
		assert.True(t, tether.IsJoinNotDeclared(err))
	})
	t.Run("intermediate without bridge", func(t *testing.T) {
		_, err := newGraph(t).AddIntermediateJoin("s", "s.faculty", "f", edge.Default)
		assert.True(t, tether.IsJoinNotDeclared(err))
	})
	t.Run("duplicate alias", func(t *testing.T) {
		g := newGraph(t)
		_, err := g.AddJoin("s", "s.faculty", "s", edge.Default)
		assert.True(t, tether.IsDuplicateAlias(err))
		var dup *tether.DuplicateAliasError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "s", dup.Alias)
		assert.Len(t, g.Nodes(), 1)
		assert.Empty(t, g.Joins())
	})
	t.Run("unknown parent", func(t *testing.T) {
		_, err := newGraph(t).AddJoin("x", "x.faculty", "f", edge.Default)
		assert.True(t, tether.IsUnresolvedPropertyPath(err))
	})
	t.Run("empty alias", func(t *testing.T) {
		_, err := newGraph(t).AddJoin("s", "s.faculty", "", edge.Default)
		require.Error(t, err)
	})
	t.Run("no root", func(t *testing.T) {
		_, err := NewGraph(nil).AddJoin("s", "s.faculty", "f", edge.Default)
		require.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	g := NewGraph(schema.NewRegistry())
	_, err := g.CreateRoot(fixture.Student{}, "s")
	require.NoError(t, err)
	_, err = g.AddJoin("s", "s.faculty", "f", edge.Default)
	require.NoError(t, err)

	for path, want := range map[string]string{
		"s.id":           "student.student_number",
		"s.enrolled":     "student.enrolled_on",
		"f.name":         "faculty.name",
		"s.faculty.name": "faculty.name",
	} {
		got, err := g.Qualify(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	for path, reason := range map[string]string{
		"ghost.field": `no alias "ghost"`,
		"s.ghost":     `Student has no column "ghost"`,
		"s.modules":   "Student.modules is a relation",
		"id":          "want alias.field",
	} {
		_, _, err := g.Resolve(path)
		var e *tether.UnresolvedPropertyPathError
		require.ErrorAs(t, err, &e, path)
		assert.Equal(t, path, e.Path)
		assert.Equal(t, reason, e.Reason)
	}
}

func TestDistinct(t *testing.T) {
	g := NewGraph(schema.NewRegistry())
	root, err := g.CreateRoot(fixture.Student{}, "s")
	require.NoError(t, err)
	require.NoError(t, g.Distinct("s.gpa"))

	fields := make([]string, len(root.Columns))
	for i, c := range root.Columns {
		fields[i] = c.Field
	}
	assert.Equal(t, []string{"gpa", "id", "name", "enrolled"}, fields)
	assert.True(t, root.Columns[0].Distinct)
	assert.False(t, root.Columns[1].Distinct)
	assert.True(t, tether.IsUnresolvedPropertyPath(g.Distinct("s.ghost")))
}
