package gen

import (
	"context"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tether/internal/fixture"
	"github.com/syssam/tether/schema"
)

func entities(t *testing.T) []*schema.Entity {
	t.Helper()
	reg := schema.NewRegistry()
	defs, err := schema.ReadDefinitions(strings.NewReader(fixture.Definitions))
	require.NoError(t, err)
	require.NoError(t, reg.Define(defs...))
	return reg.Entities()
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Student", TypeName("Student"))
	assert.Equal(t, "Faculty", TypeName("faculty"))
	assert.Equal(t, "ID", FieldName("id"))
	assert.Equal(t, "FacultyID", FieldName("facultyId"))
	assert.Equal(t, "StudentNumber", FieldName("studentNumber"))
	assert.Equal(t, "EnrolledOn", FieldName("enrolled_on"))
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	paths, err := Generate(context.Background(), entities(t), Config{Package: "university", OutDir: dir, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "entities.go"),
		filepath.Join(dir, "faculty.go"),
		filepath.Join(dir, "module.go"),
		filepath.Join(dir, "student.go"),
	}, paths)

	fset := token.NewFileSet()
	for _, p := range paths {
		f, err := parser.ParseFile(fset, p, nil, parser.ParseComments)
		require.NoError(t, err, p)
		assert.Equal(t, "university", f.Name.Name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "student.go"))
	require.NoError(t, err)
	src := string(data)
	assert.True(t, strings.HasPrefix(src, "// Code generated by tether. DO NOT EDIT."))
	for _, re := range []string{
		`"github.com/syssam/tether/schema"`,
		`type Student struct`,
		"schema\\.Model\\s+`table:\"student\"`",
		"ID\\s+int64\\s+`tether:\"student_number,pk\"`",
		"Name\\s+string\\s+`tether:\"name\"`",
		"Gpa\\s+float64\\s+`tether:\"gpa\"`",
		"Enrolled\\s+time\\.Time\\s+`tether:\"enrolled_on,temporal=date\"`",
		"Faculty\\s+\\*Faculty\\s+`tether:\"faculty_id,references=faculty_id\"`",
		"Modules\\s+\\[\\]\\*Module\\s+`tether:\"student_number,bridge=student_module,from=student_number,to=module_id,references=module_id,kind=left\"`",
	} {
		assert.Regexp(t, re, src)
	}

	data, err = os.ReadFile(filepath.Join(dir, "entities.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "&Faculty{}, &Module{}, &Student{}")
}

func TestGenerateRoundTrip(t *testing.T) {
	// Tags written for a struct scan back into the same columns.
	type Student struct {
		schema.Model `table:"student"`
		ID           int64  `tether:"student_number,pk"`
		Name         string `tether:"name"`
	}
	reg := schema.NewRegistry()
	e, err := reg.Describe(&Student{})
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = Generate(context.Background(), []*schema.Entity{e}, Config{Package: "roundtrip", OutDir: dir})
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, strings.ToLower(e.Name)+".go"))
	require.NoError(t, err)
	assert.Regexp(t, "ID\\s+int64\\s+`tether:\"student_number,pk\"`", string(data))
	assert.Regexp(t, "Name\\s+string\\s+`tether:\"name\"`", string(data))
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()
	_, err := Generate(ctx, entities(t), Config{OutDir: t.TempDir()})
	require.Error(t, err)
	_, err = Generate(ctx, nil, Config{Package: "p", OutDir: t.TempDir()})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Generate(ctx, entities(t), Config{Package: "p", OutDir: t.TempDir()})
	require.ErrorIs(t, err, context.Canceled)
}
