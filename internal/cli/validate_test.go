package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brokenDefinitions = `
entities:
  - name: Event
    table: event
    columns:
      - {column: starts_at, type: time}
`

func TestValidateCommand(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, "validate", "-s", w.schema)
	require.NoError(t, err)
	assert.Contains(t, out, "3 entities")
	assert.Contains(t, out, "No issues found")

	out, err = execute(t, "validate", "-c", w.config, "--format", "json")
	require.NoError(t, err)
	var report ValidationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Entities)
	assert.Empty(t, report.Errors)

	broken := filepath.Join(w.dir, "broken.yaml")
	write(t, broken, brokenDefinitions)
	out, err = execute(t, "validate", "-s", broken, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	report = ValidationReport{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "no temporal subkind")
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "no primary key")

	_, err = execute(t, "validate", "-s", filepath.Join(w.dir, "missing.yaml"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenCommand(t *testing.T) {
	w := newWorkspace(t)
	out := filepath.Join(w.dir, "university")

	stdout, err := execute(t, "gen", "-s", w.schema, "-o", out, "--format", "json")
	require.NoError(t, err)
	var paths []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &paths))
	assert.Len(t, paths, 4)

	data, err := os.ReadFile(filepath.Join(out, "student.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package university")

	custom := filepath.Join(w.dir, "models")
	_, err = execute(t, "gen", "-s", w.schema, "-o", custom, "-p", "entities")
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(custom, "faculty.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package entities")

	broken := filepath.Join(w.dir, "broken.yaml")
	write(t, broken, brokenDefinitions)
	_, err = execute(t, "gen", "-s", broken, "-o", custom)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "gen", "-s", w.schema)
	require.Error(t, err)
}
