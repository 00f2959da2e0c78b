package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProject lays out a directory with ddb.yaml, the task app schema and a
// data directory for the local backend.
func newProject(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"DDB_SCHEMA", "DDB_BACKEND", "DDB_DATA_DIR", "DDB_TABLE", "DDB_LOG_LEVEL", "DDB_LOG_FORMAT"} {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	schema, err := os.ReadFile(filepath.Join("..", "..", "schema", "testdata", "taskapp.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", schemaFilename), schema, 0o644))
	cfg := "schema: app/ddb.schema.yaml\ndataDir: data\nlog: {level: error}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFilename), []byte(cfg), 0o644))
	return dir
}

func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, dir, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Usage(t *testing.T) {
	dir := t.TempDir()

	t.Run("no command", func(t *testing.T) {
		_, stderr, err := runCLI(t, dir)
		assert.ErrorIs(t, err, errUsage)
		assert.Contains(t, stderr, "Usage:")
	})

	t.Run("unknown command", func(t *testing.T) {
		_, stderr, err := runCLI(t, dir, "scan")
		assert.ErrorIs(t, err, errUsage)
		assert.Contains(t, stderr, `unknown command "scan"`)
	})

	t.Run("version", func(t *testing.T) {
		stdout, _, err := runCLI(t, dir, "version")
		require.NoError(t, err)
		assert.Equal(t, "ddb version "+version+"\n", stdout)
	})

	t.Run("command help", func(t *testing.T) {
		_, stderr, err := runCLI(t, dir, "query", "--help")
		require.NoError(t, err)
		assert.Contains(t, stderr, "-collection")
	})

	t.Run("bad flag", func(t *testing.T) {
		_, _, err := runCLI(t, dir, "plan", "--nope")
		assert.ErrorIs(t, err, errUsage)
	})
}

func TestCheck(t *testing.T) {
	dir := newProject(t)

	t.Run("configured schema", func(t *testing.T) {
		stdout, _, err := runCLI(t, dir, "check")
		require.NoError(t, err)
		assert.Contains(t, stdout, `service "TaskApp", table "electro", 2 entities`)
		assert.Contains(t, stdout, `collection "workplaces" clustered on gsi1(gsi1pk,gsi1sk): employee, office`)
	})

	t.Run("broken schema", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), schemaFilename)
		require.NoError(t, os.WriteFile(bad, []byte("service: x\n"), 0o644))
		stdout, _, err := runCLI(t, dir, "check", "--schema", bad)
		require.Error(t, err)
		assert.Contains(t, stdout, "FAIL")
	})
}

func TestPlan(t *testing.T) {
	dir := newProject(t)

	t.Run("collection range", func(t *testing.T) {
		stdout, _, err := runCLI(t, dir, "plan", "--collection", "workplaces",
			"--op", "between", "--bound", "level=1", "--upper", "level=5", "office=gw")
		require.NoError(t, err)
		assert.Contains(t, stdout, "index:     gsi1\n")
		assert.Contains(t, stdout, `partition: gsi1pk = "$taskapp#office_gw"`)
		assert.Contains(t, stdout, `sort:      gsi1sk between "$workplaces#level_01" and "$workplaces#level_05`)
	})

	t.Run("entity table index by default", func(t *testing.T) {
		stdout, _, err := runCLI(t, dir, "plan", "--entity", "employee", "employeeId=e1")
		require.NoError(t, err)
		assert.Contains(t, stdout, "index:     (table)\n")
		assert.Contains(t, stdout, `partition: pk = "$taskapp#employeeid_e1"`)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		_, stderr, err := runCLI(t, dir, "plan", "--entity", "employee", "nope=1")
		require.Error(t, err)
		assert.Contains(t, stderr, "unknown attribute")
	})

	t.Run("entity and collection", func(t *testing.T) {
		_, _, err := runCLI(t, dir, "plan", "--entity", "employee", "--collection", "workplaces")
		assert.ErrorIs(t, err, errUsage)
	})
}

func TestPutAndQuery(t *testing.T) {
	dir := newProject(t)

	for _, args := range [][]string{
		{"--entity", "employee", "employeeId=e1", "office=gw", "team=core", "level=3"},
		{"--entity", "employee", "employeeId=e2", "office=gw", "team=infra", "level=7"},
		{"--entity", "office", "office=gw", "country=se", "level=1"},
	} {
		_, stderr, err := runCLI(t, dir, append([]string{"put"}, args...)...)
		require.NoError(t, err, stderr)
	}

	t.Run("collection", func(t *testing.T) {
		stdout, stderr, err := runCLI(t, dir, "query", "--collection", "workplaces", "--all", "office=gw")
		require.NoError(t, err, stderr)

		var out struct {
			Data   map[string][]map[string]any `json:"data"`
			Cursor map[string]any              `json:"cursor"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Len(t, out.Data["employee"], 2)
		assert.Len(t, out.Data["office"], 1)
		assert.Nil(t, out.Cursor)
	})

	t.Run("entity range with limit", func(t *testing.T) {
		stdout, stderr, err := runCLI(t, dir, "query", "--entity", "employee", "--index", "byOffice",
			"--op", "gte", "--bound", "level=2", "--limit", "1", "office=gw")
		require.NoError(t, err, stderr)

		var out struct {
			Items  []map[string]any `json:"items"`
			Cursor map[string]any   `json:"cursor"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		require.Len(t, out.Items, 1)
		assert.Equal(t, "e1", out.Items[0]["employeeId"])
		assert.NotEmpty(t, out.Cursor)
	})

	t.Run("put needs the entity", func(t *testing.T) {
		_, _, err := runCLI(t, dir, "put", "office=gw")
		assert.ErrorIs(t, err, errUsage)
	})
}
