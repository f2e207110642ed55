package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDir lays out a schema, a passing scenario and a failing one.
func scenarioDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "authors.cue", authorsSchema)
	writeFile(t, dir, "authored_posts.yaml", authoredPostsScenario)
	writeFile(t, dir, "nested/wrong_keys.yaml", `name: wrong_keys
description: "Expects a user that was never inserted"
schema: ../authors.cue
steps:
  - action: insert
    store: users
    entity: {id: u1}
assertions:
  - type: view
    store: users
    keys: [u9]
`)
	return dir
}

func executeTest(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out, err := executeTest(t, &RootOptions{Format: "text"}, t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, out, "No scenarios found")
	})

	t.Run("json", func(t *testing.T) {
		out, err := executeTest(t, &RootOptions{Format: "json"}, t.TempDir())
		require.NoError(t, err)

		var resp struct {
			Status string     `json:"status"`
			Data   TestResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, 0, resp.Data.Total)
		assert.Empty(t, resp.Data.Scenarios)
	})
}

func TestTestCommandMixedResults(t *testing.T) {
	dir := scenarioDir(t)

	out, err := executeTest(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 scenario(s) failed")

	assert.Contains(t, out, "✓ authored_posts\n")
	assert.Contains(t, out, "✗ wrong_keys\n")
	assert.Contains(t, out, "Assertion failed: view")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t)

	out, err := executeTest(t, &RootOptions{Format: "json"}, dir, "--filter", "authored_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, TestResult{
		Scenarios: []ScenarioResult{{Name: "authored_posts", Pass: true}},
		Passed:    1,
		Total:     1,
	}, resp.Data)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"}, scenarioDir(t), "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandGoldenFiles(t *testing.T) {
	dir := scenarioDir(t)
	goldenPath := filepath.Join(dir, "golden", "authored_posts.golden")

	out, err := executeTest(t, &RootOptions{Format: "text"}, dir, "--filter", "authored_*", "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ authored_posts (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"authored_posts"`)
	assert.Contains(t, string(golden), `"missing":{"posts":[],"users":["u2"]}`)

	t.Run("matching golden passes", func(t *testing.T) {
		out, err := executeTest(t, &RootOptions{Format: "text"}, dir, "--filter", "authored_*")
		require.NoError(t, err)
		assert.Contains(t, out, "✓ All scenarios passed")
	})

	t.Run("golden directory is not scanned", func(t *testing.T) {
		writeFile(t, dir, "golden/stray.yaml", "name: stray\n")
		files, err := findScenarioFiles(dir, "")
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})

	t.Run("mismatch fails", func(t *testing.T) {
		require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"stale"}`), 0o644))

		out, err := executeTest(t, &RootOptions{Format: "text"}, dir, "--filter", "authored_*")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "snapshot does not match golden file")
	})
}

func TestTestCommandGoldenDirFromConfig(t *testing.T) {
	dir := scenarioDir(t)
	goldenDir := filepath.Join(t.TempDir(), "snapshots")

	opts := &RootOptions{Format: "text", GoldenDir: goldenDir}
	_, err := executeTest(t, opts, dir, "--filter", "authored_*", "--update")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(goldenDir, "authored_posts.golden"))
	assert.NoDirExists(t, filepath.Join(dir, "golden"))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "blog.golden"),
		goldenFilePath(filepath.Join("scenarios", "blog.yaml"), ""))
	assert.Equal(t,
		filepath.Join("snapshots", "blog.golden"),
		goldenFilePath(filepath.Join("scenarios", "blog.yml"), "snapshots"))
}

func TestTestCommandBrokenScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\nsteps: [\n")

	out, err := executeTest(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}
