package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: quick_drift
description: drifter takes its first two frames
kind: drifter
population: 1
frames: 2
assertions:
  - type: dispatch_count
    bucket: catch-all
    count: 1
  - type: trace_contains
    from: start
    to: shift
`

const failingScenario = `name: wrong_count
description: expects an impossible dispatch count
kind: drifter
population: 1
frames: 2
assertions:
  - type: dispatch_count
    bucket: shifting
    count: 99
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestCommand(t *testing.T, format string) (*bytes.Buffer, *cobra.Command) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return buf, cmd
}

func TestTestCommandPassing(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "quick_drift.yaml", passingScenario)

	buf, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "✓ quick_drift")
	assert.Contains(t, output, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommandFailing(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong_count.yaml", failingScenario)

	buf, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 scenario(s) failed")

	output := buf.String()
	assert.Contains(t, output, "✗ wrong_count")
	assert.Contains(t, output, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{"/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	buf, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No scenarios found.")
}

func TestTestCommandEmptyDirectoryJSON(t *testing.T) {
	dir := t.TempDir()

	buf, cmd := newTestCommand(t, "json")
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "drift_a.yaml", passingScenario)
	writeScenario(t, dir, "beacon_b.yaml", failingScenario)

	buf, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{dir, "--filter", "drift_*"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandGoldenUpdate(t *testing.T) {
	dir := t.TempDir()
	scenarioFile := writeScenario(t, dir, "quick_drift.yaml", passingScenario)
	goldenPath := goldenFilePath(scenarioFile)

	buf, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{dir, "--update"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ quick_drift (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario":"quick_drift"`)
	assert.Contains(t, string(golden), `"kind":"drifter"`)

	// A second run compares against the fresh golden and passes.
	buf2, cmd2 := newTestCommand(t, "text")
	cmd2.SetArgs([]string{dir})
	require.NoError(t, cmd2.Execute())
	assert.Contains(t, buf2.String(), "✓ quick_drift")
	assert.NotContains(t, buf2.String(), "golden updated")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	scenarioFile := writeScenario(t, dir, "quick_drift.yaml", passingScenario)
	goldenPath := goldenFilePath(scenarioFile)

	require.NoError(t, os.MkdirAll(filepath.Dir(goldenPath), 0755))
	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"stale":true}`), 0644))

	buf, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Golden file mismatch (run with --update to regenerate)")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: [unclosed\n")

	buf, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ broken.yaml")
	assert.Contains(t, buf.String(), "Load error:")
}

func TestTestCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "quick_drift.yaml", passingScenario)
	writeScenario(t, dir, "wrong_count.yaml", failingScenario)

	buf, cmd := newTestCommand(t, "json")
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "1 scenario(s) failed")
}

func TestTestCommandBundledScenarios(t *testing.T) {
	buf, cmd := newTestCommand(t, "text")
	cmd.SetArgs([]string{filepath.Join("..", "..", "testdata", "scenarios")})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "✓ beacon_flare")
	assert.Contains(t, output, "✓ drifter_settles")
	assert.Contains(t, output, "✓ drifter_stagger")
	assert.Contains(t, output, "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", passingScenario)
	writeScenario(t, dir, "b.yml", passingScenario)
	writeScenario(t, dir, "c.txt", "not a scenario")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))
	writeScenario(t, sub, "d.yaml", passingScenario)

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)
	for _, f := range files {
		ext := filepath.Ext(f)
		assert.Contains(t, []string{".yaml", ".yml"}, ext)
	}
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "cart-checkout.yaml", passingScenario)
	writeScenario(t, dir, "cart-empty.yaml", passingScenario)
	writeScenario(t, dir, "auth-login.yaml", passingScenario)

	files, err := findScenarioFiles(dir, "cart-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	tests := []struct {
		scenarioFile string
		expected     string
	}{
		{
			scenarioFile: filepath.Join("scenarios", "cart.yaml"),
			expected:     filepath.Join("scenarios", "golden", "cart.golden"),
		},
		{
			scenarioFile: filepath.Join("deep", "nested", "flow.yml"),
			expected:     filepath.Join("deep", "nested", "golden", "flow.golden"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.scenarioFile, func(t *testing.T) {
			assert.Equal(t, tt.expected, goldenFilePath(tt.scenarioFile))
		})
	}
}
