package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")
	harnessGolden    = filepath.Join("..", "harness", "testdata", "golden")
)

func TestTestCommand_HarnessScenarios(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ commit_success")
	assert.Contains(t, out, "0 failed")
}

func TestTestCommand_JSON(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--filter", "commit_*", "--format", "json")
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "commit_success", result.Scenarios[0].Name)
	assert.True(t, result.Scenarios[0].Pass)
	assert.Equal(t, 1, result.Passed)
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong_status
description: "Asserts a status the steps never reach"
steps:
  - commit:
      event_id: e1
      success: true
      destination: active
assertions:
  - type: status
    value: done
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_status.yaml"), []byte(scenario), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_status")
	assert.Contains(t, out, "1 failed")
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644))

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)

	var result TestResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Scenarios, 1)
	assert.False(t, result.Scenarios[0].Pass)
	assert.Contains(t, result.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestTestCommand_UpdateGolden(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden")

	_, err := execute(t, "test", harnessScenarios, "--filter", "reset", "--golden", golden, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(golden, "reset.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessGolden, "reset.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	// Compare mode now passes against the freshly written file.
	_, err = execute(t, "test", harnessScenarios, "--filter", "reset", "--golden", golden)
	assert.NoError(t, err)
}

func TestTestCommand_UpdateRequiresGolden(t *testing.T) {
	_, err := execute(t, "test", harnessScenarios, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", t.TempDir(), "--format", "json")
	require.NoError(t, err)

	var result TestResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 0, result.Total)
	assert.NotNil(t, result.Scenarios)
}
