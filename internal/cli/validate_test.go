package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "document.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidate_ValidDocument(t *testing.T) {
	path := writeDoc(t, `{"status":"active","state":{"count":1},"events":{"e1":{}},"errors":{"e1":{}}}`)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Document valid (1 events)")
}

func TestValidate_ValidDocumentJSON(t *testing.T) {
	path := writeDoc(t, `{"status":null,"state":{},"events":{},"errors":{}}`)

	out, err := execute(t, "validate", path, "--format", "json")
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 0, result.Events)
}

func TestValidate_EmptyFile(t *testing.T) {
	out, err := execute(t, "validate", writeDoc(t, "  \n"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Empty document")
}

func TestValidate_SchemaViolation(t *testing.T) {
	path := writeDoc(t, `{"status":"x","state":{},"events":{}}`)

	out, err := execute(t, "validate", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Issues)
}

func TestValidate_UnexpectedKey(t *testing.T) {
	path := writeDoc(t, `{"status":null,"state":{},"events":{},"errors":{},"extra":1}`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
}

func TestValidate_NotJSON(t *testing.T) {
	out, err := execute(t, "validate", writeDoc(t, "status: active"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E008")
}

func TestValidate_UnpairedLogs(t *testing.T) {
	path := writeDoc(t, `{"status":null,"state":{},"events":{"e1":{},"e2":{}},"errors":{"e1":{}}}`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `E009: event "e2" has no errors record`)
}

func TestValidate_FileNotFound(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}
