package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nucmass/internal/nuclide"
	"github.com/roach88/nucmass/internal/testutil"
)

func execValidate(t *testing.T, opts *RootOptions, path string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})
	return buf, cmd.Execute()
}

func TestValidateValidCatalog(t *testing.T) {
	buf, err := execValidate(t, &RootOptions{Format: "text"}, writeCatalog(t))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Catalog valid: 2 entries, 2 sources, reference AME2016")
}

func TestValidateValidCatalogJSON(t *testing.T) {
	buf, err := execValidate(t, &RootOptions{Format: "json"}, writeCatalog(t))
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, buf.Bytes(), &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, nuclide.AME2016, result.Reference)
	assert.Equal(t, []nuclide.Source{nuclide.SLy4, nuclide.AME2016}, result.Sources)
	assert.Equal(t, 2, result.Entries)
}

func TestValidateDoesNotReadTables(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "run.yaml",
		"sources:",
		"  - {source: SLy4, path: not-there-yet.dat}",
	)
	_, err := execValidate(t, &RootOptions{Format: "text"}, path)
	assert.NoError(t, err)
}

func TestValidateNonExistentCatalog(t *testing.T) {
	buf, err := execValidate(t, &RootOptions{Format: "text"}, "/nonexistent/run.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateInvalidCatalog(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "run.yaml",
		"reference: SLy4",
		"sources:",
		"  - {source: SLy4, path: a.dat}",
	)

	buf, err := execValidate(t, &RootOptions{Format: "text"}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E001")
	assert.Contains(t, buf.String(), "reference")
	assert.Contains(t, buf.String(), "not an experimental source")
}

func TestValidateInvalidCatalogJSON(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "run.yaml",
		"subset: odd-odd",
		"sources:",
		"  - {source: SLy4, path: a.dat}",
	)

	buf, err := execValidate(t, &RootOptions{Format: "json"}, path)
	require.Error(t, err)

	resp := decodeResponse(t, buf.Bytes(), nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidCatalog, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok, "details should be an object")
	assert.Equal(t, "subset", details["field"])
}

func TestValidateCUECatalog(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "run.cue",
		`reference: "AME2016"`,
		`sources: [{source: "SLy4", path: "sly4.dat"}]`,
	)
	buf, err := execValidate(t, &RootOptions{Format: "text"}, path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 entries")
}

func TestValidateCUESchemaViolation(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "run.cue",
		`digits: 40`,
		`sources: [{source: "SLy4", path: "sly4.dat"}]`,
	)
	buf, err := execValidate(t, &RootOptions{Format: "json"}, path)
	require.Error(t, err)

	resp := decodeResponse(t, buf.Bytes(), nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidCatalog, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "schema", details["field"])
}

func TestValidateVerboseOutput(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	path := writeCatalog(t)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "Validating "+path)
	assert.NotContains(t, out.String(), "Validating")
}
