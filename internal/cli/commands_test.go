package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newWorkspace lays out an npm workspace where app depends on lib.
func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "monorepo", "private": true, "workspaces": ["packages/*"]}`)
	writeFile(t, filepath.Join(root, "packages", "lib", "package.json"), `{"name": "lib", "version": "1.4.0"}`)
	writeFile(t, filepath.Join(root, "packages", "app", "package.json"),
		`{"name": "app", "version": "1.0.0", "dependencies": {"lib": "^1.4.0"}}`)
	return root
}

func TestReleaseCycle(t *testing.T) {
	root := newWorkspace(t)
	dir := filepath.Join(root, ".changes")

	out, err := execute(t, "init", root)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "config.toml"))
	assert.Contains(t, out, "lib")
	assert.Contains(t, out, "app")
	assert.FileExists(t, filepath.Join(dir, "README.md"))

	_, err = execute(t, "init", root)
	require.Error(t, err)
	assert.Equal(t, ExitInvalidConfig, ExitCode(err))

	_, err = execute(t, "add", "--changeset-dir", dir, "--name", "Add API",
		"-p", "lib=minor:feat", "-p", "app=patch", "-m", "Add an API.")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "add-api.md"))

	out, err = execute(t, "status", "--changeset-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 pending changeset(s)")
	assert.Contains(t, out, "1.4.0 → 1.5.0")
	assert.Contains(t, out, "1.0.0 → 1.0.1")
	assert.Less(t, strings.Index(out, "lib"), strings.Index(out, "app"), "dependencies are listed first")

	_, err = execute(t, "version", "--changeset-dir", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "packages", "lib", "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.5.0"`)
	assert.NoFileExists(t, filepath.Join(dir, "add-api.md"))

	out, err = execute(t, "changelog", "--changeset-dir", dir, "lib", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "## v1.5.0")
	assert.Contains(t, out, "Add an API.")

	out, err = execute(t, "changelog", "--changeset-dir", dir, "lib", "9.9.9")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCode(err))
	assert.Contains(t, out, "v1.5.0")

	out, err = execute(t, "publish", "--changeset-dir", dir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "lib")
	assert.Contains(t, out, "1.5.0")
}

func TestAddErrors(t *testing.T) {
	root := newWorkspace(t)
	dir := filepath.Join(root, ".changes")
	_, err := execute(t, "init", root)
	require.NoError(t, err)

	tests := map[string][]string{
		"missing name":    {"-p", "lib=patch"},
		"missing package": {"--name", "fix"},
		"unknown package": {"--name", "fix", "-p", "nope=patch"},
		"duplicate entry": {"--name", "fix", "-p", "lib=patch", "-p", "lib=minor"},
		"bad level":       {"--name", "fix", "-p", "lib=huge"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, append([]string{"add", "--changeset-dir", dir}, args...)...)
			require.Error(t, err)
			assert.True(t, shiperrors.IsKind(err, shiperrors.InvalidChangeset))
			assert.NoFileExists(t, filepath.Join(dir, "fix.md"))
		})
	}
}

func TestAddDryRun(t *testing.T) {
	root := newWorkspace(t)
	dir := filepath.Join(root, ".changes")
	_, err := execute(t, "init", root)
	require.NoError(t, err)

	out, err := execute(t, "add", "--changeset-dir", dir, "--dry-run", "--name", "docs", "-p", "app=patch")
	require.NoError(t, err)
	assert.Contains(t, out, "Would write docs.md")
	assert.Contains(t, out, "app")
	assert.NoFileExists(t, filepath.Join(dir, "docs.md"))
}

func TestStatusWithoutChangesets(t *testing.T) {
	root := newWorkspace(t)
	dir := filepath.Join(root, ".changes")
	_, err := execute(t, "init", root)
	require.NoError(t, err)

	out, err := execute(t, "status", "--changeset-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No packages will be bumped.")
}
