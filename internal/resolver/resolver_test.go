package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperProcess(t *testing.T) {
	testutil.TestHelperProcess(t)
}

// writeTree creates files (slash-separated paths) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func names(packages []*ResolvedPackage) []string {
	out := make([]string, 0, len(packages))
	for _, p := range packages {
		out = append(out, p.Name)
	}
	return out
}

func namedNames(packages []config.NamedPackage) []string {
	out := make([]string, 0, len(packages))
	for _, p := range packages {
		out = append(out, p.Name)
	}
	return out
}

func TestNewDispatchesOnKind(t *testing.T) {
	t.Parallel()

	tests := map[config.ResolverKind]any{
		config.ResolverRust:   &CargoResolver{},
		config.ResolverNodejs: &NodeResolver{},
		config.ResolverPython: &PythonResolver{},
		config.ResolverCpp:    &CppResolver{},
	}

	for kind, want := range tests {
		t.Run(string(kind), func(t *testing.T) {
			t.Parallel()
			r, err := New(kind)
			require.NoError(t, err)
			assert.IsType(t, want, r)
			assert.Equal(t, kind, r.Kind())
		})
	}

	_, err := New("go")
	require.Error(t, err)
	assert.True(t, shiperrors.IsKind(err, shiperrors.InvalidConfig))
}

func TestSetCachesAndRegisters(t *testing.T) {
	t.Parallel()

	set := NewSet()
	first, err := set.Get(config.ResolverRust)
	require.NoError(t, err)
	second, err := set.Get(config.ResolverRust)
	require.NoError(t, err)
	assert.Same(t, first, second)

	replacement := &CargoResolver{publisher{runner: NewRunner()}}
	set.Register(replacement)
	got, err := set.Get(config.ResolverRust)
	require.NoError(t, err)
	assert.Same(t, replacement, got)

	_, err = set.Get("zig")
	assert.Error(t, err)
}

func TestResolveMissingManifest(t *testing.T) {
	t.Parallel()

	for _, kind := range config.ResolverKinds() {
		t.Run(string(kind), func(t *testing.T) {
			t.Parallel()
			r, err := New(kind)
			require.NoError(t, err)

			_, err = r.Resolve(t.TempDir(), config.PackageConfig{Path: "missing", Resolver: kind})
			require.Error(t, err)
			assert.True(t, shiperrors.IsKind(err, shiperrors.NotFound), "got %v", err)

			packages, err := r.ResolveAll(t.TempDir())
			require.NoError(t, err)
			assert.Empty(t, packages)
		})
	}
}
