package resolver

import (
	"path/filepath"
	"testing"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cargoWorkspaceRoot = `[workspace]
members = ["crates/*"]
exclude = ["crates/skip"]

[workspace.package]
version = "1.4.0" # shared
`

func newCargo(t *testing.T) *CargoResolver {
	t.Helper()
	r, err := New(config.ResolverRust)
	require.NoError(t, err)
	return r.(*CargoResolver)
}

func TestCargoResolve(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Cargo.toml":               cargoWorkspaceRoot,
		"crates/core/Cargo.toml":   "[package]\nname = \"core\"\nversion = \"0.1.0\"\n",
		"crates/bin/Cargo.toml":    "[package]\nname = \"bin\"\nversion = \"0.1.0\"\npublish = false\n",
		"crates/inner/Cargo.toml":  "[package]\nname = \"inner\"\nversion.workspace = true\npublish = []\n",
		"crates/broken/Cargo.toml": "[package\nname = \"x\"\n",
		"crates/noname/Cargo.toml": "[package]\nversion = \"1.0.0\"\n",
		"crates/lib/Cargo.toml":    "[lib]\npath = \"src/lib.rs\"\n",
	})
	r := newCargo(t)

	tests := map[string]struct {
		path     string
		want     *ResolvedPackage
		wantKind shiperrors.Kind
	}{
		"public crate": {
			path: "crates/core",
			want: &ResolvedPackage{Name: "core", Version: "0.1.0", Path: "crates/core"},
		},
		"publish false is private": {
			path: "crates/bin",
			want: &ResolvedPackage{Name: "bin", Version: "0.1.0", Path: "crates/bin", Private: true},
		},
		"workspace inherited version": {
			path: "crates/inner/",
			want: &ResolvedPackage{Name: "inner", Version: "1.4.0", Path: "crates/inner", Private: true, VersionSource: "Cargo.toml"},
		},
		"undecodable manifest": {
			path:     "crates/broken",
			wantKind: shiperrors.ParseError,
		},
		"missing name": {
			path:     "crates/noname",
			wantKind: shiperrors.InvalidConfig,
		},
		"missing package table": {
			path:     "crates/lib",
			wantKind: shiperrors.InvalidConfig,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := r.Resolve(root, config.PackageConfig{Path: tt.path, Resolver: config.ResolverRust})
			if tt.want == nil {
				require.Error(t, err)
				assert.True(t, shiperrors.IsKind(err, tt.wantKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCargoResolveAll(t *testing.T) {
	t.Parallel()

	t.Run("workspace", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			"Cargo.toml":               cargoWorkspaceRoot,
			"crates/a/Cargo.toml":      "[package]\nname = \"a\"\nversion.workspace = true\n",
			"crates/b/Cargo.toml":      "[package]\nname = \"b\"\nversion = \"0.3.0\"\n",
			"crates/broken/Cargo.toml": "not toml [[",
			"crates/skip/Cargo.toml":   "[package]\nname = \"skip\"\nversion = \"0.1.0\"\n",
			"crates/empty/README.md":   "",
		})

		packages, err := newCargo(t).ResolveAll(root)
		require.NoError(t, err)
		assert.Equal(t, []*ResolvedPackage{
			{Name: "a", Version: "1.4.0", Path: "crates/a", VersionSource: "Cargo.toml"},
			{Name: "b", Version: "0.3.0", Path: "crates/b"},
		}, packages)
	})

	t.Run("single crate", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			"Cargo.toml": "[package]\nname = \"solo\"\nversion = \"2.0.0\"\n",
		})

		packages, err := newCargo(t).ResolveAll(root)
		require.NoError(t, err)
		assert.Equal(t, []*ResolvedPackage{{Name: "solo", Version: "2.0.0", Path: "."}}, packages)
	})
}

func TestCargoBump(t *testing.T) {
	t.Parallel()

	t.Run("rewrites manifest and lock", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		manifest := "# Core crate\n[package]\nname = \"core\"\nversion = \"0.1.0\" # keep me\nedition = \"2021\"\n\n[dependencies]\nserde = { version = \"0.1.0\" }\n"
		writeTree(t, root, map[string]string{
			"Cargo.toml":      "[workspace]\nmembers = [\"core\"]\n",
			"Cargo.lock":      "version = 4\n\n[[package]]\nname = \"core\"\nversion = \"0.1.0\"\n\n[[package]]\nname = \"serde\"\nversion = \"0.1.0\"\n",
			"core/Cargo.toml": manifest,
		})
		r := newCargo(t)
		pkg, err := r.Resolve(root, config.PackageConfig{Path: "core"})
		require.NoError(t, err)

		require.NoError(t, r.Bump(root, pkg, "0.2.0", false))

		assert.Equal(t,
			"# Core crate\n[package]\nname = \"core\"\nversion = \"0.2.0\" # keep me\nedition = \"2021\"\n\n[dependencies]\nserde = { version = \"0.1.0\" }\n",
			readFile(t, filepath.Join(root, "core", "Cargo.toml")))
		assert.Equal(t,
			"version = 4\n\n[[package]]\nname = \"core\"\nversion = \"0.2.0\"\n\n[[package]]\nname = \"serde\"\nversion = \"0.1.0\"\n",
			readFile(t, filepath.Join(root, "Cargo.lock")))
	})

	t.Run("inherited version bumps workspace", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			"Cargo.toml":          cargoWorkspaceRoot,
			"crates/a/Cargo.toml": "[package]\nname = \"a\"\nversion.workspace = true\n",
		})
		r := newCargo(t)
		pkg, err := r.Resolve(root, config.PackageConfig{Path: "crates/a"})
		require.NoError(t, err)

		require.NoError(t, r.Bump(root, pkg, "1.5.0", false))
		assert.Contains(t, readFile(t, filepath.Join(root, "Cargo.toml")), "version = \"1.5.0\" # shared")
		assert.Equal(t, "[package]\nname = \"a\"\nversion.workspace = true\n", readFile(t, filepath.Join(root, "crates/a/Cargo.toml")))
	})

	t.Run("crates sharing the workspace version", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			"Cargo.toml":          cargoWorkspaceRoot,
			"Cargo.lock":          "version = 4\n\n[[package]]\nname = \"a\"\nversion = \"1.4.0\"\n\n[[package]]\nname = \"b\"\nversion = \"1.4.0\"\n",
			"crates/a/Cargo.toml": "[package]\nname = \"a\"\nversion.workspace = true\n",
			"crates/b/Cargo.toml": "[package]\nname = \"b\"\nversion.workspace = true\n",
		})
		r := newCargo(t)
		a, err := r.Resolve(root, config.PackageConfig{Path: "crates/a"})
		require.NoError(t, err)
		b, err := r.Resolve(root, config.PackageConfig{Path: "crates/b"})
		require.NoError(t, err)
		assert.Equal(t, a.VersionSource, b.VersionSource)

		require.NoError(t, r.Bump(root, a, "1.5.0", false))
		require.NoError(t, r.Bump(root, b, "1.5.0", false))

		assert.Equal(t,
			"[workspace]\nmembers = [\"crates/*\"]\nexclude = [\"crates/skip\"]\n\n[workspace.package]\nversion = \"1.5.0\" # shared\n",
			readFile(t, filepath.Join(root, "Cargo.toml")))
		assert.Equal(t,
			"version = 4\n\n[[package]]\nname = \"a\"\nversion = \"1.5.0\"\n\n[[package]]\nname = \"b\"\nversion = \"1.5.0\"\n",
			readFile(t, filepath.Join(root, "Cargo.lock")))
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{"Cargo.toml": "[package]\nname = \"solo\"\nversion = \"2.0.0\"\n"})
		r := newCargo(t)
		pkg := &ResolvedPackage{Name: "solo", Version: "2.0.0", Path: "."}

		require.NoError(t, r.Bump(root, pkg, "3.0.0", true))
		assert.Equal(t, "[package]\nname = \"solo\"\nversion = \"2.0.0\"\n", readFile(t, filepath.Join(root, "Cargo.toml")))
	})

	t.Run("missing version key", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{"Cargo.toml": "[package]\nname = \"solo\"\n"})
		err := newCargo(t).Bump(root, &ResolvedPackage{Name: "solo", Version: "0.0.0", Path: "."}, "0.1.0", false)
		require.Error(t, err)
		assert.True(t, shiperrors.IsKind(err, shiperrors.ParseError))
	})
}

func TestCargoSortPackages(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app/Cargo.toml":   "[package]\nname = \"app\"\nversion = \"0.1.0\"\n\n[dependencies]\nutil = { package = \"acme-util\", path = \"../util\" }\n",
		"util/Cargo.toml":  "[package]\nname = \"acme-util\"\nversion = \"0.1.0\"\n",
		"cli/Cargo.toml":   "[package]\nname = \"cli\"\nversion = \"0.1.0\"\n\n[target.'cfg(unix)'.dependencies]\ncore = { path = \"../core\" }\n",
		"core/Cargo.toml":  "[package]\nname = \"core\"\nversion = \"0.1.0\"\n\n[dev-dependencies]\nserde = \"1\"\n",
		"web/package.json": `{"name": "web"}`,
	})

	packages := []config.NamedPackage{
		{Name: "web", Config: config.PackageConfig{Path: "web", Resolver: config.ResolverNodejs}},
		{Name: "app", Config: config.PackageConfig{Path: "app", Resolver: config.ResolverRust}},
		{Name: "util", Config: config.PackageConfig{Path: "util", Resolver: config.ResolverRust}},
		{Name: "cli", Config: config.PackageConfig{Path: "cli", Resolver: config.ResolverRust}},
		{Name: "core", Config: config.PackageConfig{Path: "core", Resolver: config.ResolverRust}},
	}

	sorted, err := newCargo(t).SortPackages(root, packages)
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "util", "app", "core", "cli"}, namedNames(sorted))
	assert.Equal(t, []string{"web", "app", "util", "cli", "core"}, namedNames(packages), "input is not modified")

	_, err = newCargo(t).SortPackages(root, append(packages, config.NamedPackage{
		Name: "ghost", Config: config.PackageConfig{Path: "ghost", Resolver: config.ResolverRust},
	}))
	require.Error(t, err)
	assert.Equal(t, "ghost", shiperrors.As(err).Package)
}
