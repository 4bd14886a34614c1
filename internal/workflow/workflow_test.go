package workflow

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ariel-frischer/shipset/internal/changeset"
	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/resolver"
	"github.com/ariel-frischer/shipset/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperProcess(t *testing.T) {
	testutil.TestHelperProcess(t)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func helperCommand(t *testing.T, record string, args ...string) config.CommandConfig {
	t.Helper()
	h := testutil.NewHelperCommand(t, "TestHelperProcess", testutil.HelperProcessConfig{RecordFile: record}, args...)
	return config.CommandConfig{Command: h.Path, Args: h.Args, ExtraEnv: h.Env}
}

// newRun builds a workspace with three npm packages: app depends on lib,
// site is private.
func newRun(t *testing.T, resolverCfg config.ResolverConfig) *Run {
	t.Helper()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"packages/app/package.json":  `{"name": "app", "version": "1.0.0", "dependencies": {"lib": "^1.4.0"}}`,
		"packages/app/CHANGELOG.md":  "# Changelog\n\n## v1.0.0\n\n- Initial release.\n",
		"packages/lib/package.json":  `{"name": "lib", "version": "1.4.0"}`,
		"packages/site/package.json": `{"name": "site", "version": "0.1.0", "private": true}`,
	})
	dir := filepath.Join(root, ".changes")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	cfg := &config.Config{
		Tags: map[string]string{"feat": "New Features", "fix": "Bug Fixes"},
		Packages: map[string]config.PackageConfig{
			"app":  {Path: "packages/app", Resolver: config.ResolverNodejs},
			"lib":  {Path: "packages/lib", Resolver: config.ResolverNodejs},
			"site": {Path: "packages/site", Resolver: config.ResolverNodejs},
		},
		Resolvers: map[string]config.ResolverConfig{string(config.ResolverNodejs): resolverCfg},
	}

	api := changeset.New("add-api", dir)
	api.AddPackage("lib", changeset.Minor, "feat")
	api.AddPackage("app", changeset.Patch, "")
	api.Summary = "Add an API."
	require.NoError(t, api.Commit())

	fix := changeset.New("fix-crash", dir)
	fix.AddPackage("app", changeset.Patch, "fix")
	fix.Summary = "Fix crash."
	require.NoError(t, fix.Commit())

	output := resolver.WithOutput(&bytes.Buffer{}, &bytes.Buffer{})
	return &Run{
		Root:         root,
		ChangesetDir: dir,
		Config:       cfg,
		Changesets:   []*changeset.Changeset{api, fix},
		Resolvers:    resolver.NewSet(output),
		Runner:       resolver.NewRunner(output),
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	run := newRun(t, config.ResolverConfig{})
	plan, order, err := run.Status(context.Background())
	require.NoError(t, err)

	var names []string
	for _, np := range order {
		names = append(names, np.Name)
	}
	assert.Equal(t, []string{"lib", "app", "site"}, names)
	assert.Equal(t, []string{"app", "lib"}, plan.Names())

	lib := plan["lib"]
	assert.Equal(t, "1.4.0", lib.From)
	assert.Equal(t, "1.5.0", lib.To)
	assert.Equal(t, changeset.Minor, lib.Level)
	assert.Equal(t, []string{"add-api"}, lib.Changesets)

	app := plan["app"]
	assert.Equal(t, "1.0.1", app.To)
	assert.Equal(t, changeset.Patch, app.Level)
	assert.Equal(t, []string{"add-api", "fix-crash"}, app.Changesets)

	assert.Contains(t, readFile(t, run.Root, "packages/lib/package.json"), `"version": "1.4.0"`)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	record := filepath.Join(t.TempDir(), "record")
	run := newRun(t, config.ResolverConfig{})
	run.Config.Resolvers[string(config.ResolverNodejs)] = config.ResolverConfig{
		PostVersion: []config.CommandConfig{helperCommand(t, record, "install")},
	}

	plan, err := run.Version(context.Background())
	require.NoError(t, err)
	assert.Len(t, plan, 2)

	assert.Equal(t, `{"name": "lib", "version": "1.5.0"}`, readFile(t, run.Root, "packages/lib/package.json"))
	assert.Contains(t, readFile(t, run.Root, "packages/app/package.json"), `"version": "1.0.1"`)
	assert.Contains(t, readFile(t, run.Root, "packages/site/package.json"), `"version": "0.1.0"`)

	assert.Equal(t, "# Changelog\n\n## v1.5.0\n\n### New Features\n\n- Add an API.\n",
		readFile(t, run.Root, "packages/lib/CHANGELOG.md"))
	assert.Equal(t, "# Changelog\n\n"+
		"## v1.0.1\n\n### Bug Fixes\n\n- Fix crash.\n\n### Changes\n\n- Add an API.\n\n"+
		"## v1.0.0\n\n- Initial release.\n",
		readFile(t, run.Root, "packages/app/CHANGELOG.md"))

	assert.False(t, changeset.Exists(run.ChangesetDir, "add-api"))
	assert.False(t, changeset.Exists(run.ChangesetDir, "fix-crash"))

	records := testutil.ReadHelperRecords(t, record)
	require.Len(t, records, 2)
	assert.Equal(t, "lib", filepath.Base(records[0].Dir))
	assert.Equal(t, "app", filepath.Base(records[1].Dir))
	assert.Equal(t, "install", records[1].Args)
}

func TestVersionDryRun(t *testing.T) {
	t.Parallel()

	record := filepath.Join(t.TempDir(), "record")
	run := newRun(t, config.ResolverConfig{
		PostVersion: []config.CommandConfig{helperCommand(t, record, "install")},
	})
	run.DryRun = true

	plan, err := run.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", plan["lib"].To)

	assert.Equal(t, `{"name": "lib", "version": "1.4.0"}`, readFile(t, run.Root, "packages/lib/package.json"))
	assert.NoFileExists(t, filepath.Join(run.Root, "packages", "lib", "CHANGELOG.md"))
	assert.Equal(t, "# Changelog\n\n## v1.0.0\n\n- Initial release.\n", readFile(t, run.Root, "packages/app/CHANGELOG.md"))
	assert.True(t, changeset.Exists(run.ChangesetDir, "add-api"))
	assert.Empty(t, testutil.ReadHelperRecords(t, record))
}

func TestVersionFailsBeforeWriting(t *testing.T) {
	t.Parallel()

	run := newRun(t, config.ResolverConfig{})
	writeTree(t, run.Root, map[string]string{
		"packages/app/package.json": `{"name": "app", "version": "one"}`,
	})

	_, err := run.Version(context.Background())
	require.Error(t, err)
	assert.True(t, shiperrors.IsKind(err, shiperrors.InvalidVersion))
	assert.Equal(t, "app", shiperrors.As(err).Package)

	assert.Equal(t, `{"name": "lib", "version": "1.4.0"}`, readFile(t, run.Root, "packages/lib/package.json"))
	assert.True(t, changeset.Exists(run.ChangesetDir, "add-api"))
}

func TestVersionWithoutChangesets(t *testing.T) {
	t.Parallel()

	run := newRun(t, config.ResolverConfig{})
	run.Changesets = nil

	plan, err := run.Version(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plan)
	assert.Equal(t, `{"name": "lib", "version": "1.4.0"}`, readFile(t, run.Root, "packages/lib/package.json"))
}

func TestVersionPrereleaseMode(t *testing.T) {
	t.Parallel()

	run := newRun(t, config.ResolverConfig{})
	lib := run.Config.Packages["lib"]
	lib.VersionMode = config.VersionModePrerelease
	lib.PrereleaseTag = "beta"
	run.Config.Packages["lib"] = lib

	plan, _, err := run.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.0-beta.0", plan["lib"].To)

	lib.PrereleaseTag = ""
	run.Config.Packages["lib"] = lib
	_, _, err = run.Status(context.Background())
	assert.True(t, shiperrors.IsKind(err, shiperrors.InvalidPrereleaseTag))
}

// newCargoRun builds a Cargo workspace whose crates a and b both inherit
// [workspace.package] version 1.0.0; a gets a patch and b a minor changeset.
func newCargoRun(t *testing.T) *Run {
	t.Helper()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Cargo.toml":          "[workspace]\nmembers = [\"crates/*\"]\n\n[workspace.package]\nversion = \"1.0.0\"\n",
		"crates/a/Cargo.toml": "[package]\nname = \"a\"\nversion.workspace = true\n",
		"crates/b/Cargo.toml": "[package]\nname = \"b\"\nversion.workspace = true\n",
	})
	dir := filepath.Join(root, ".changes")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	fix := changeset.New("fix-a", dir)
	fix.AddPackage("a", changeset.Patch, "")
	fix.Summary = "Fix a."
	require.NoError(t, fix.Commit())

	feat := changeset.New("feat-b", dir)
	feat.AddPackage("b", changeset.Minor, "")
	feat.Summary = "Add b."
	require.NoError(t, feat.Commit())

	output := resolver.WithOutput(&bytes.Buffer{}, &bytes.Buffer{})
	return &Run{
		Root:         root,
		ChangesetDir: dir,
		Config: &config.Config{
			Packages: map[string]config.PackageConfig{
				"a": {Path: "crates/a", Resolver: config.ResolverRust},
				"b": {Path: "crates/b", Resolver: config.ResolverRust},
			},
			Resolvers: map[string]config.ResolverConfig{string(config.ResolverRust): {}},
		},
		Changesets: []*changeset.Changeset{feat, fix},
		Resolvers:  resolver.NewSet(output),
		Runner:     resolver.NewRunner(output),
	}
}

func TestVersionSharedWorkspaceVersion(t *testing.T) {
	t.Parallel()

	run := newCargoRun(t)
	plan, err := run.Version(context.Background())
	require.NoError(t, err)

	for _, name := range []string{"a", "b"} {
		assert.Equal(t, "1.0.0", plan[name].From, name)
		assert.Equal(t, "1.1.0", plan[name].To, name)
		assert.Equal(t, changeset.Minor, plan[name].Level, name)
	}
	assert.Equal(t, "[workspace]\nmembers = [\"crates/*\"]\n\n[workspace.package]\nversion = \"1.1.0\"\n",
		readFile(t, run.Root, "Cargo.toml"))
	assert.Contains(t, readFile(t, run.Root, "crates/a/CHANGELOG.md"), "## v1.1.0\n\n### Changes\n\n- Fix a.\n")
	assert.Contains(t, readFile(t, run.Root, "crates/b/CHANGELOG.md"), "## v1.1.0\n\n### Changes\n\n- Add b.\n")
}

func TestStatusSharedVersionModesMustMatch(t *testing.T) {
	t.Parallel()

	run := newCargoRun(t)
	b := run.Config.Packages["b"]
	b.VersionMode = config.VersionModePrerelease
	b.PrereleaseTag = "beta"
	run.Config.Packages["b"] = b

	_, _, err := run.Status(context.Background())
	require.Error(t, err)
	assert.True(t, shiperrors.IsKind(err, shiperrors.InvalidConfig))
	assert.Contains(t, readFile(t, run.Root, "Cargo.toml"), `version = "1.0.0"`)
}
