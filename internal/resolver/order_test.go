package resolver

import (
	"errors"
	"testing"

	"github.com/ariel-frischer/shipset/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(kind config.ResolverKind, names ...string) []config.NamedPackage {
	out := make([]config.NamedPackage, 0, len(names))
	for _, n := range names {
		out = append(out, config.NamedPackage{Name: n, Config: config.PackageConfig{Path: n, Resolver: kind}})
	}
	return out
}

func staticDeps(graph map[string][]string) func(config.NamedPackage) (dependencyInfo, error) {
	return func(np config.NamedPackage) (dependencyInfo, error) {
		info := dependencyInfo{deps: make(map[string]bool)}
		for _, d := range graph[np.Name] {
			info.deps[d] = true
		}
		return info, nil
	}
}

func TestSortByDependencies(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		packages []config.NamedPackage
		graph    map[string][]string
		want     []string
	}{
		"dependent moves after dependency": {
			packages: named(config.ResolverRust, "b", "a"),
			graph:    map[string][]string{"b": {"a"}},
			want:     []string{"a", "b"},
		},
		"unrelated packages keep their order": {
			packages: named(config.ResolverRust, "z", "y", "x"),
			want:     []string{"z", "y", "x"},
		},
		"chain split by an unrelated package is not reordered": {
			packages: named(config.ResolverRust, "c", "x", "a"),
			graph:    map[string][]string{"c": {"a"}},
			want:     []string{"c", "x", "a"},
		},
		"transitive chain is only ordered pairwise": {
			packages: named(config.ResolverRust, "c", "b", "a"),
			graph:    map[string][]string{"c": {"b"}, "b": {"a"}},
			want:     []string{"b", "c", "a"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := sortByDependencies(tt.packages, config.ResolverRust, nil, staticDeps(tt.graph))
			require.NoError(t, err)
			assert.Equal(t, tt.want, namedNames(got))
		})
	}
}

func TestSortByDependenciesIgnoresOtherKinds(t *testing.T) {
	t.Parallel()

	packages := append(named(config.ResolverNodejs, "web"), named(config.ResolverRust, "core")...)
	inspected := map[string]bool{}
	inspect := func(np config.NamedPackage) (dependencyInfo, error) {
		inspected[np.Name] = true
		return dependencyInfo{deps: map[string]bool{"web": true}}, nil
	}

	got, err := sortByDependencies(packages, config.ResolverRust, nil, inspect)
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "core"}, namedNames(got))
	assert.Equal(t, map[string]bool{"core": true}, inspected)
}

func TestSortByDependenciesAliasesAndNormalization(t *testing.T) {
	t.Parallel()

	packages := named(config.ResolverPython, "api", "models")
	inspect := func(np config.NamedPackage) (dependencyInfo, error) {
		switch np.Name {
		case "api":
			return dependencyInfo{name: "acme-api", deps: map[string]bool{"Acme_Models": true}}, nil
		default:
			return dependencyInfo{name: "acme.models", deps: map[string]bool{}}, nil
		}
	}

	got, err := sortByDependencies(packages, config.ResolverPython, NormalizePythonName, inspect)
	require.NoError(t, err)
	assert.Equal(t, []string{"models", "api"}, namedNames(got))
}

func TestSortByDependenciesPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := sortByDependencies(named(config.ResolverCpp, "a"), config.ResolverCpp, nil,
		func(config.NamedPackage) (dependencyInfo, error) { return dependencyInfo{}, boom })
	assert.ErrorIs(t, err, boom)
}
