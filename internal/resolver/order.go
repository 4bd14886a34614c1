package resolver

import (
	"slices"

	"github.com/ariel-frischer/shipset/internal/config"
)

// dependencyInfo is what a resolver knows about one package for ordering.
type dependencyInfo struct {
	// name is the package name declared in the manifest.
	name string
	// deps holds the names of direct dependencies.
	deps map[string]bool
}

// sortByDependencies orders packages with a pairwise comparator: for two
// packages of kind, the dependent sorts after its dependency; every other
// pair compares equal and keeps its relative order. The comparator is not
// transitive, so chains broken up by unrelated packages may stay unordered.
func sortByDependencies(
	packages []config.NamedPackage,
	kind config.ResolverKind,
	normalize func(string) string,
	inspect func(config.NamedPackage) (dependencyInfo, error),
) ([]config.NamedPackage, error) {
	if normalize == nil {
		normalize = func(s string) string { return s }
	}

	deps := make(map[string]map[string]bool)
	aliases := make(map[string][]string)
	for _, np := range packages {
		if np.Config.Resolver != kind {
			continue
		}
		info, err := inspect(np)
		if err != nil {
			return nil, err
		}
		normalized := make(map[string]bool, len(info.deps))
		for d := range info.deps {
			normalized[normalize(d)] = true
		}
		deps[np.Name] = normalized
		aliases[np.Name] = []string{normalize(np.Name)}
		if info.name != "" && info.name != np.Name {
			aliases[np.Name] = append(aliases[np.Name], normalize(info.name))
		}
	}

	dependsOn := func(a, b string) bool {
		for _, alias := range aliases[b] {
			if deps[a][alias] {
				return true
			}
		}
		return false
	}

	out := slices.Clone(packages)
	slices.SortStableFunc(out, func(a, b config.NamedPackage) int {
		if a.Config.Resolver != kind || b.Config.Resolver != kind {
			return 0
		}
		switch {
		case dependsOn(a.Name, b.Name):
			return 1
		case dependsOn(b.Name, a.Name):
			return -1
		default:
			return 0
		}
	})
	return out, nil
}
