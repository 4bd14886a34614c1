// Package sequence orders packages so that dependencies are processed before
// their dependents. Each ecosystem refines the order with its own knowledge
// of manifest dependencies; packages of different ecosystems never move
// relative to each other.
//
// Ordering is pairwise: a package moves after a direct dependency it is
// compared against, but the result is not a full topological order, so
// transitive chains split by unrelated packages may stay unordered.
package sequence

import (
	"github.com/ariel-frischer/shipset/internal/config"
	"github.com/ariel-frischer/shipset/internal/resolver"
	"github.com/rs/zerolog/log"
)

// Source returns the resolver for a kind; *resolver.Set satisfies it.
type Source interface {
	Get(kind config.ResolverKind) (resolver.Resolver, error)
}

// Sequence returns packages ordered for versioning and publishing. kinds
// holds the ecosystems to refine with, applied in order.
func Sequence(root string, packages []config.NamedPackage, kinds []config.ResolverKind, resolvers Source) ([]config.NamedPackage, error) {
	ordered := packages
	for _, kind := range kinds {
		r, err := resolvers.Get(kind)
		if err != nil {
			return nil, err
		}
		ordered, err = r.SortPackages(root, ordered)
		if err != nil {
			return nil, err
		}
	}
	log.Debug().Strs("order", Names(ordered)).Msg("sequenced packages")
	return ordered, nil
}

// ForConfig sequences every package declared in cfg.
func ForConfig(root string, cfg *config.Config, resolvers Source) ([]config.NamedPackage, error) {
	return Sequence(root, cfg.PackageList(), cfg.UsedResolverKinds(), resolvers)
}

// Names returns the package names in order.
func Names(packages []config.NamedPackage) []string {
	names := make([]string, len(packages))
	for i, p := range packages {
		names[i] = p.Name
	}
	return names
}
