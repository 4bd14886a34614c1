// Package workflow drives a release run: it orders the configured packages,
// computes the next version of every package named by a changeset, and then
// either reports that plan, applies it to manifests and changelogs, or
// publishes the packages as they are on disk.
//
// Runs are sequential and not transactional. A failure part way through
// Version leaves already bumped packages bumped.
package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/ariel-frischer/shipset/internal/changelog"
	"github.com/ariel-frischer/shipset/internal/changeset"
	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/resolver"
	"github.com/ariel-frischer/shipset/internal/sequence"
	"github.com/ariel-frischer/shipset/internal/version"
	"github.com/rs/zerolog/log"
)

// ChangelogFile is the per-package changelog written by Version.
const ChangelogFile = "CHANGELOG.md"

// Run holds everything one invocation needs. Fields are read-only during
// the run.
type Run struct {
	// Root is the repository root package paths are relative to.
	Root string
	// ChangesetDir holds the pending changeset files.
	ChangesetDir string
	Config       *config.Config
	Changesets   []*changeset.Changeset
	Resolvers    sequence.Source
	// Synthesizer renders changelog sections. Nil renders without
	// attribution.
	Synthesizer *changelog.Synthesizer
	// Runner executes post-version commands. Nil uses a default runner.
	Runner *resolver.Runner
	DryRun bool
}

// Bump is the version change computed for one package.
type Bump struct {
	Package string
	Kind    config.ResolverKind
	From    string
	To      string
	Level   changeset.BumpLevel
	// Changesets names the changesets requesting the bump.
	Changesets []string

	resolved *resolver.ResolvedPackage
}

// Plan maps package names to their computed bump. It is built fresh for
// every run and never persisted.
type Plan map[string]Bump

// Names returns the planned package names in lexical order.
func (p Plan) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// step is one planned package in sequencer order.
type step struct {
	pkg      config.NamedPackage
	resolver resolver.Resolver
	bump     Bump
}

// Order returns the configured packages with dependencies before dependents.
func (r *Run) Order() ([]config.NamedPackage, error) {
	return sequence.ForConfig(r.Root, r.Config, r.Resolvers)
}

// Status computes the plan without touching the workspace.
func (r *Run) Status(ctx context.Context) (Plan, []config.NamedPackage, error) {
	order, err := r.Order()
	if err != nil {
		return nil, nil, err
	}
	steps, err := r.plan(ctx, order)
	if err != nil {
		return nil, nil, err
	}
	return planOf(steps), order, nil
}

// plan resolves every package with a pending bump and computes its next
// version. Nothing is written, so a failing package aborts the run before
// any manifest changes. Packages sharing a version source get one target
// version from the highest level requested among them.
func (r *Run) plan(ctx context.Context, order []config.NamedPackage) ([]step, error) {
	var steps []step
	for _, np := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		level := version.GetBumpLevel(r.Changesets, np.Name)
		if level == changeset.Unchanged {
			continue
		}

		res, err := r.Resolvers.Get(np.Config.Resolver)
		if err != nil {
			return nil, shiperrors.WithPackage(err, np.Name)
		}
		pkg, err := res.Resolve(r.Root, np.Config)
		if err != nil {
			return nil, shiperrors.WithPackage(err, np.Name)
		}

		steps = append(steps, step{
			pkg:      np,
			resolver: res,
			bump: Bump{
				Package:    np.Name,
				Kind:       np.Config.Resolver,
				From:       pkg.Version,
				Level:      level,
				Changesets: r.changesetsFor(np.Name),
				resolved:   pkg,
			},
		})
	}

	if err := shareVersionSources(steps); err != nil {
		return nil, err
	}
	for i := range steps {
		s := &steps[i]
		if s.bump.To != "" {
			continue
		}
		next, err := version.BumpString(s.bump.From, s.bump.Level, s.pkg.Config.Mode())
		if err != nil {
			return nil, shiperrors.WithPackage(err, s.bump.Package)
		}
		s.bump.To = next
	}
	for _, s := range steps {
		log.Debug().Str("package", s.bump.Package).Str("from", s.bump.From).Str("version", s.bump.To).
			Str("level", s.bump.Level.String()).Msg("planned bump")
	}
	return steps, nil
}

// shareVersionSources sets one level and target version on every step whose
// package reads its version from the same shared manifest.
func shareVersionSources(steps []step) error {
	groups := make(map[string][]int)
	var sources []string
	for i, s := range steps {
		src := s.bump.resolved.VersionSource
		if src == "" {
			continue
		}
		key := string(s.bump.Kind) + ":" + src
		if _, seen := groups[key]; !seen {
			sources = append(sources, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range sources {
		members := groups[key]
		first := steps[members[0]]
		level := first.bump.Level
		for _, i := range members[1:] {
			s := steps[i]
			if s.pkg.Config.Mode() != first.pkg.Config.Mode() {
				return shiperrors.NewInvalidConfig("", fmt.Sprintf(
					"packages %s and %s share a version but use different version modes",
					first.bump.Package, s.bump.Package))
			}
			level = max(level, s.bump.Level)
		}
		next, err := version.BumpString(first.bump.From, level, first.pkg.Config.Mode())
		if err != nil {
			return shiperrors.WithPackage(err, first.bump.Package)
		}
		for _, i := range members {
			steps[i].bump.Level = level
			steps[i].bump.To = next
		}
		log.Debug().Str("path", first.bump.resolved.VersionSource).Int("packages", len(members)).
			Str("version", next).Msg("shared version source")
	}
	return nil
}

func (r *Run) changesetsFor(name string) []string {
	var names []string
	for _, cs := range r.Changesets {
		if _, ok := cs.Package(name); ok {
			names = append(names, cs.Name)
		}
	}
	return names
}

func planOf(steps []step) Plan {
	plan := make(Plan, len(steps))
	for _, s := range steps {
		plan[s.bump.Package] = s.bump
	}
	return plan
}

func (r *Run) synthesizer() *changelog.Synthesizer {
	if r.Synthesizer != nil {
		return r.Synthesizer
	}
	s := &changelog.Synthesizer{RepoRoot: r.Root}
	if r.Config != nil {
		s.Tags = r.Config.Tags
	}
	return s
}

func (r *Run) runner() *resolver.Runner {
	if r.Runner != nil {
		return r.Runner
	}
	return resolver.NewRunner()
}
