package workflow

import (
	"context"
	"path/filepath"

	"github.com/ariel-frischer/shipset/internal/changelog"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/resolver"
	"github.com/rs/zerolog/log"
)

// Version applies the plan: for each package in sequencer order it bumps
// the manifest, prepends the rendered section to the package changelog and
// runs the post-version commands. Consumed changesets are deleted at the
// end. In a dry run only the plan is computed and logged.
func (r *Run) Version(ctx context.Context) (Plan, error) {
	order, err := r.Order()
	if err != nil {
		return nil, err
	}
	steps, err := r.plan(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		log.Info().Msg("no changesets, nothing to version")
		return Plan{}, nil
	}

	synth := r.synthesizer()
	runner := r.runner()
	for _, s := range steps {
		if err := r.apply(ctx, s, synth, runner); err != nil {
			return nil, err
		}
	}

	if r.DryRun {
		log.Info().Int("changesets", len(r.Changesets)).Msg("dry run: would remove consumed changesets")
		return planOf(steps), nil
	}
	for _, cs := range r.Changesets {
		if err := cs.Clean(); err != nil {
			return nil, err
		}
	}
	return planOf(steps), nil
}

func (r *Run) apply(ctx context.Context, s step, synth *changelog.Synthesizer, runner *resolver.Runner) error {
	pkg := s.bump.resolved
	logger := log.With().Str("package", s.bump.Package).Str("version", s.bump.To).Logger()

	if err := s.resolver.Bump(r.Root, pkg, s.bump.To, r.DryRun); err != nil {
		return shiperrors.WithPackage(err, s.bump.Package)
	}

	section, err := synth.Generate(ctx, r.Changesets, s.bump.Package, s.bump.To)
	if err != nil {
		return shiperrors.WithPackage(err, s.bump.Package)
	}
	path := filepath.Join(r.Root, filepath.FromSlash(pkg.Path), ChangelogFile)
	if r.DryRun {
		logger.Info().Str("path", path).Msg("dry run: would update changelog")
	} else {
		if err := changelog.MergeFile(path, *section); err != nil {
			return shiperrors.WithPackage(err, s.bump.Package)
		}
		logger.Info().Str("path", path).Msg("updated changelog")
	}

	bumped := *pkg
	bumped.Version = s.bump.To
	cfg, _ := r.Config.ResolverConfig(s.bump.Kind)
	return resolver.RunPostVersion(ctx, runner, r.Root, &bumped, cfg, r.DryRun)
}
