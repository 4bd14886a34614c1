package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ariel-frischer/shipset/internal/changelog"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/github"
	"github.com/ariel-frischer/shipset/internal/resolver"
	"github.com/ariel-frischer/shipset/internal/version"
	"github.com/rs/zerolog/log"
)

// Releaser creates hosting releases. It reports false when the release
// already exists.
type Releaser interface {
	CreateRelease(ctx context.Context, rel github.Release) (bool, error)
}

// PublishOptions controls the optional release step of Publish.
type PublishOptions struct {
	// Releaser, when set, receives one release per published package.
	Releaser Releaser
}

// Published records one package handled by Publish.
type Published struct {
	Package string
	Version string
	// Skipped is set for private packages, which are never published.
	Skipped bool
	// Release is the tag of the created release, empty when none was made.
	Release string
}

// ReleaseTag returns the tag a package release is published under.
func ReleaseTag(pkg, version string) string {
	return fmt.Sprintf("%s-v%s", pkg, version)
}

// Publish runs every package's publish commands in sequencer order, using
// the versions currently on disk. The first failing package aborts the run.
func (r *Run) Publish(ctx context.Context, opts PublishOptions) ([]Published, error) {
	order, err := r.Order()
	if err != nil {
		return nil, err
	}

	var results []Published
	for _, np := range order {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.Resolvers.Get(np.Config.Resolver)
		if err != nil {
			return results, shiperrors.WithPackage(err, np.Name)
		}
		pkg, err := res.Resolve(r.Root, np.Config)
		if err != nil {
			return results, shiperrors.WithPackage(err, np.Name)
		}

		cfg, _ := r.Config.ResolverConfig(np.Config.Resolver)
		if err := res.Publish(ctx, r.Root, pkg, cfg, r.DryRun); err != nil {
			return results, err
		}

		result := Published{Package: np.Name, Version: pkg.Version, Skipped: pkg.Private}
		if opts.Releaser != nil && !pkg.Private {
			tag, err := r.release(ctx, opts.Releaser, np.Name, pkg)
			if err != nil {
				return results, err
			}
			result.Release = tag
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *Run) release(ctx context.Context, releaser Releaser, name string, pkg *resolver.ResolvedPackage) (string, error) {
	tag := ReleaseTag(name, pkg.Version)
	logger := log.With().Str("package", name).Str("version", pkg.Version).Logger()

	body := ""
	path := filepath.Join(r.Root, filepath.FromSlash(pkg.Path), ChangelogFile)
	if doc, err := changelog.ReadDocument(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("no changelog for release notes")
	} else if section, err := doc.Version(pkg.Version); err == nil {
		body = section.Body
	} else if latest, err := doc.Latest(); err == nil {
		body = latest.Body
	}

	prerelease := false
	if v, err := version.Parse(pkg.Version); err == nil {
		prerelease = v.Prerelease() != ""
	}

	if r.DryRun {
		logger.Info().Str("tag", tag).Msg("dry run: would create release")
		return "", nil
	}
	created, err := releaser.CreateRelease(ctx, github.Release{
		Tag:        tag,
		Name:       tag,
		Body:       body,
		Prerelease: prerelease,
	})
	if err != nil {
		return "", shiperrors.WithPackage(err, name)
	}
	if !created {
		return "", nil
	}
	logger.Info().Str("tag", tag).Msg("created release")
	return tag, nil
}
