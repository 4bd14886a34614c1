package cli

import (
	"os"
	"path/filepath"

	"github.com/ariel-frischer/shipset/internal/changelog"
	"github.com/ariel-frischer/shipset/internal/changeset"
	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/git"
	"github.com/ariel-frischer/shipset/internal/github"
	"github.com/ariel-frischer/shipset/internal/resolver"
	"github.com/ariel-frischer/shipset/internal/workflow"
	"github.com/rs/zerolog/log"
)

// project is the loaded state shared by the release commands.
type project struct {
	root         string
	changesetDir string
	cfg          *config.Config
	// repo is nil outside a git repository.
	repo       *git.Repository
	changesets []*changeset.Changeset
}

// changesetDir returns the --changeset-dir flag or the discovered directory.
func changesetDir() (string, error) {
	if changesetDirFlag != "" {
		return filepath.Abs(changesetDirFlag)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", shiperrors.NewIO(".", err)
	}
	return config.FindChangesetDir(wd)
}

// loadProject loads the configuration and, when withChangesets is set, every
// pending changeset. The repository root is the git work tree when there is
// one, otherwise the changeset directory's parent.
func loadProject(withChangesets bool) (*project, error) {
	dir, err := changesetDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithOptions(config.LoadOptions{ChangesetDir: dir})
	if err != nil {
		return nil, err
	}

	p := &project{root: filepath.Dir(dir), changesetDir: dir, cfg: cfg}
	if repo, err := git.Open(dir); err == nil {
		p.repo = repo
		p.root = repo.Root()
	} else {
		log.Debug().Err(err).Msg("not a git repository, changelog attribution disabled")
	}

	if withChangesets {
		if p.changesets, err = changeset.LoadAll(dir, cfg); err != nil {
			return nil, err
		}
	}
	log.Debug().Str("root", p.root).Str("path", dir).Int("changesets", len(p.changesets)).Msg("loaded project")
	return p, nil
}

// hostedRepo identifies the hosted repository and the web host it lives on.
type hostedRepo struct {
	host  string
	owner string
	name  string
}

// repository returns the hosted repository from GITHUB_REPOSITORY and
// GITHUB_SERVER_URL, falling back to the origin remote.
func (p *project) repository() (hostedRepo, bool) {
	if owner, name, ok := github.RepositoryFromEnv(); ok {
		return hostedRepo{host: github.HostFromURL(os.Getenv(github.EnvServerURL)), owner: owner, name: name}, true
	}
	if p.repo == nil {
		return hostedRepo{}, false
	}
	slug, err := p.repo.RemoteSlug(git.DefaultRemote)
	if err != nil {
		log.Debug().Err(err).Msg("no hosted repository for pull request lookup")
		return hostedRepo{}, false
	}
	return hostedRepo{host: slug.Host, owner: slug.Owner, name: slug.Name}, true
}

// hostingClient returns nil when no hosted repository is known.
func (p *project) hostingClient() (*github.Client, error) {
	hosted, ok := p.repository()
	if !ok {
		return nil, nil
	}
	return github.New(hosted.owner, hosted.name, hostingOptions(hosted.host)...)
}

// hostingOptions points the client at the repository's server. A host other
// than github.com without GITHUB_API_URL is taken to be GitHub Enterprise.
func hostingOptions(host string) []github.Option {
	opts := []github.Option{github.WithToken(os.Getenv(github.EnvToken))}
	if host != "" {
		opts = append(opts, github.WithHost(host))
	}
	switch api := os.Getenv(github.EnvAPIURL); {
	case api != "":
		opts = append(opts, github.WithBaseURL(api))
	case host != "" && host != github.DefaultHost:
		opts = append(opts, github.WithBaseURL(github.EnterpriseAPIURL(host)))
	}
	return opts
}

func (p *project) synthesizer() (*changelog.Synthesizer, error) {
	s := &changelog.Synthesizer{RepoRoot: p.root, Tags: p.cfg.Tags}
	if p.repo != nil {
		s.Repo = p.repo
	}
	client, err := p.hostingClient()
	if err != nil {
		return nil, err
	}
	if client != nil {
		s.PRs = client
		s.CommitURL = client.CommitURL
	}
	return s, nil
}

func (p *project) run(synth *changelog.Synthesizer) *workflow.Run {
	return &workflow.Run{
		Root:         p.root,
		ChangesetDir: p.changesetDir,
		Config:       p.cfg,
		Changesets:   p.changesets,
		Resolvers:    resolver.NewSet(),
		Synthesizer:  synth,
		DryRun:       dryRunFlag,
	}
}
