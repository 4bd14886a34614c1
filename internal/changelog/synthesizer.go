package changelog

import (
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ariel-frischer/shipset/internal/changeset"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/git"
	"github.com/ariel-frischer/shipset/internal/github"
	"github.com/rs/zerolog/log"
)

// prMarkerRe matches the "(#123)" suffix squash merges leave in commit messages.
var prMarkerRe = regexp.MustCompile(`\(#(\d+)\)`)

// CommitFinder locates the commit that introduced a path.
type CommitFinder interface {
	FirstCommitIntroducing(relPath string) (*git.Commit, error)
}

// PullRequestFinder looks up pull requests on the hosting provider.
type PullRequestFinder interface {
	PullRequestsForCommit(ctx context.Context, sha string) ([]github.PullRequest, error)
	PullRequest(ctx context.Context, number int) (*github.PullRequest, error)
}

// Synthesizer renders the changelog section of a package from changesets.
type Synthesizer struct {
	// Repo attributes changesets to commits. Nil disables attribution.
	Repo CommitFinder
	// PRs correlates commits with pull requests. Nil disables the lookup.
	PRs PullRequestFinder
	// RepoRoot is the repository root changeset paths are made relative to.
	RepoRoot string
	// CommitURL builds the link for a commit. Nil renders bare hashes.
	CommitURL func(hash string) string
	// Tags maps changeset tags to group titles.
	Tags map[string]string

	prs map[string]*github.PullRequest
}

// Generate renders the section for packageName at version from the
// changesets that name the package. Groups appear in the order their title
// is first seen, with the default group last.
func (s *Synthesizer) Generate(ctx context.Context, changesets []*changeset.Changeset, packageName, version string) (*Changelog, error) {
	var order []string
	lines := make(map[string][]string)

	for _, cs := range changesets {
		pkg, ok := cs.Package(packageName)
		if !ok {
			continue
		}
		attr, err := s.Attribute(ctx, cs)
		if err != nil {
			return nil, err
		}

		title := s.groupTitle(pkg.Tag)
		if _, seen := lines[title]; !seen {
			order = append(order, title)
		}
		lines[title] = append(lines[title], FormatLine(cs.Summary, attr))
	}

	groups := make([]Group, 0, len(order))
	var fallback *Group
	for _, title := range order {
		g := Group{Title: title, Lines: lines[title]}
		if title == DefaultGroup {
			fallback = &g
			continue
		}
		groups = append(groups, g)
	}
	if fallback != nil {
		groups = append(groups, *fallback)
	}

	section := RenderSection(version, groups)
	return &section, nil
}

func (s *Synthesizer) groupTitle(tag string) string {
	if tag != "" {
		if title := s.Tags[tag]; title != "" {
			return title
		}
	}
	return DefaultGroup
}

// Attribute finds the commit and pull request a changeset came from. A
// changeset without a backing file, or whose file was never committed, has
// an empty attribution.
func (s *Synthesizer) Attribute(ctx context.Context, cs *changeset.Changeset) (Attribution, error) {
	var attr Attribution
	if s.Repo == nil || cs.Path == "" {
		return attr, nil
	}

	rel, err := s.relativePath(cs.Path)
	if err != nil {
		return attr, err
	}
	commit, err := s.Repo.FirstCommitIntroducing(rel)
	if err != nil {
		return attr, err
	}
	if commit == nil {
		log.Debug().Str("path", rel).Msg("no commit introduces changeset")
		return attr, nil
	}
	attr.Commit = commit
	if s.CommitURL != nil {
		attr.CommitURL = s.CommitURL(commit.Hash)
	}

	attr.PR, err = s.pullRequest(ctx, commit)
	if err != nil {
		return attr, err
	}
	return attr, nil
}

func (s *Synthesizer) relativePath(path string) (string, error) {
	root, err := filepath.Abs(s.RepoRoot)
	if err != nil {
		return "", shiperrors.NewIO(s.RepoRoot, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", shiperrors.NewIO(path, err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", shiperrors.NewInvalidChangeset(path, "changeset is not inside the repository")
	}
	return filepath.ToSlash(rel), nil
}

// pullRequest returns the pull request for commit: the first one the
// hosting API associates with it, else the one named by a "(#N)" marker at
// the end of the commit message. Results are cached per commit.
func (s *Synthesizer) pullRequest(ctx context.Context, commit *git.Commit) (*github.PullRequest, error) {
	if s.PRs == nil {
		return nil, nil
	}
	if pr, ok := s.prs[commit.Hash]; ok {
		return pr, nil
	}

	pr, err := s.findPullRequest(ctx, commit)
	if err != nil {
		return nil, err
	}
	if s.prs == nil {
		s.prs = make(map[string]*github.PullRequest)
	}
	s.prs[commit.Hash] = pr
	return pr, nil
}

func (s *Synthesizer) findPullRequest(ctx context.Context, commit *git.Commit) (*github.PullRequest, error) {
	prs, err := s.PRs.PullRequestsForCommit(ctx, commit.Hash)
	if err != nil {
		return nil, err
	}
	if len(prs) > 0 {
		return &prs[0], nil
	}

	number, ok := PRNumberFromMessage(commit.Message)
	if !ok {
		return nil, nil
	}
	log.Debug().Str("commit", commit.ShortHash()).Int("pr", number).Msg("falling back to commit message PR marker")
	return s.PRs.PullRequest(ctx, number)
}

// PRNumberFromMessage returns the number of the last "(#N)" marker in msg.
func PRNumberFromMessage(msg string) (int, bool) {
	matches := prMarkerRe.FindAllStringSubmatch(msg, -1)
	if len(matches) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0, false
	}
	return n, true
}
