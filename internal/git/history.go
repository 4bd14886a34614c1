package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// Commit is the part of a commit needed for changelog attribution.
type Commit struct {
	Hash    string
	Message string
	Author  string
}

// ShortHash returns the seven character abbreviation of the hash.
func (c *Commit) ShortHash() string {
	if len(c.Hash) < 7 {
		return c.Hash
	}
	return c.Hash[:7]
}

// loadHistory collects HEAD's ancestry ordered by committer time, oldest first.
func (r *Repository) loadHistory() ([]*object.Commit, error) {
	if r.history != nil {
		return r.history, nil
	}

	head, err := r.repo.Head()
	if err != nil {
		return nil, shiperrors.NewGit("getting HEAD reference", err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, shiperrors.NewGit("reading history", err)
	}
	defer iter.Close()

	var commits []*object.Commit
	if err := iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, c)
		return nil
	}); err != nil {
		return nil, shiperrors.NewGit("walking history", err)
	}
	slices.Reverse(commits)

	logDebug("[git] loaded %d commits", len(commits))
	r.history = commits
	return commits, nil
}

// FirstCommitIntroducing returns the oldest commit that touches relPath:
// the root commit if the path exists in its tree, otherwise the first commit
// whose tree differs from its first parent's at that path. It returns nil
// when no commit matches.
func (r *Repository) FirstCommitIntroducing(relPath string) (*Commit, error) {
	relPath = filepath.ToSlash(filepath.Clean(relPath))
	if strings.HasPrefix(relPath, "../") || filepath.IsAbs(relPath) {
		return nil, shiperrors.NewGit(fmt.Sprintf("path %s is outside the repository", relPath), nil)
	}
	if c, ok := r.introduced[relPath]; ok {
		return c, nil
	}

	history, err := r.loadHistory()
	if err != nil {
		return nil, err
	}

	var found *Commit
	for _, c := range history {
		touched, err := touches(c, relPath)
		if err != nil {
			return nil, shiperrors.NewGit(fmt.Sprintf("inspecting commit %s", c.Hash), err)
		}
		if touched {
			found = &Commit{
				Hash:    c.Hash.String(),
				Message: c.Message,
				Author:  c.Author.Name,
			}
			break
		}
	}

	if found != nil {
		logDebug("[git] %s introduced by %s", relPath, found.ShortHash())
	} else {
		logDebug("[git] no commit introduces %s", relPath)
	}
	r.introduced[relPath] = found
	return found, nil
}

// touches reports whether commit c introduces or changes path.
func touches(c *object.Commit, path string) (bool, error) {
	entry, err := entryAt(c, path)
	if err != nil {
		return false, err
	}
	if c.NumParents() == 0 {
		return entry != nil, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return false, err
	}
	before, err := entryAt(parent, path)
	if err != nil {
		return false, err
	}

	switch {
	case entry == nil && before == nil:
		return false, nil
	case entry == nil || before == nil:
		return true, nil
	default:
		return entry.Hash != before.Hash || entry.Mode != before.Mode, nil
	}
}

// entryAt returns the tree entry for path in c, or nil if it does not exist.
func entryAt(c *object.Commit, path string) (*object.TreeEntry, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	entry, err := tree.FindEntry(path)
	if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}
