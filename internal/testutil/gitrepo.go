package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitRepo is a throwaway repository for tests. Commits are created one
// minute apart so committer-time ordering matches creation order.
type GitRepo struct {
	t    *testing.T
	Dir  string
	Repo *git.Repository
	when time.Time
}

// NewGitRepo initializes a repository in a temporary directory.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("initializing repository: %v", err)
	}
	return &GitRepo{
		t:    t,
		Dir:  dir,
		Repo: repo,
		when: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Path returns the absolute path of a repository-relative file.
func (r *GitRepo) Path(rel string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(rel))
}

// WriteFile writes content to a repository-relative path, creating parents.
func (r *GitRepo) WriteFile(rel, content string) {
	r.t.Helper()

	path := r.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("creating directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("writing %s: %v", rel, err)
	}
}

// Remove deletes a repository-relative file.
func (r *GitRepo) Remove(rel string) {
	r.t.Helper()

	if err := os.Remove(r.Path(rel)); err != nil {
		r.t.Fatalf("removing %s: %v", rel, err)
	}
}

// Commit stages every change in the working tree and commits it,
// returning the commit hash.
func (r *GitRepo) Commit(message string) string {
	r.t.Helper()

	worktree, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("getting worktree: %v", err)
	}
	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		r.t.Fatalf("staging changes: %v", err)
	}

	r.when = r.when.Add(time.Minute)
	sig := &object.Signature{Name: "Test", Email: "test@test.com", When: r.when}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.t.Fatalf("committing %q: %v", message, err)
	}
	return hash.String()
}

// AddRemote configures a remote with a single URL.
func (r *GitRepo) AddRemote(name, url string) {
	r.t.Helper()

	if _, err := r.Repo.CreateRemote(&gitconfig.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		r.t.Fatalf("creating remote %s: %v", name, err)
	}
}
