package git

import (
	"fmt"
	"net/url"
	"strings"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// DefaultRemote is the remote consulted for the hosting slug.
const DefaultRemote = "origin"

// Slug identifies a hosted repository.
type Slug struct {
	Host  string
	Owner string
	Name  string
}

// String returns "owner/name".
func (s Slug) String() string {
	return s.Owner + "/" + s.Name
}

// RemoteURL returns the first URL configured for the named remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", shiperrors.NewGit(fmt.Sprintf("reading remote %s", name), err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", shiperrors.NewGit(fmt.Sprintf("remote %s has no URL", name), nil)
	}
	return urls[0], nil
}

// RemoteSlug parses the named remote's URL into a Slug.
func (r *Repository) RemoteSlug(name string) (Slug, error) {
	raw, err := r.RemoteURL(name)
	if err != nil {
		return Slug{}, err
	}
	slug, ok := ParseSlug(raw)
	if !ok {
		return Slug{}, shiperrors.NewGit(fmt.Sprintf("cannot parse owner/name from remote URL %q", raw), nil)
	}
	logDebug("[git] remote %s is %s on %s", name, slug, slug.Host)
	return slug, nil
}

// ParseSlug extracts host, owner and name from a remote URL. It accepts
// SCP-style SSH (git@host:owner/name.git), ssh://, git+ssh:// and
// http(s):// URLs.
func ParseSlug(raw string) (Slug, bool) {
	raw = strings.TrimSpace(raw)
	var host, path string

	switch {
	case isSCPStyle(raw):
		at := strings.Index(raw, "@")
		hostPath := raw[at+1:]
		var ok bool
		host, path, ok = strings.Cut(hostPath, ":")
		if !ok {
			return Slug{}, false
		}
	default:
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return Slug{}, false
		}
		host, path = u.Hostname(), u.Path
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	owner, name, ok := strings.Cut(path, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Slug{}, false
	}
	return Slug{Host: host, Owner: owner, Name: name}, true
}

// isSCPStyle detects user@host:path remotes, which have no scheme.
func isSCPStyle(raw string) bool {
	if strings.Contains(raw, "://") {
		return false
	}
	at := strings.Index(raw, "@")
	colon := strings.Index(raw, ":")
	return at > 0 && colon > at
}
