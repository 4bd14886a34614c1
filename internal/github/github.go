// Package github looks up pull requests and creates releases on GitHub.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog/log"
)

const (
	// EnvRepository holds "owner/repo" in GitHub Actions.
	EnvRepository = "GITHUB_REPOSITORY"
	// EnvToken holds the API token.
	EnvToken = "GITHUB_TOKEN"
	// EnvServerURL holds the web URL of the server in GitHub Actions.
	EnvServerURL = "GITHUB_SERVER_URL"
	// EnvAPIURL holds the REST API URL in GitHub Actions.
	EnvAPIURL = "GITHUB_API_URL"

	// DefaultHost is the web host of github.com repositories.
	DefaultHost = "github.com"
)

// PullRequest is the subset of a pull request the changelog needs.
type PullRequest struct {
	Number int
	Author string
	URL    string
}

// Client talks to one repository.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
	// host is the web host commit links point at.
	host string
}

type settings struct {
	token   string
	baseURL string
	host    string
	http    *http.Client
}

// Option configures a Client.
type Option func(*settings)

// WithToken authenticates requests.
func WithToken(token string) Option {
	return func(s *settings) { s.token = token }
}

// WithBaseURL points the client at another API endpoint, such as a GitHub
// Enterprise server or a test server.
func WithBaseURL(raw string) Option {
	return func(s *settings) { s.baseURL = raw }
}

// WithHost sets the web host used for commit links. Without it the host
// is github.com, or the server of an Enterprise (/api/v3) base URL.
func WithHost(host string) Option {
	return func(s *settings) { s.host = host }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.http = hc }
}

// New creates a client for owner/repo.
func New(owner, repo string, opts ...Option) (*Client, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	gh := github.NewClient(s.http)
	if s.token != "" {
		gh = gh.WithAuthToken(s.token)
	}
	host := s.host
	if s.baseURL != "" {
		raw := s.baseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, shiperrors.NewInvalidConfig("", fmt.Sprintf("invalid API base URL %q: %v", s.baseURL, err))
		}
		gh.BaseURL = u
		if host == "" && strings.HasPrefix(u.Path, "/api/v3") {
			host = u.Host
		}
	}
	if host == "" {
		host = DefaultHost
	}
	return &Client{gh: gh, owner: owner, repo: repo, host: host}, nil
}

// HostFromURL returns the host of a server URL such as
// https://ghe.example.com, or "" when raw has none.
func HostFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Host
}

// EnterpriseAPIURL returns the REST endpoint of a GitHub Enterprise host.
func EnterpriseAPIURL(host string) string {
	return "https://" + host + "/api/v3/"
}

// ParseRepository splits an "owner/repo" string.
func ParseRepository(s string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}

// RepositoryFromEnv reads GITHUB_REPOSITORY.
func RepositoryFromEnv() (owner, repo string, ok bool) {
	return ParseRepository(os.Getenv(EnvRepository))
}

// Owner returns the repository owner.
func (c *Client) Owner() string { return c.owner }

// Repo returns the repository name.
func (c *Client) Repo() string { return c.repo }

// Host returns the web host commit links point at.
func (c *Client) Host() string { return c.host }

// PullRequestsForCommit lists the pull requests associated with a commit.
func (c *Client) PullRequestsForCommit(ctx context.Context, sha string) ([]PullRequest, error) {
	prs, _, err := c.gh.PullRequests.ListPullRequestsWithCommit(ctx, c.owner, c.repo, sha, nil)
	if err != nil {
		return nil, shiperrors.NewHostingAPI("listing pull requests for commit "+sha, err)
	}
	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, convert(pr))
	}
	log.Debug().Str("commit", sha).Int("count", len(out)).Msg("pull requests for commit")
	return out, nil
}

// PullRequest fetches a pull request by number. A pull request that does
// not exist yields nil without error.
func (c *Client) PullRequest(ctx context.Context, number int) (*PullRequest, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			log.Debug().Int("pr", number).Msg("pull request not found")
			return nil, nil
		}
		return nil, shiperrors.NewHostingAPI(fmt.Sprintf("fetching pull request #%d", number), err)
	}
	out := convert(pr)
	return &out, nil
}

// Release describes a release to create.
type Release struct {
	Tag  string
	Name string
	Body string
	// Prerelease marks releases of prerelease versions.
	Prerelease bool
}

// CreateRelease creates a release. It reports false without error when a
// release for the tag already exists.
func (c *Client) CreateRelease(ctx context.Context, rel Release) (bool, error) {
	name := rel.Name
	if name == "" {
		name = rel.Tag
	}
	_, _, err := c.gh.Repositories.CreateRelease(ctx, c.owner, c.repo, &github.RepositoryRelease{
		TagName:    github.String(rel.Tag),
		Name:       github.String(name),
		Body:       github.String(rel.Body),
		Prerelease: github.Bool(rel.Prerelease),
	})
	if err != nil {
		if alreadyExists(err) {
			log.Warn().Str("tag", rel.Tag).Msg("release already exists, skipping")
			return false, nil
		}
		return false, shiperrors.NewHostingAPI("creating release "+rel.Tag, err)
	}
	log.Info().Str("tag", rel.Tag).Msg("created release")
	return true, nil
}

func alreadyExists(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	for _, e := range ghErr.Errors {
		if e.Code == "already_exists" {
			return true
		}
	}
	return false
}

// CommitURL returns the web URL of a commit.
func (c *Client) CommitURL(sha string) string {
	return CommitURL(c.host, c.owner, c.repo, sha)
}

// CommitURL builds https://{host}/{owner}/{repo}/commit/{sha}.
func CommitURL(host, owner, repo, sha string) string {
	return fmt.Sprintf("https://%s/%s/%s/commit/%s", host, owner, repo, sha)
}

func convert(pr *github.PullRequest) PullRequest {
	return PullRequest{
		Number: pr.GetNumber(),
		Author: pr.GetUser().GetLogin(),
		URL:    pr.GetHTMLURL(),
	}
}
