package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := New("acme", "tools", WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithToken("secret"))
	require.NoError(t, err)
	return c
}

func TestPullRequestsForCommit(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/tools/commits/abc123/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		io.WriteString(w, `[{"number": 12, "html_url": "https://github.com/acme/tools/pull/12", "user": {"login": "bob"}}, {"number": 3}]`)
	})
	mux.HandleFunc("GET /repos/acme/tools/commits/none/pulls", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	mux.HandleFunc("GET /repos/acme/tools/commits/broken/pulls", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
	})
	c := newTestClient(t, mux)

	prs, err := c.PullRequestsForCommit(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, []PullRequest{
		{Number: 12, Author: "bob", URL: "https://github.com/acme/tools/pull/12"},
		{Number: 3},
	}, prs)

	prs, err = c.PullRequestsForCommit(context.Background(), "none")
	require.NoError(t, err)
	assert.Empty(t, prs)

	_, err = c.PullRequestsForCommit(context.Background(), "broken")
	require.Error(t, err)
	assert.True(t, shiperrors.IsKind(err, shiperrors.HostingAPI))
}

func TestPullRequest(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/tools/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"number": 7, "html_url": "https://github.com/acme/tools/pull/7", "user": {"login": "alice"}}`)
	})
	mux.HandleFunc("GET /repos/acme/tools/pulls/8", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message": "Not Found"}`)
	})
	mux.HandleFunc("GET /repos/acme/tools/pulls/9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux)

	pr, err := c.PullRequest(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &PullRequest{Number: 7, Author: "alice", URL: "https://github.com/acme/tools/pull/7"}, pr)

	pr, err = c.PullRequest(context.Background(), 8)
	require.NoError(t, err)
	assert.Nil(t, pr)

	_, err = c.PullRequest(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, shiperrors.IsKind(err, shiperrors.HostingAPI))
}

func TestCreateRelease(t *testing.T) {
	t.Parallel()

	created := make(chan map[string]any, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/tools/releases", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["tag_name"] == "core-v1.0.0" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"message": "Validation Failed", "errors": [{"resource": "Release", "code": "already_exists", "field": "tag_name"}]}`)
			return
		}
		created <- body
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 1}`)
	})
	c := newTestClient(t, mux)

	ok, err := c.CreateRelease(context.Background(), Release{Tag: "core-v1.1.0", Body: "## v1.1.0\n", Prerelease: true})
	require.NoError(t, err)
	assert.True(t, ok)
	body := <-created
	assert.Equal(t, "core-v1.1.0", body["tag_name"])
	assert.Equal(t, "core-v1.1.0", body["name"])
	assert.Equal(t, "## v1.1.0\n", body["body"])
	assert.Equal(t, true, body["prerelease"])

	ok, err = c.CreateRelease(context.Background(), Release{Tag: "core-v1.0.0"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseRepository(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in        string
		wantOwner string
		wantRepo  string
		wantOK    bool
	}{
		"owner and repo":    {in: "acme/tools", wantOwner: "acme", wantRepo: "tools", wantOK: true},
		"surrounding space": {in: " acme/tools\n", wantOwner: "acme", wantRepo: "tools", wantOK: true},
		"missing repo":      {in: "acme/"},
		"no slash":          {in: "acme"},
		"nested":            {in: "acme/tools/extra"},
		"empty":             {in: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			owner, repo, ok := ParseRepository(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestRepositoryFromEnv(t *testing.T) {
	t.Setenv(EnvRepository, "acme/tools")
	owner, repo, ok := RepositoryFromEnv()
	require.True(t, ok)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "tools", repo)
}

func TestCommitURL(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts []Option
		want string
	}{
		"github.com by default": {
			want: "https://github.com/acme/tools/commit/abc",
		},
		"explicit host": {
			opts: []Option{WithHost("ghe.example.com")},
			want: "https://ghe.example.com/acme/tools/commit/abc",
		},
		"enterprise base URL": {
			opts: []Option{WithBaseURL("https://ghe.example.com/api/v3")},
			want: "https://ghe.example.com/acme/tools/commit/abc",
		},
		"other base URL keeps github.com": {
			opts: []Option{WithBaseURL("http://127.0.0.1:8080")},
			want: "https://github.com/acme/tools/commit/abc",
		},
		"host wins over base URL": {
			opts: []Option{WithBaseURL("https://api.internal/api/v3"), WithHost("git.example.com")},
			want: "https://git.example.com/acme/tools/commit/abc",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c, err := New("acme", "tools", tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.CommitURL("abc"))
		})
	}

	assert.Equal(t, "https://git.example.com/a/b/commit/def", CommitURL("git.example.com", "a", "b", "def"))
}

func TestHostFromURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://github.com":            "github.com",
		"https://ghe.example.com:8443/": "ghe.example.com:8443",
		"":                              "",
		"not a url":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, HostFromURL(in), in)
	}
	assert.Equal(t, "https://ghe.example.com/api/v3/", EnterpriseAPIURL("ghe.example.com"))
}
