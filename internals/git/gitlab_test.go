package git

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

func newTestGitLabTracker(t *testing.T) (*GitLabTracker, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodHead, `=~.*`, httpmock.NewStringResponder(http.StatusOK, ""))

	info, err := NewRepoInfo(PlatformGitLab, "acme/web", "https://gitlab.test/acme/web")
	require.NoError(t, err)

	tr, err := NewGitLabTracker("token", "https://gitlab.test", info,
		gitlab.WithHTTPClient(&http.Client{Transport: mt}))
	require.NoError(t, err)
	return tr, mt
}

func TestGitLabTracker_GetPullRequest(t *testing.T) {
	tr, mt := newTestGitLabTracker(t)

	mt.RegisterResponder(http.MethodGet, `=~/merge_requests/7(\?|$)`,
		func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{
				"iid": 7,
				"title": "Fix login bug",
				"description": "Login fails on empty password",
				"web_url": "https://gitlab.test/acme/web/-/merge_requests/7",
				"author": {"username": "carol"},
				"created_at": "2024-05-01T10:00:00Z",
				"assignees": [{"id": 11, "username": "alice"}, {"id": 12, "username": "bob"}],
				"labels": ["bug"]
			}`), nil
		})
	mt.RegisterResponder(http.MethodGet, `=~/merge_requests/7/diffs`,
		func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `[
				{
					"old_path": "auth/login.go",
					"new_path": "auth/login.go",
					"diff": "@@ -10,2 +10,3 @@\n-\tif password == \"\" {\n+\tif strings.TrimSpace(password) == \"\" {\n+\t\treturn ErrEmptyPassword\n \t}\n"
				},
				{
					"old_path": "auth/errors.go",
					"new_path": "auth/errors.go",
					"new_file": true,
					"diff": "@@ -0,0 +1 @@\n+var ErrEmptyPassword = errors.New(\"empty password\")\n"
				}
			]`), nil
		})

	pr, err := tr.GetPullRequest(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, pr.Number)
	assert.Equal(t, "Fix login bug", pr.Title)
	assert.Equal(t, "carol", pr.Author)
	assert.Equal(t, []string{"bug"}, pr.Labels)
	assert.Equal(t, []User{{Login: "alice", ID: 11}, {Login: "bob", ID: 12}}, pr.Assignees)
	assert.Contains(t, pr.Diff, "--- /dev/null\n+++ b/auth/errors.go")
	assert.Equal(t, []FileStat{
		{Path: "auth/login.go", Added: 2, Deleted: 1},
		{Path: "auth/errors.go", Added: 1, Deleted: 0},
	}, pr.Files)
	assert.Equal(t, 2, pr.ChangedFiles)
	assert.Equal(t, 3, pr.Additions)
	assert.Equal(t, 1, pr.Deletions)
}

func TestGitLabTracker_ListLabels(t *testing.T) {
	tr, mt := newTestGitLabTracker(t)
	mt.RegisterResponder(http.MethodGet, `=~/labels(\?|$)`,
		httpmock.NewStringResponder(http.StatusOK, `[
			{"name": "bug", "description": "Something is broken"},
			{"name": "enhancement", "description": ""}
		]`))

	labels, err := tr.ListLabels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Label{
		{Name: "bug", Description: "Something is broken"},
		{Name: "enhancement"},
	}, labels)

	types, err := tr.ListIssueTypes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestGitLabTracker_CreateIssueAndLink(t *testing.T) {
	tr, mt := newTestGitLabTracker(t)

	var created, updated map[string]interface{}
	mt.RegisterResponder(http.MethodPost, `=~/issues(\?|$)`,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&created))
			return jsonResponse(http.StatusCreated, `{
				"iid": 5,
				"title": "Login accepts empty passwords",
				"web_url": "https://gitlab.test/acme/web/-/issues/5"
			}`), nil
		})
	mt.RegisterResponder(http.MethodPut, `=~/merge_requests/7(\?|$)`,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&updated))
			return jsonResponse(http.StatusOK, `{"iid": 7}`), nil
		})

	issue, err := tr.CreateIssue(context.Background(), IssueInput{
		Title:     "Login accepts empty passwords",
		Body:      "Users can log in without a password.",
		Labels:    []string{"bug"},
		Assignees: []User{{Login: "alice", ID: 11}, {Login: "bob", ID: 12}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, issue.Number)
	assert.Equal(t, "https://gitlab.test/acme/web/-/issues/5", issue.URL)
	assert.Equal(t, "Login accepts empty passwords", created["title"])
	assert.Equal(t, []interface{}{float64(11), float64(12)}, created["assignee_ids"])

	err = tr.LinkIssue(context.Background(), PullRequest{Number: 7}, issue)
	require.NoError(t, err)
	assert.Equal(t, "Closes #5", updated["description"])
}

func TestGitLabTracker_RemoteError(t *testing.T) {
	tr, mt := newTestGitLabTracker(t)
	mt.RegisterResponder(http.MethodGet, `=~/labels(\?|$)`,
		httpmock.NewStringResponder(http.StatusForbidden, `{"message": "403 Forbidden"}`))

	_, err := tr.ListLabels(context.Background())
	var apiErr *RemoteAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, PlatformGitLab, apiErr.Platform)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
