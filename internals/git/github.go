package git

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

const DefaultGitHubAPIURL = "https://api.github.com/"

type GitHubTracker struct {
	gh   *github.Client
	info RepoInfo
	log  *slog.Logger
}

type GitHubOption func(*GitHubTracker) error

// WithAPIURL points the tracker at a GitHub Enterprise Server API root, as
// exposed to actions through GITHUB_API_URL.
func WithAPIURL(apiURL string) GitHubOption {
	return func(t *GitHubTracker) error {
		if apiURL == "" {
			return nil
		}
		u, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		t.gh.BaseURL = u
		return nil
	}
}

func WithLogger(log *slog.Logger) GitHubOption {
	return func(t *GitHubTracker) error {
		t.log = log
		return nil
	}
}

func NewGitHubTracker(ctx context.Context, token string, info RepoInfo, opts ...GitHubOption) (*GitHubTracker, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	t := &GitHubTracker{
		gh:   github.NewClient(oauth2.NewClient(ctx, ts)),
		info: info,
		log:  slog.Default(),
	}
	for _, o := range opts {
		if err := o(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *GitHubTracker) GetPullRequest(ctx context.Context, number int) (PullRequest, error) {
	pr, resp, err := t.gh.PullRequests.Get(ctx, t.info.Owner, t.info.Repo, number)
	if err != nil {
		return PullRequest{}, githubError("get pull request", resp, err)
	}

	raw, resp, err := t.gh.PullRequests.GetRaw(ctx, t.info.Owner, t.info.Repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return PullRequest{}, githubError("get pull request diff", resp, err)
	}

	out := PullRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		Author:       pr.GetUser().GetLogin(),
		URL:          pr.GetHTMLURL(),
		CreatedAt:    pr.GetCreatedAt().Time,
		Diff:         raw,
		ChangedFiles: pr.GetChangedFiles(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
	}
	for _, a := range pr.Assignees {
		out.Assignees = append(out.Assignees, User{Login: a.GetLogin(), ID: a.GetID()})
	}
	for _, l := range pr.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}
	// Stats are informational only; an unparseable diff still goes to the prompt as text.
	if files, err := ParseDiffStats(raw); err == nil {
		out.Files = files
	}
	return out, nil
}

func (t *GitHubTracker) ListLabels(ctx context.Context) ([]Label, error) {
	var out []Label
	opts := &github.ListOptions{PerPage: 100}
	for {
		labels, resp, err := t.gh.Issues.ListLabels(ctx, t.info.Owner, t.info.Repo, opts)
		if err != nil {
			return nil, githubError("list labels", resp, err)
		}
		for _, l := range labels {
			out = append(out, Label{Name: l.GetName(), Description: l.GetDescription()})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

type githubIssueType struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsEnabled   *bool  `json:"is_enabled,omitempty"`
}

// ListIssueTypes returns the organization's issue types. Repositories owned by
// a user have none, which the API reports as 404. Issue types are optional, so
// a token that may not read them (401, 403) also yields none.
func (t *GitHubTracker) ListIssueTypes(ctx context.Context) ([]IssueType, error) {
	req, err := t.gh.NewRequest(http.MethodGet, fmt.Sprintf("orgs/%s/issue-types", t.info.Owner), nil)
	if err != nil {
		return nil, githubError("list issue types", nil, err)
	}

	var types []githubIssueType
	resp, err := t.gh.Do(ctx, req, &types)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return nil, nil
			case http.StatusUnauthorized, http.StatusForbidden:
				t.log.Warn("cannot read organization issue types, continuing without them",
					"org", t.info.Owner, "status", resp.StatusCode)
				return nil, nil
			}
		}
		return nil, githubError("list issue types", resp, err)
	}

	out := make([]IssueType, 0, len(types))
	for _, it := range types {
		if it.IsEnabled != nil && !*it.IsEnabled {
			continue
		}
		out = append(out, IssueType{Name: it.Name, Description: it.Description})
	}
	return out, nil
}

// github.IssueRequest in v60 predates issue types, so the create call is sent
// as a hand-built request.
type githubIssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels"`
	Assignees []string `json:"assignees,omitempty"`
	Type      string   `json:"type,omitempty"`
}

func (t *GitHubTracker) CreateIssue(ctx context.Context, input IssueInput) (Issue, error) {
	body := githubIssueRequest{
		Title:  input.Title,
		Body:   input.Body,
		Labels: input.Labels,
		Type:   input.Type,
	}
	if body.Labels == nil {
		body.Labels = []string{}
	}
	for _, a := range input.Assignees {
		body.Assignees = append(body.Assignees, a.Login)
	}

	req, err := t.gh.NewRequest(http.MethodPost, fmt.Sprintf("repos/%s/%s/issues", t.info.Owner, t.info.Repo), body)
	if err != nil {
		return Issue{}, githubError("create issue", nil, err)
	}

	issue := new(github.Issue)
	resp, err := t.gh.Do(ctx, req, issue)
	if err != nil {
		return Issue{}, githubError("create issue", resp, err)
	}
	return Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		URL:    issue.GetHTMLURL(),
	}, nil
}

func (t *GitHubTracker) LinkIssue(ctx context.Context, pr PullRequest, issue Issue) error {
	edit := &github.PullRequest{Body: github.String(ClosingBody(pr.Description, issue.Number))}
	_, resp, err := t.gh.PullRequests.Edit(ctx, t.info.Owner, t.info.Repo, pr.Number, edit)
	if err != nil {
		return githubError("link issue", resp, err)
	}
	return nil
}

func githubError(op string, resp *github.Response, err error) error {
	var hr *http.Response
	if resp != nil {
		hr = resp.Response
	}
	return remoteError(PlatformGitHub, op, hr, err)
}
