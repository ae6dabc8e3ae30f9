package git

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

type GitLabTracker struct {
	gl      *gitlab.Client
	info    RepoInfo
	baseURL string
}

func NewGitLabTracker(token, baseURL string, info RepoInfo, opts ...gitlab.ClientOptionFunc) (*GitLabTracker, error) {
	opts = append([]gitlab.ClientOptionFunc{
		gitlab.WithBaseURL(baseURL + "/api/v4"),
		gitlab.WithCustomRetryMax(0),
	}, opts...)
	gl, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return &GitLabTracker{gl: gl, info: info, baseURL: baseURL}, nil
}

func (t *GitLabTracker) pid() string {
	return t.info.Owner + "/" + t.info.Repo
}

func (t *GitLabTracker) GetPullRequest(ctx context.Context, number int) (PullRequest, error) {
	mr, resp, err := t.gl.MergeRequests.GetMergeRequest(t.pid(), int64(number), nil, gitlab.WithContext(ctx))
	if err != nil {
		return PullRequest{}, gitlabError("get merge request", resp, err)
	}

	diff, err := t.mergeRequestDiff(ctx, number)
	if err != nil {
		return PullRequest{}, err
	}

	out := PullRequest{
		Number:      int(mr.IID),
		Title:       mr.Title,
		Description: mr.Description,
		URL:         mr.WebURL,
		Diff:        diff,
		Labels:      mr.Labels,
	}
	if mr.Author != nil {
		out.Author = mr.Author.Username
	}
	if mr.CreatedAt != nil {
		out.CreatedAt = *mr.CreatedAt
	}
	for _, a := range mr.Assignees {
		out.Assignees = append(out.Assignees, User{Login: a.Username, ID: int64(a.ID)})
	}
	// GitLab reports no line totals on the merge request itself.
	if files, err := ParseDiffStats(diff); err == nil {
		out.Files = files
		out.ChangedFiles = len(files)
		for _, f := range files {
			out.Additions += f.Added
			out.Deletions += f.Deleted
		}
	}
	return out, nil
}

// mergeRequestDiff stitches the per-file diffs GitLab returns back into a
// single unified diff.
func (t *GitLabTracker) mergeRequestDiff(ctx context.Context, number int) (string, error) {
	var sb strings.Builder
	opts := &gitlab.ListMergeRequestDiffsOptions{}
	opts.PerPage = 100
	for {
		diffs, resp, err := t.gl.MergeRequests.ListMergeRequestDiffs(t.pid(), int64(number), opts, gitlab.WithContext(ctx))
		if err != nil {
			return "", gitlabError("list merge request diffs", resp, err)
		}
		for _, d := range diffs {
			oldName, newName := "a/"+d.OldPath, "b/"+d.NewPath
			if d.NewFile {
				oldName = "/dev/null"
			}
			if d.DeletedFile {
				newName = "/dev/null"
			}
			fmt.Fprintf(&sb, "diff --git a/%s b/%s\n--- %s\n+++ %s\n", d.OldPath, d.NewPath, oldName, newName)
			sb.WriteString(d.Diff)
			if !strings.HasSuffix(d.Diff, "\n") {
				sb.WriteString("\n")
			}
		}
		if resp.NextPage == 0 {
			return sb.String(), nil
		}
		opts.Page = resp.NextPage
	}
}

func (t *GitLabTracker) ListLabels(ctx context.Context) ([]Label, error) {
	var out []Label
	opts := &gitlab.ListLabelsOptions{}
	opts.PerPage = 100
	for {
		labels, resp, err := t.gl.Labels.ListLabels(t.pid(), opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, gitlabError("list labels", resp, err)
		}
		for _, l := range labels {
			out = append(out, Label{Name: l.Name, Description: l.Description})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListIssueTypes reports none: GitLab's issue types are fixed and are not
// something the model gets to choose between.
func (t *GitLabTracker) ListIssueTypes(ctx context.Context) ([]IssueType, error) {
	return nil, nil
}

func (t *GitLabTracker) CreateIssue(ctx context.Context, input IssueInput) (Issue, error) {
	labels := gitlab.LabelOptions(input.Labels)
	opts := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(input.Title),
		Description: gitlab.Ptr(input.Body),
		Labels:      &labels,
	}
	if len(input.Assignees) > 0 {
		ids := make([]int64, 0, len(input.Assignees))
		for _, a := range input.Assignees {
			ids = append(ids, a.ID)
		}
		opts.AssigneeIDs = &ids
	}

	issue, resp, err := t.gl.Issues.CreateIssue(t.pid(), opts, gitlab.WithContext(ctx))
	if err != nil {
		return Issue{}, gitlabError("create issue", resp, err)
	}
	return Issue{
		Number: int(issue.IID), // IID is the project-scoped issue number
		Title:  issue.Title,
		URL:    issue.WebURL,
	}, nil
}

func (t *GitLabTracker) LinkIssue(ctx context.Context, pr PullRequest, issue Issue) error {
	opts := &gitlab.UpdateMergeRequestOptions{
		Description: gitlab.Ptr(ClosingBody(pr.Description, issue.Number)),
	}
	_, resp, err := t.gl.MergeRequests.UpdateMergeRequest(t.pid(), int64(pr.Number), opts, gitlab.WithContext(ctx))
	if err != nil {
		return gitlabError("link issue", resp, err)
	}
	return nil
}

func gitlabError(op string, resp *gitlab.Response, err error) error {
	var hr *http.Response
	if resp != nil {
		hr = resp.Response
	}
	return remoteError(PlatformGitLab, op, hr, err)
}
