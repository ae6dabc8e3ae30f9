package git

import (
	"context"
	"fmt"
	"time"
)

// Tracker is the repository-side surface the issue generator needs: read a
// pull request, discover what labels and issue types exist, and file the
// issue back against it.
type Tracker interface {
	GetPullRequest(ctx context.Context, number int) (PullRequest, error)
	ListLabels(ctx context.Context) ([]Label, error)
	ListIssueTypes(ctx context.Context) ([]IssueType, error)
	CreateIssue(ctx context.Context, input IssueInput) (Issue, error)
	LinkIssue(ctx context.Context, pr PullRequest, issue Issue) error
}

type User struct {
	Login string
	ID    int64 // GitLab assigns by ID, GitHub by login
}

type Label struct {
	Name        string
	Description string
}

type IssueType struct {
	Name        string
	Description string
}

type PullRequest struct {
	Number       int
	Title        string
	Description  string
	Author       string
	URL          string
	CreatedAt    time.Time
	Diff         string // unified diff of all changes
	Files        []FileStat
	ChangedFiles int
	Additions    int
	Deletions    int
	Assignees    []User
	Labels       []string
}

type IssueInput struct {
	Title     string
	Body      string // Markdown
	Labels    []string
	Assignees []User
	Type      string // optional, must be one of the repository's issue types
}

type Issue struct {
	Number int
	Title  string
	URL    string
}

type Platform int

const (
	PlatformGitHub Platform = iota
	PlatformGitLab
)

func (p Platform) String() string {
	switch p {
	case PlatformGitHub:
		return "github"
	case PlatformGitLab:
		return "gitlab"
	default:
		return "unknown"
	}
}

// ClosingBody appends a closing keyword for issueNumber to a PR description so
// that merging the PR closes the issue.
func ClosingBody(body string, issueNumber int) string {
	ref := fmt.Sprintf("Closes #%d", issueNumber)
	if body == "" {
		return ref
	}
	return body + "\n\n" + ref
}
