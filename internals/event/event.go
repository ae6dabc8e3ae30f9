// Package event reads the webhook payload an action run was started for and
// decides whether the comment in it asks for an issue.
package event

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/barabum0/ai-issue-action/internals/git"
)

const DefaultTrigger = "@aiissue"

type Event struct {
	Repo      git.RepoInfo
	PRNumber  int
	Comment   string
	Commenter string
	// Triggered is false for comments on plain issues and for comments that
	// do not contain the trigger phrase.
	Triggered bool
}

// MalformedPayloadError means the payload could not be read or lacks a field
// required to identify the pull request.
type MalformedPayloadError struct {
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed event payload: %s: %v", e.Reason, e.Err)
	}
	return "malformed event payload: " + e.Reason
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

func malformed(format string, args ...interface{}) error {
	return &MalformedPayloadError{Reason: fmt.Sprintf(format, args...)}
}

// Read loads the event file the runner points GITHUB_EVENT_PATH at.
func Read(path, trigger string) (Event, error) {
	if path == "" {
		return Event{}, malformed("event path is not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Event{}, &MalformedPayloadError{Reason: "read " + path, Err: err}
	}
	return Parse(data, trigger)
}

// Parse accepts either a GitHub issue_comment payload or a GitLab note hook.
func Parse(data []byte, trigger string) (Event, error) {
	var probe struct {
		ObjectKind string `json:"object_kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Event{}, &MalformedPayloadError{Reason: "decode json", Err: err}
	}
	if probe.ObjectKind != "" {
		return parseGitLab(data, trigger)
	}
	return parseGitHub(data, trigger)
}

// HasTrigger is true if body contains trigger, ignoring case.
func HasTrigger(body, trigger string) bool {
	if trigger == "" {
		trigger = DefaultTrigger
	}
	return strings.Contains(strings.ToLower(body), strings.ToLower(trigger))
}

type githubCommentPayload struct {
	Action  string `json:"action"`
	Comment *struct {
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	Issue *struct {
		Number      int              `json:"number"`
		PullRequest *json.RawMessage `json:"pull_request"`
	} `json:"issue"`
	Repository *struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"repository"`
}

func parseGitHub(data []byte, trigger string) (Event, error) {
	var p githubCommentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, &MalformedPayloadError{Reason: "decode issue_comment payload", Err: err}
	}

	if p.Comment == nil {
		return Event{}, malformed("comment is missing from body")
	}
	if p.Issue == nil {
		return Event{}, malformed("issue is missing from body")
	}
	if p.Repository == nil || p.Repository.FullName == "" {
		return Event{}, malformed("repository is missing from body")
	}
	if p.Issue.Number <= 0 {
		return Event{}, malformed("issue number is missing from body")
	}

	repo, err := git.NewRepoInfo(git.PlatformGitHub, p.Repository.FullName, p.Repository.HTMLURL)
	if err != nil {
		return Event{}, &MalformedPayloadError{Reason: "repository", Err: err}
	}

	isPR := p.Issue.PullRequest != nil
	return Event{
		Repo:      repo,
		PRNumber:  p.Issue.Number,
		Comment:   p.Comment.Body,
		Commenter: p.Comment.User.Login,
		// Edits and deletions of an old comment must not file a second issue.
		Triggered: isPR && (p.Action == "" || p.Action == "created") && HasTrigger(p.Comment.Body, trigger),
	}, nil
}

type gitlabNotePayload struct {
	ObjectKind string `json:"object_kind"`
	User       struct {
		Username string `json:"username"`
	} `json:"user"`
	Project *struct {
		PathWithNamespace string `json:"path_with_namespace"`
		WebURL            string `json:"web_url"`
	} `json:"project"`
	ObjectAttributes *struct {
		Note         string `json:"note"`
		NoteableType string `json:"noteable_type"`
		Action       string `json:"action"` // "create" or "update"; absent on older GitLab
	} `json:"object_attributes"`
	MergeRequest *struct {
		IID int `json:"iid"`
	} `json:"merge_request"`
}

func parseGitLab(data []byte, trigger string) (Event, error) {
	var p gitlabNotePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, &MalformedPayloadError{Reason: "decode note hook", Err: err}
	}

	if p.ObjectKind != "note" {
		return Event{}, malformed("unsupported object_kind %q", p.ObjectKind)
	}
	if p.ObjectAttributes == nil {
		return Event{}, malformed("object_attributes is missing from body")
	}
	if p.Project == nil || p.Project.PathWithNamespace == "" {
		return Event{}, malformed("project is missing from body")
	}

	repo, err := git.NewRepoInfo(git.PlatformGitLab, p.Project.PathWithNamespace, p.Project.WebURL)
	if err != nil {
		return Event{}, &MalformedPayloadError{Reason: "project", Err: err}
	}

	ev := Event{
		Repo:      repo,
		Comment:   p.ObjectAttributes.Note,
		Commenter: p.User.Username,
	}
	if p.ObjectAttributes.NoteableType != "MergeRequest" {
		return ev, nil
	}
	if p.MergeRequest == nil || p.MergeRequest.IID <= 0 {
		return Event{}, malformed("merge_request is missing from body")
	}
	ev.PRNumber = p.MergeRequest.IID
	action := p.ObjectAttributes.Action
	// An edited note must not file a second issue.
	ev.Triggered = (action == "" || action == "create") && HasTrigger(ev.Comment, trigger)
	return ev, nil
}
