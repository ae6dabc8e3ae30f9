// Package action reports a run's outcome to the workflow through workflow
// commands and the GITHUB_OUTPUT file.
package action

import (
	"errors"
	"strconv"

	"github.com/sethvargo/go-githubactions"

	"github.com/barabum0/ai-issue-action/internals/event"
	"github.com/barabum0/ai-issue-action/internals/git"
	"github.com/barabum0/ai-issue-action/internals/issuegen"
	"github.com/barabum0/ai-issue-action/internals/llm"
)

const (
	OutputIssueNumber = "issue_number"
	OutputIssueURL    = "issue_url"
)

type Reporter struct {
	gha *githubactions.Action
}

// New reports through the runner's stdout and environment unless opts say
// otherwise. Without GITHUB_OUTPUT the legacy ::set-output command is used.
func New(opts ...githubactions.Option) *Reporter {
	return &Reporter{gha: githubactions.New(opts...)}
}

// Publish sets the outputs for a created issue. Skipped runs set none.
func (r *Reporter) Publish(res issuegen.Result) {
	if res.Skipped || res.Number == 0 {
		return
	}
	r.gha.SetOutput(OutputIssueNumber, strconv.Itoa(res.Number))
	r.gha.SetOutput(OutputIssueURL, res.URL)
}

// Fail annotates the run with err so it shows up on the workflow summary.
func (r *Reporter) Fail(err error) {
	r.gha.Errorf("%s: %v", Describe(err), err)
}

// Describe names the kind of failure behind err.
func Describe(err error) string {
	var (
		malformed *event.MalformedPayloadError
		quota     *llm.QuotaError
		response  *llm.ResponseError
		remote    *git.RemoteAPIError
	)
	switch {
	case errors.As(err, &malformed):
		return "unreadable event payload"
	case errors.As(err, &quota):
		return "model provider is rate limiting or overloaded"
	case errors.As(err, &response):
		return "model returned an unusable issue"
	case errors.As(err, &remote):
		return remote.Platform.String() + " request failed"
	default:
		return "ai-issue failed"
	}
}
