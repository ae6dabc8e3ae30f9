// Package issuegen turns a triggering pull request comment into a linked
// issue.
package issuegen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/barabum0/ai-issue-action/internals/event"
	"github.com/barabum0/ai-issue-action/internals/git"
	"github.com/barabum0/ai-issue-action/internals/llm"
	"github.com/barabum0/ai-issue-action/internals/notify"
	"github.com/barabum0/ai-issue-action/internals/prompt"
)

type IssueWriter interface {
	Generate(ctx context.Context, req llm.Request) (llm.GeneratedIssue, error)
}

type Notifier interface {
	NotifyIssueCreated(ctx context.Context, msg notify.IssueCreatedMessage) error
}

type Result struct {
	Skipped bool
	Number  int
	URL     string
}

type Generator struct {
	tracker  git.Tracker
	writer   IssueWriter
	notifier Notifier
	prompt   prompt.Options
	log      *slog.Logger
}

type Option func(*Generator)

// WithNotifier announces created issues. Notification failures are logged and
// do not fail the run.
func WithNotifier(n Notifier) Option {
	return func(g *Generator) { g.notifier = n }
}

func WithPromptOptions(opts prompt.Options) Option {
	return func(g *Generator) { g.prompt = opts }
}

func New(tracker git.Tracker, writer IssueWriter, log *slog.Logger, opts ...Option) *Generator {
	g := &Generator{tracker: tracker, writer: writer, log: log}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Draft is the issue the model wrote for a pull request, already reduced to
// labels and an issue type the repository knows.
type Draft struct {
	PR    git.PullRequest
	Issue git.IssueInput
	// DroppedLabels were suggested by the model but do not exist.
	DroppedLabels []string
}

// Draft reads the pull request and asks the model for an issue without
// writing anything to the repository.
func (g *Generator) Draft(ctx context.Context, prNumber int) (Draft, error) {
	log := g.log.With("pr", prNumber)

	pr, err := g.tracker.GetPullRequest(ctx, prNumber)
	if err != nil {
		return Draft{}, fmt.Errorf("get pull request: %w", err)
	}
	labels, err := g.tracker.ListLabels(ctx)
	if err != nil {
		return Draft{}, fmt.Errorf("list labels: %w", err)
	}
	types, err := g.tracker.ListIssueTypes(ctx)
	if err != nil {
		return Draft{}, fmt.Errorf("list issue types: %w", err)
	}
	log.Info("gathered pull request context",
		"files", pr.ChangedFiles, "labels", len(labels), "issue_types", len(types))

	p := prompt.Build(pr, labels, types, g.prompt)
	generated, err := g.writer.Generate(ctx, llm.Request{
		System:     p.System,
		Prompt:     p.User,
		Labels:     labelNames(labels),
		IssueTypes: typeNames(types),
	})
	if err != nil {
		return Draft{}, fmt.Errorf("generate issue: %w", err)
	}

	kept, dropped := FilterLabels(generated.Labels, labels)
	if len(dropped) > 0 {
		log.Warn("dropping labels unknown to the repository", "labels", dropped)
	}
	issueType := matchIssueType(generated.IssueType, types)
	if generated.IssueType != "" && issueType == "" {
		log.Warn("dropping unknown issue type", "issue_type", generated.IssueType)
	}

	return Draft{
		PR: pr,
		Issue: git.IssueInput{
			Title:     generated.Title,
			Body:      generated.Body,
			Labels:    kept,
			Assignees: pr.Assignees,
			Type:      issueType,
		},
		DroppedLabels: dropped,
	}, nil
}

// Run creates one issue for the pull request in ev and links it back. When the
// issue was created but linking failed, the returned Result still carries the
// issue alongside the error.
func (g *Generator) Run(ctx context.Context, ev event.Event) (Result, error) {
	if !ev.Triggered {
		g.log.Info("comment does not request an issue, nothing to do", "repo", ev.Repo.FullName())
		return Result{Skipped: true}, nil
	}

	log := g.log.With("repo", ev.Repo.FullName(), "pr", ev.PRNumber)

	draft, err := g.Draft(ctx, ev.PRNumber)
	if err != nil {
		return Result{}, err
	}

	issue, err := g.tracker.CreateIssue(ctx, draft.Issue)
	if err != nil {
		return Result{}, fmt.Errorf("create issue: %w", err)
	}
	res := Result{Number: issue.Number, URL: issue.URL}
	log.Info("created issue", "issue", issue.Number, "url", issue.URL, "labels", draft.Issue.Labels)

	if err := g.tracker.LinkIssue(ctx, draft.PR, issue); err != nil {
		return res, fmt.Errorf("link issue #%d: %w", issue.Number, err)
	}
	log.Info("linked issue to pull request", "issue", issue.Number)

	if g.notifier != nil {
		msg := notify.IssueCreatedMessage{
			IssueURL:    issue.URL,
			IssueNumber: issue.Number,
			IssueTitle:  issue.Title,
			PRURL:       draft.PR.URL,
			PRTitle:     draft.PR.Title,
			Repo:        ev.Repo.FullName(),
			Requester:   ev.Commenter,
		}
		if err := g.notifier.NotifyIssueCreated(ctx, msg); err != nil {
			log.Warn("could not send notification", "err", err)
		}
	}
	return res, nil
}

// FilterLabels keeps the suggested labels that exist in the repository,
// spelled the way the repository spells them. Matching ignores case and
// duplicates are removed; anything else is returned as dropped.
func FilterLabels(suggested []string, available []git.Label) (kept, dropped []string) {
	known := make(map[string]string, len(available))
	for _, l := range available {
		known[strings.ToLower(l.Name)] = l.Name
	}

	seen := make(map[string]bool)
	for _, s := range suggested {
		name, ok := known[strings.ToLower(strings.TrimSpace(s))]
		if !ok {
			dropped = append(dropped, s)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		kept = append(kept, name)
	}
	return kept, dropped
}

func matchIssueType(name string, types []git.IssueType) string {
	if name == "" {
		return ""
	}
	for _, t := range types {
		if strings.EqualFold(t.Name, name) {
			return t.Name
		}
	}
	return ""
}

func labelNames(labels []git.Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.Name)
	}
	return out
}

func typeNames(types []git.IssueType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.Name)
	}
	return out
}
