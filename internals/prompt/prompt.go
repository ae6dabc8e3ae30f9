// Package prompt turns a pull request snapshot into the text sent to the
// model. Everything here is a pure function of its inputs.
package prompt

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/barabum0/ai-issue-action/internals/git"
)

const DefaultMaxDiffChars = 20000

type Options struct {
	// MaxDiffChars caps the diff embedded in the prompt. Zero means
	// DefaultMaxDiffChars; a negative value disables the cap.
	MaxDiffChars int
}

type Prompt struct {
	System string
	User   string
}

func Build(pr git.PullRequest, labels []git.Label, types []git.IssueType, opts Options) Prompt {
	return Prompt{
		System: systemPrompt(),
		User:   userPrompt(pr, labels, types, opts),
	}
}

func systemPrompt() string {
	return `You are an experienced software engineer who writes clear, well-structured
GitHub issues. You will be given a pull request. Write the issue that this pull
request resolves, as it would have been filed before the work started.

Always respond by calling create_issue. Never answer with plain text.`
}

func userPrompt(pr git.PullRequest, labels []git.Label, types []git.IssueType, opts Options) string {
	var sb strings.Builder

	sb.WriteString("Write the issue that the following pull request resolves.\n\n")
	sb.WriteString("## Pull Request\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", pr.Title)
	if pr.Author != "" {
		fmt.Fprintf(&sb, "Author: %s\n", pr.Author)
	}
	if !pr.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "Created: %s\n", pr.CreatedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "Files changed: %d, additions: %d, deletions: %d\n", pr.ChangedFiles, pr.Additions, pr.Deletions)

	sb.WriteString("\n### Description\n\n")
	if strings.TrimSpace(pr.Description) == "" {
		sb.WriteString("(no description)\n")
	} else {
		sb.WriteString(pr.Description)
		sb.WriteString("\n")
	}

	if len(pr.Files) > 0 {
		sb.WriteString("\n### Changed files\n\n")
		for _, f := range pr.Files {
			fmt.Fprintf(&sb, "- %s (+%d/-%d)\n", f.Path, f.Added, f.Deleted)
		}
	}

	sb.WriteString("\n### Diff\n\n```diff\n")
	sb.WriteString(truncate(pr.Diff, maxDiff(opts)))
	sb.WriteString("\n```\n")

	sb.WriteString("\n## Available labels\n\n")
	if len(labels) == 0 {
		sb.WriteString("The repository has no labels; return an empty label list.\n")
	}
	for _, l := range labels {
		writeChoice(&sb, l.Name, l.Description)
	}

	if len(types) > 0 {
		sb.WriteString("\n## Available issue types\n\n")
		for _, it := range types {
			writeChoice(&sb, it.Name, it.Description)
		}
	}

	sb.WriteString(`
## Instructions

1. Write a short, informative issue title.
2. Write a Markdown issue body describing the problem or task this pull request
   addresses: the context of the problem and why it matters.
3. Choose the fitting labels, only from the available labels above.
`)
	if len(types) > 0 {
		sb.WriteString("4. Choose the single most fitting issue type from the available issue types above.\n")
	}
	return sb.String()
}

func writeChoice(sb *strings.Builder, name, description string) {
	if description == "" {
		fmt.Fprintf(sb, "- %s\n", name)
		return
	}
	fmt.Fprintf(sb, "- %s: %s\n", name, description)
}

func maxDiff(opts Options) int {
	if opts.MaxDiffChars == 0 {
		return DefaultMaxDiffChars
	}
	return opts.MaxDiffChars
}

// truncate keeps the first max characters of s.
func truncate(s string, max int) string {
	total := utf8.RuneCountInString(s)
	if max < 0 || total <= max {
		return s
	}
	cut, n := 0, 0
	for i := range s {
		if n == max {
			cut = i
			break
		}
		n++
	}
	return s[:cut] + fmt.Sprintf("\n... (truncated, %d chars total)", total)
}
