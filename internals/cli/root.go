// Package cli provides the ai-issue command line. With no subcommand it
// handles the event of the current workflow run.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/barabum0/ai-issue-action/internals/action"
	"github.com/barabum0/ai-issue-action/internals/config"
	"github.com/barabum0/ai-issue-action/internals/git"
	"github.com/barabum0/ai-issue-action/internals/issuegen"
	"github.com/barabum0/ai-issue-action/internals/llm"
	"github.com/barabum0/ai-issue-action/internals/notify"
	"github.com/barabum0/ai-issue-action/internals/prompt"
)

// NewRootCommand builds the command tree. reporter receives outputs and error
// annotations of the action run.
func NewRootCommand(version string, reporter *action.Reporter) *cobra.Command {
	root := &cobra.Command{
		Use:   "ai-issue",
		Short: "Create a linked issue from a pull request comment",
		Long: `ai-issue reads the comment event a workflow was started for. When the
comment is on a pull request and contains the trigger phrase, it asks the
model to describe the change as an issue, creates that issue with the pull
request's assignees and links it back to the pull request.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, reporter)
		},
	}

	flags := root.PersistentFlags()
	flags.String("trigger", "", "phrase a comment must contain (default \"@aiissue\")")
	flags.String("model", "", "Anthropic model (default \""+llm.DefaultModel+"\")")
	flags.Int64("max-tokens", 0, "upper bound on the model's response length")
	flags.Float64("temperature", 0, "sampling temperature between 0 and 1")
	flags.Int("max-diff-chars", 0, "diff characters included in the prompt, negative for no limit")
	flags.String("log-level", "", "debug, info, warn or error")
	root.Flags().String("event-path", "", "webhook payload to handle (default $GITHUB_EVENT_PATH)")

	root.AddCommand(newPreviewCommand())
	return root
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

func newGenerator(cfg config.Config, tracker git.Tracker, log *slog.Logger, notifier issuegen.Notifier) *issuegen.Generator {
	llmClient := llm.NewClient(cfg.AnthropicAPIKey,
		llm.WithModel(cfg.Model),
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithTemperature(cfg.Temperature),
	)

	opts := []issuegen.Option{
		issuegen.WithPromptOptions(prompt.Options{MaxDiffChars: cfg.MaxDiffChars}),
	}
	if notifier != nil {
		opts = append(opts, issuegen.WithNotifier(notifier))
	}
	return issuegen.New(tracker, llmClient, log, opts...)
}

func newFactory(cfg config.Config) *git.Factory {
	return git.NewFactory(cfg.GitHubToken, cfg.GitLabToken,
		git.WithGitHubAPIURL(cfg.GitHubAPIURL),
		git.WithGitLabBaseURL(cfg.GitLabURL),
	)
}

func slackNotifier(cfg config.Config) issuegen.Notifier {
	if !cfg.SlackEnabled() {
		return nil
	}
	return notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel)
}
