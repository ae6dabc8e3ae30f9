package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barabum0/ai-issue-action/internals/config"
	"github.com/barabum0/ai-issue-action/internals/git"
	"github.com/barabum0/ai-issue-action/internals/issuegen"
)

func newPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the issue that would be created for a pull request",
		Long: `preview reads a pull request and asks the model for an issue exactly as a
triggered run would, then prints the result instead of creating it.`,
		Example: `  ai-issue preview --repo acme/web --pr 7
  ai-issue preview --platform gitlab --repo group/sub/project --pr 12`,
		Args: cobra.NoArgs,
		RunE: runPreview,
	}
	cmd.Flags().String("repo", "", "repository as owner/name, or the full project path on GitLab")
	cmd.Flags().Int("pr", 0, "pull request or merge request number")
	cmd.Flags().String("platform", "github", "github or gitlab")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("pr")
	return cmd
}

func runPreview(cmd *cobra.Command, _ []string) error {
	repo, _ := cmd.Flags().GetString("repo")
	number, _ := cmd.Flags().GetInt("pr")
	platformName, _ := cmd.Flags().GetString("platform")
	if number <= 0 {
		return fmt.Errorf("--pr must be a positive number, got %d", number)
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	info, err := previewRepo(platformName, repo, cfg)
	if err != nil {
		return err
	}
	if err := cfg.Validate(info.Platform); err != nil {
		return err
	}

	tracker, err := newFactory(cfg).TrackerFor(cmd.Context(), info)
	if err != nil {
		return err
	}

	log := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(log)
	draft, err := newGenerator(cfg, tracker, log, nil).Draft(cmd.Context(), number)
	if err != nil {
		return err
	}
	return renderDraft(cmd.OutOrStdout(), draft)
}

func previewRepo(platformName, repo string, cfg config.Config) (git.RepoInfo, error) {
	switch strings.ToLower(platformName) {
	case "github":
		return git.NewRepoInfo(git.PlatformGitHub, repo, "https://github.com/"+repo)
	case "gitlab":
		base := strings.TrimSuffix(cfg.GitLabURL, "/")
		if base == "" {
			base = "https://gitlab.com"
		}
		return git.NewRepoInfo(git.PlatformGitLab, repo, base+"/"+repo)
	}
	return git.RepoInfo{}, fmt.Errorf("unknown platform %q, want github or gitlab", platformName)
}

func renderDraft(w io.Writer, d issuegen.Draft) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Issue.Title)
	fmt.Fprintf(&sb, "Pull request: #%d %s\n", d.PR.Number, d.PR.Title)
	if len(d.Issue.Labels) > 0 {
		fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(d.Issue.Labels, ", "))
	}
	if len(d.DroppedLabels) > 0 {
		fmt.Fprintf(&sb, "Dropped labels: %s\n", strings.Join(d.DroppedLabels, ", "))
	}
	if d.Issue.Type != "" {
		fmt.Fprintf(&sb, "Type: %s\n", d.Issue.Type)
	}
	if len(d.Issue.Assignees) > 0 {
		logins := make([]string, 0, len(d.Issue.Assignees))
		for _, a := range d.Issue.Assignees {
			logins = append(logins, a.Login)
		}
		fmt.Fprintf(&sb, "Assignees: %s\n", strings.Join(logins, ", "))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimRight(d.Issue.Body, "\n"))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
