package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/barabum0/ai-issue-action/internals/action"
	"github.com/barabum0/ai-issue-action/internals/config"
	"github.com/barabum0/ai-issue-action/internals/event"
)

func runAction(cmd *cobra.Command, reporter *action.Reporter) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		reporter.Fail(err)
		return err
	}
	log := newLogger(cmd.OutOrStdout(), cfg)
	slog.SetDefault(log)

	ev, err := event.Read(cfg.EventPath, cfg.Trigger)
	if err != nil {
		log.Error("could not read event", "path", cfg.EventPath, "err", err)
		reporter.Fail(err)
		return err
	}
	if !ev.Triggered {
		log.Info("no trigger phrase in a pull request comment, skipping", "trigger", cfg.Trigger)
		return nil
	}
	if err := cfg.Validate(ev.Repo.Platform); err != nil {
		log.Error("invalid configuration", "err", err)
		reporter.Fail(err)
		return err
	}

	tracker, err := newFactory(cfg).TrackerFor(ctx, ev.Repo)
	if err != nil {
		log.Error("could not build tracker", "err", err)
		reporter.Fail(err)
		return err
	}

	log.Info("generating issue",
		"repo", ev.Repo.FullName(), "pr", ev.PRNumber, "commenter", ev.Commenter, "model", cfg.Model)

	res, err := newGenerator(cfg, tracker, log, slackNotifier(cfg)).Run(ctx, ev)
	// An issue that was created but not linked is still reported.
	reporter.Publish(res)
	if err != nil {
		log.Error("run failed", "err", err)
		reporter.Fail(err)
		return err
	}

	log.Info("done", "issue", res.Number, "url", res.URL)
	return nil
}
