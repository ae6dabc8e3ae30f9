package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

type IssueCreatedMessage struct {
	IssueURL    string
	IssueNumber int
	IssueTitle  string
	PRURL       string
	PRTitle     string
	Repo        string
	Requester   string
}

type SlackNotifier struct {
	client    *slack.Client
	channelID string // channel to post issue announcements to
}

func NewSlackNotifier(botToken, channelID string, opts ...slack.Option) *SlackNotifier {
	return &SlackNotifier{
		client:    slack.New(botToken, opts...),
		channelID: channelID,
	}
}

func (n *SlackNotifier) NotifyIssueCreated(ctx context.Context, msg IssueCreatedMessage) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(formatIssueCreated(msg), false),
	)
	if err != nil {
		return fmt.Errorf("slack notify: %w", err)
	}
	return nil
}

func formatIssueCreated(msg IssueCreatedMessage) string {
	text := fmt.Sprintf(
		":memo: *Issue #%d opened from a pull request*\n"+
			"*<%s|%s>*\n"+
			"PR: <%s|%s>\n"+
			"Repo: %s",
		msg.IssueNumber, msg.IssueURL, msg.IssueTitle,
		msg.PRURL, msg.PRTitle,
		msg.Repo,
	)
	if msg.Requester != "" {
		text += "\nRequested by: " + msg.Requester
	}
	return text
}
