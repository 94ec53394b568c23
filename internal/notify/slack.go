package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

type postWebhookFunc func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// SlackSink posts to a Slack incoming webhook. The recipient is rendered into
// the text since the webhook is bound to one channel.
type SlackSink struct {
	url  string
	post postWebhookFunc
}

// NewSlackSink returns nil, false for an empty webhook URL.
func NewSlackSink(webhookURL string) (*SlackSink, bool) {
	if webhookURL == "" {
		return nil, false
	}
	return &SlackSink{url: webhookURL, post: slack.PostWebhookContext}, true
}

func (s *SlackSink) Send(ctx context.Context, n Notification) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("*%s*\n%s", n.Subject, n.Body),
	}
	if n.Recipient != "" {
		msg.Text = fmt.Sprintf("%s\n_to: %s_", msg.Text, n.Recipient)
	}
	if err := s.post(ctx, s.url, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
