package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/config"
)

type recordingSink struct {
	got []Notification
	err error
}

func (r *recordingSink) Send(_ context.Context, n Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func TestMultiSink_DeliversToAllAndJoinsErrors(t *testing.T) {
	failing := &recordingSink{err: errors.New("down")}
	ok := &recordingSink{}
	multi := MultiSink{failing, ok, NewLogSink(zap.NewNop())}

	err := multi.Send(context.Background(), Notification{Recipient: "a@example.com", Subject: "s"})
	require.Error(t, err)
	assert.Len(t, failing.got, 1)
	assert.Len(t, ok.got, 1)
}

func TestSMTPSink_BuildsMessage(t *testing.T) {
	sink, enabled := NewSMTPSink(config.NotificationConfig{
		SMTPHost:  "mail.internal",
		SMTPPort:  2525,
		EmailFrom: "problems@example.com",
	})
	require.True(t, enabled)

	var addr string
	var to []string
	var body []byte
	sink.sendMail = func(a string, _ smtp.Auth, _ string, rcpt []string, msg []byte) error {
		addr, to, body = a, rcpt, msg
		return nil
	}

	err := sink.Send(context.Background(), Notification{
		Recipient: "bob@example.com",
		Subject:   "Approval requested\r\nBcc: evil@example.com",
		Body:      "please review",
	})
	require.NoError(t, err)
	assert.Equal(t, "mail.internal:2525", addr)
	assert.Equal(t, []string{"bob@example.com"}, to)
	assert.Contains(t, string(body), "Subject: Approval requested  Bcc: evil@example.com\r\n")
	assert.Contains(t, string(body), "please review")
}

func TestSMTPSink_RejectsNonEmailRecipient(t *testing.T) {
	sink, _ := NewSMTPSink(config.NotificationConfig{SMTPHost: "mail.internal", SMTPPort: 25})
	err := sink.Send(context.Background(), Notification{Recipient: "bob"})
	assert.Error(t, err)
}

func TestNewSMTPSink_DisabledWithoutHost(t *testing.T) {
	_, enabled := NewSMTPSink(config.NotificationConfig{})
	assert.False(t, enabled)
}

func TestSlackSink_PostsWebhook(t *testing.T) {
	sink, enabled := NewSlackSink("https://hooks.slack.test/T/B/X")
	require.True(t, enabled)

	var posted *slack.WebhookMessage
	sink.post = func(_ context.Context, url string, msg *slack.WebhookMessage) error {
		assert.Equal(t, "https://hooks.slack.test/T/B/X", url)
		posted = msg
		return nil
	}

	require.NoError(t, sink.Send(context.Background(), Notification{Subject: "Escalation", Body: "3 tickets in P"}))
	require.NotNil(t, posted)
	assert.Contains(t, posted.Text, "*Escalation*")
	assert.Contains(t, posted.Text, "3 tickets in P")

	_, enabled = NewSlackSink("")
	assert.False(t, enabled)
}
