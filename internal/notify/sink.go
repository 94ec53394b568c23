// Package notify delivers best-effort notifications. Delivery failures never
// affect workflow state.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Notification is one message addressed to one recipient.
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

// Sink accepts notifications.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the structured log. Used when no transport is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification",
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject))
	return nil
}

// MultiSink fans out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
