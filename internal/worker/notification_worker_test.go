package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/notify"
)

type countingSink struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (c *countingSink) Send(_ context.Context, n notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n.Recipient)
	if c.fail {
		return errors.New("smtp down")
	}
	return nil
}

func TestNotificationWorker_DrainsOnStop(t *testing.T) {
	sink := &countingSink{fail: true}
	w := NewNotificationWorker(sink, 10, zap.NewNop())
	w.Start()

	for _, r := range []string{"a", "b", "c"} {
		require.NoError(t, w.Send(context.Background(), notify.Notification{Recipient: r}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Stop(ctx)

	assert.Equal(t, []string{"a", "b", "c"}, sink.sent)
}

func TestNotificationWorker_DropsWhenFull(t *testing.T) {
	sink := &countingSink{}
	w := NewNotificationWorker(sink, 1, zap.NewNop())

	// not started: the second send finds the queue full
	require.NoError(t, w.Send(context.Background(), notify.Notification{Recipient: "a"}))
	require.NoError(t, w.Send(context.Background(), notify.Notification{Recipient: "b"}))

	w.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Stop(ctx)

	assert.Equal(t, []string{"a"}, sink.sent)
}
