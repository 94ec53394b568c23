package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_FailingHandlerDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventEscalationRaised, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTicketCreated, "t-1", "alice", time.Now(), nil))
	require.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNewEvent_StampsID(t *testing.T) {
	a := NewEvent(EventApprovalDecided, "t-1", "bob", time.Now(), nil)
	b := NewEvent(EventApprovalDecided, "t-1", "bob", time.Now(), nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
