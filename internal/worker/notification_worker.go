package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/notify"
)

const deliveryTimeout = 15 * time.Second

// NotificationWorker is a notify.Sink that queues notifications and delivers
// them on a background goroutine. A full queue drops the notification.
type NotificationWorker struct {
	sink   notify.Sink
	logger *zap.Logger
	queue  chan notify.Notification
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewNotificationWorker creates a worker with the given queue size.
func NewNotificationWorker(sink notify.Sink, queueSize int, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &NotificationWorker{
		sink:   sink,
		logger: logger,
		queue:  make(chan notify.Notification, queueSize),
	}
}

// Start launches the delivery loop.
func (w *NotificationWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for n := range w.queue {
			w.deliver(n)
		}
	}()
}

// Send enqueues without blocking.
func (w *NotificationWorker) Send(_ context.Context, n notify.Notification) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("notification worker stopped; dropping", zap.String("recipient", n.Recipient))
		return nil
	}
	select {
	case w.queue <- n:
	default:
		w.logger.Warn("notification queue full; dropping",
			zap.String("recipient", n.Recipient),
			zap.String("subject", n.Subject))
	}
	return nil
}

// Stop closes the queue and waits for queued notifications to drain or ctx to expire.
func (w *NotificationWorker) Stop(ctx context.Context) {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("notification worker stopped before draining", zap.Int("pending", len(w.queue)))
	}
}

func (w *NotificationWorker) deliver(n notify.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := w.sink.Send(ctx, n); err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("recipient", n.Recipient),
			zap.String("subject", n.Subject),
			zap.Error(err))
	}
}
