package notify

import (
	"context"
	"sync"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/request"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/txlog"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/version"
)

var logger = diag.CreateLogger()

// DefaultQueueSize is a number of events that can wait for delivery
const DefaultQueueSize = 100

// Event is a payload posted to the webhook for every committed operation
type Event struct {
	OperationID string        `json:"operationId,omitempty"`
	Entries     []txlog.Entry `json:"entries"`
}

// Webhook delivers committed entries to an external endpoint in background.
// Delivery failures are logged and dropped
type Webhook interface {
	Notify(ctx context.Context, entries []txlog.Entry)
	Start()

	// Stop delivers queued events and stops the worker
	Stop(ctx context.Context) error
}

type disabledWebhook struct{}

func (disabledWebhook) Notify(ctx context.Context, entries []txlog.Entry) {}
func (disabledWebhook) Start() {}
func (disabledWebhook) Stop(ctx context.Context) error { return nil }

type webhook struct {
	url       string
	queueSize int
	sendOpts  []request.SendOpt

	mu      sync.RWMutex
	queue   chan Event
	done    chan struct{}
	started bool
	stopped bool
}

func (w *webhook) Notify(ctx context.Context, entries []txlog.Entry) {
	if len(entries) == 0 {
		return
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		logger.Warn(ctx, "Webhook is stopped, dropping %v entries", len(entries))
		return
	}
	event := Event{OperationID: diag.OperationIDValue(ctx), Entries: entries}
	select {
	case w.queue <- event:
	default:
		logger.WithData(diag.MsgData{"queueSize": w.queueSize}).
			Warn(ctx, "Notifications queue is full, dropping %v entries", len(entries))
	}
}

func (w *webhook) deliver(event Event) {
	ctx := diag.ContextWithOperationID(context.Background(), event.OperationID)
	if err := request.Do(ctx,
		request.PostJSON(w.url, event).WithHeader("User-Agent", version.UserAgent()),
		w.sendOpts...,
	).Discard(); err != nil {
		logger.WithError(err).Warn(ctx, "Failed to deliver notification")
		return
	}
	logger.Debug(ctx, "Notification delivered")
}

func (w *webhook) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go func() {
		defer close(w.done)
		for event := range w.queue {
			w.deliver(event)
		}
	}()
	logger.Info(nil, "Webhook notifications started")
}

func (w *webhook) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	started := w.started
	w.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the webhook for the duration of fn. Failure to flush the queue
// is logged, the fn result is returned as is
func Run(ctx context.Context, w Webhook, fn func() error) error {
	w.Start()
	defer func() {
		if err := w.Stop(ctx); err != nil {
			logger.WithError(err).Warn(ctx, "Failed to stop notifications")
		}
	}()
	return fn()
}

// WebhookOpt is an option of the webhook
type WebhookOpt func(w *webhook)

// WithQueueSize sets a number of events that can wait for delivery
func WithQueueSize(size int) WebhookOpt {
	return func(w *webhook) {
		if size > 0 {
			w.queueSize = size
		}
	}
}

// WithSendOpts sets options of outgoing requests
func WithSendOpts(opts ...request.SendOpt) WebhookOpt {
	return func(w *webhook) {
		w.sendOpts = opts
	}
}

// NewWebhook returns a webhook delivering to a given url.
// Notifications are disabled if the url is empty
func NewWebhook(url string, opts ...WebhookOpt) Webhook {
	if url == "" {
		logger.Info(nil, "Webhook url is not configured, notifications are disabled")
		return disabledWebhook{}
	}
	w := &webhook{
		url:       url,
		queueSize: DefaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = make(chan Event, w.queueSize)
	return w
}
