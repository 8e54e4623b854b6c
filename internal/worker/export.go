// Package worker runs the background loops of the worker binaries.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ezfin/internal/amqp"
)

// TransactionConsumer delivers transaction.created messages to handler
// until ctx is cancelled.
type TransactionConsumer interface {
	ConsumeTransactionCreated(ctx context.Context, handler func(context.Context, *amqp.TransactionCreatedMessage) error) error
}

// ExportWorker feeds transaction.created messages to the ledger exporter.
type ExportWorker struct {
	consumer TransactionConsumer
	handler  func(context.Context, *amqp.TransactionCreatedMessage) error

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	err     error
}

func NewExportWorker(consumer TransactionConsumer, handler func(context.Context, *amqp.TransactionCreatedMessage) error) *ExportWorker {
	return &ExportWorker{consumer: consumer, handler: handler}
}

// Start begins consuming in the background. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("export worker is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.err = nil

	go w.run(runCtx)

	slog.InfoContext(ctx, "Export worker started")
	return nil
}

func (w *ExportWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	err := w.consumer.ConsumeTransactionCreated(ctx, w.handler)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "Export consumer stopped", "error", err)
	}

	w.mu.Lock()
	w.err = err
	w.running = false
	w.mu.Unlock()
}

// Done is closed when the consumer loop has returned.
func (w *ExportWorker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

// Err reports why the loop stopped, nil after a clean shutdown.
func (w *ExportWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Stop cancels consumption and waits for the in-flight message.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}
}
