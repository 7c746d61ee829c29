// Package telemetry runs best-effort side work (audit fan-out, email) off the request path.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// emitTimeout is the max time allowed for a single background task.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration bounds how long shutdown waits for in-flight background tasks.
// Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// Background runs fire-and-forget tasks. Tasks get a context detached from the request (so a
// finished request does not cancel them) that keeps the request's span for correlation.
type Background struct {
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewBackground returns a Background that logs task failures to log.
func NewBackground(log *zap.Logger) *Background {
	if log == nil {
		log = zap.NewNop()
	}
	return &Background{log: log, timeout: emitTimeout}
}

// Go runs fn in a goroutine with a fresh timeout. Errors are logged under name and never returned.
func (b *Background) Go(ctx context.Context, name string, fn func(context.Context) error) {
	if b == nil || fn == nil {
		return
	}
	parent := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx))
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		taskCtx, cancel := context.WithTimeout(parent, b.timeout)
		defer cancel()
		if err := fn(taskCtx); err != nil {
			b.log.Warn("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

// Wait blocks until every started task has finished or ctx is done.
func (b *Background) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
