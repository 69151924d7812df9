package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type subscription struct {
	name    string
	handler Handler
}

// LocalBus dispatches events in-process. Each handler runs on its own
// goroutine so a publisher never waits on trigger work.
type LocalBus struct {
	mu       sync.RWMutex
	subs     []subscription
	wg       sync.WaitGroup
	logger   *logrus.Logger
	closed   bool
	baseCtx  context.Context
	cancelFn context.CancelFunc

	published atomic.Int64
	failed    atomic.Int64
}

// NewLocalBus creates an in-process bus
func NewLocalBus(logger *logrus.Logger) *LocalBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalBus{logger: logger, baseCtx: ctx, cancelFn: cancel}
}

func (b *LocalBus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, handler: handler})
}

func (b *LocalBus) Start(ctx context.Context) error {
	return nil
}

// Publish hands the event to every subscriber asynchronously.
// Handlers run detached from the publisher context but keep its actor.
func (b *LocalBus) Publish(ctx context.Context, event *ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	b.published.Add(1)
	handlerCtx := WithActor(b.baseCtx, ActorFromContext(ctx))
	for _, sub := range b.subs {
		sub := sub
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := sub.handler(handlerCtx, event); err != nil {
				b.failed.Add(1)
				b.logger.WithError(err).WithFields(logrus.Fields{
					"subscriber": sub.name,
					"path":       event.Path,
					"change":     event.Type(),
				}).Error("Change handler failed")
			}
		}()
	}
	return nil
}

// Wait blocks until all in-flight handlers, including those started by
// handlers themselves, have returned
func (b *LocalBus) Wait() {
	b.wg.Wait()
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
	b.cancelFn()
	return nil
}

// GetStats returns delivery counters
func (b *LocalBus) GetStats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]interface{}{
		"transport":        "local",
		"subscribers":      len(b.subs),
		"published":        b.published.Load(),
		"handler_failures": b.failed.Load(),
	}
}

var _ Bus = (*LocalBus)(nil)
