// Package engine serializes all mutations of the game state.
// Every command, timer callback and the periodic sweep run as a closure on a
// single goroutine which owns the store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

var (
	ErrClosed = errors.New("engine closed")
	ErrPanic  = errors.New("command panicked")
)

type (
	Func   func(st *store.Store)
	Option func(*Engine)
	Engine struct {
		store         *store.Store
		queue         chan task
		sweepInterval time.Duration
		sweep         Func
		l             *log.Logger
		ctx           context.Context
		cancel        context.CancelFunc
		done          chan struct{}
		numProcessed  atomic.Int64
		numPanics     atomic.Int64
	}
	task struct {
		fn   Func
		done chan error
	}
)

// WithSweep installs fn to be called every interval on the engine goroutine
func WithSweep(interval time.Duration, fn Func) Option {
	return func(e *Engine) {
		e.sweepInterval = interval
		e.sweep = fn
	}
}

func WithQueueSize(n int) Option {
	return func(e *Engine) {
		e.queue = make(chan task, n)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.l = l
	}
}

func New(st *store.Store, opts ...Option) *Engine {
	ret := &Engine{
		store: st,
		queue: make(chan task, 256),
		l:     log.Default().Named("engine"),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Start runs the engine loop until ctx is done or Close is called
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.setupMetrics()
	go e.loop()
}

func (e *Engine) Close() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

// Do runs fn on the engine goroutine and waits for it to complete.
// A panic in fn is recovered and reported as ErrPanic.
func (e *Engine) Do(ctx context.Context, fn Func) error {
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case e.queue <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
}

// Submit queues fn without waiting for its execution
func (e *Engine) Submit(fn Func) {
	select {
	case e.queue <- task{fn: fn}:
	case <-e.done:
	}
}

// After queues fn once d elapsed
func (e *Engine) After(d time.Duration, fn Func) *time.Timer {
	return time.AfterFunc(d, func() { e.Submit(fn) })
}

func (e *Engine) loop() {
	defer close(e.done)
	var tick <-chan time.Time
	if e.sweep != nil && e.sweepInterval > 0 {
		ticker := time.NewTicker(e.sweepInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-e.ctx.Done():
			e.l.Info("engine stopped",
				log.Int64("processed", e.numProcessed.Load()),
				log.Int64("panics", e.numPanics.Load()))
			return
		case t := <-e.queue:
			err := e.run(t.fn)
			if t.done != nil {
				t.done <- err
			}
		case <-tick:
			if err := e.run(e.sweep); err != nil {
				e.l.Error("sweep failed", log.ErrorField(err))
			}
		}
	}
}

func (e *Engine) run(fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.numPanics.Add(1)
			e.l.Error("recovered from panic",
				log.Any("panic", r),
				log.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	e.numProcessed.Add(1)
	fn(e.store)
	return nil
}

func (e *Engine) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("ccs.engine")
	if _, err := meter.Int64ObservableCounter("ccs.engine.processed",
		metric.WithDescription("Number of processed commands"),
		metric.WithUnit("{count}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(e.numProcessed.Load())
			return nil
		})); err != nil {
		e.l.Error("failed to register metric", log.ErrorField(err))
	}
	if _, err := meter.Int64ObservableGauge("ccs.engine.queue",
		metric.WithDescription("Number of queued commands"),
		metric.WithUnit("{count}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(len(e.queue)))
			return nil
		})); err != nil {
		e.l.Error("failed to register metric", log.ErrorField(err))
	}
}
