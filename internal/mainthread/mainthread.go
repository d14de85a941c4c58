// Package mainthread routes calls onto the execution context some OS
// clipboard APIs insist on (the process main thread on macOS).
//
// A binary that needs it locks its main goroutine to the main OS thread in
// init, starts its real work on other goroutines, and then calls Loop.Serve
// from main. Everything else hands work over with Do or Call.
package mainthread

import (
	"context"
	"errors"
	"fmt"
)

// ErrPanic wraps a panic raised by a function running on the loop.
var ErrPanic = errors.New("mainthread: function panicked")

// Runner executes fn on the context it represents. Do returns once fn has
// completed, or with ctx's error if ctx ends first. In the latter case fn
// may never run, or may still be running.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Direct runs functions without thread affinity. With a context that can
// never end, fn runs inline; otherwise it runs on its own goroutine so that
// Do returns when ctx ends even if fn hangs.
type Direct struct{}

func (Direct) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ctx.Done() == nil {
		fn()
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loop serializes functions onto the goroutine that calls Serve.
type Loop struct {
	calls chan func()
}

// NewLoop returns a Loop. Nothing runs until Serve is called.
func NewLoop() *Loop {
	return &Loop{calls: make(chan func())}
}

// Serve runs handed-off functions on the calling goroutine until ctx ends.
func (l *Loop) Serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.calls:
			fn()
		}
	}
}

func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case l.calls <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type result[T any] struct {
	val T
	err error
}

// Call runs fn through r and returns its result. If ctx ends first the
// result is discarded; fn never writes to caller-owned memory.
func Call[T any](ctx context.Context, r Runner, fn func() (T, error)) (T, error) {
	out := make(chan result[T], 1)
	err := r.Do(ctx, func() {
		defer func() {
			if p := recover(); p != nil {
				var zero T
				out <- result[T]{zero, fmt.Errorf("%w: %v", ErrPanic, p)}
			}
		}()
		v, err := fn()
		out <- result[T]{v, err}
	})
	if err != nil {
		var zero T
		return zero, err
	}
	res := <-out
	return res.val, res.err
}
