// Package eventloop runs callbacks on a single goroutine.
//
// Everything the hub touches (the game manager, the surface, the running
// game) is only ever accessed from the loop goroutine, so none of it needs
// locking. Timers created here deliver their callbacks through the loop too.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when work is submitted to a loop that has stopped.
var ErrClosed = errors.New("eventloop: closed")

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the timer was still
	// pending. Once Stop has returned on the loop goroutine the callback
	// will not run, even if its fire was already queued.
	Stop() bool
}

// Scheduler schedules callbacks that run on the loop goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func(elapsed time.Duration)) Timer
}

// Loop is a single-goroutine work queue.
type Loop struct {
	inbox chan func()
	quit  chan struct{}
	once  sync.Once
}

// New creates a loop. Call Run to start processing.
func New() *Loop {
	return &Loop{
		inbox: make(chan func(), 256),
		quit:  make(chan struct{}),
	}
}

// Run processes callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.quit) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.inbox:
			fn()
		}
	}
}

// Post queues fn without waiting. It returns false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. ctx only bounds the
// wait for a free slot in the queue: once fn is queued, Do returns after
// fn has run, or ErrClosed if the loop stopped before running it.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case l.inbox <- wrapped:
	case <-l.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-l.quit:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// AfterFunc runs fn on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{}
	t.stop = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Swap(true) {
				return
			}
			fn()
		})
	}).Stop
	return t
}

// Every runs fn on the loop every d, passing the time since the previous
// call (or since Every was called, for the first one).
func (l *Loop) Every(d time.Duration, fn func(elapsed time.Duration)) Timer {
	t := &timer{}
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	t.stop = func() bool {
		ticker.Stop()
		close(done)
		return true
	}
	last := time.Now()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-l.quit:
				ticker.Stop()
				return
			case now := <-ticker.C:
				l.Post(func() {
					if t.stopped.Load() {
						return
					}
					elapsed := now.Sub(last)
					last = now
					fn(elapsed)
				})
			}
		}
	}()
	return t
}

type timer struct {
	stopped atomic.Bool
	stop    func() bool
}

func (t *timer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.stop()
	return true
}
