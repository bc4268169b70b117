package credential

import (
	"context"
	"sync"
)

// Future holds a value that becomes available later. Unlike a channel it can
// be awaited any number of times; every waiter observes the same outcome.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

// NewFuture returns a pending Future and the function that completes it.
// Only the first call to complete has any effect.
func NewFuture() (*Future, func(value any, err error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.complete
}

// Go runs fn in its own goroutine and returns a Future for its result.
func Go(fn func() (any, error)) *Future {
	f, complete := NewFuture()
	go func() {
		complete(fn())
	}()
	return f
}

// Completed returns a Future that already holds value.
func Completed(value any) *Future {
	f, complete := NewFuture()
	complete(value, nil)
	return f
}

// Failed returns a Future that already holds err.
func Failed(err error) *Future {
	f, complete := NewFuture()
	complete(nil, err)
	return f
}

func (f *Future) complete(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done reports whether the Future has been completed.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the Future is completed or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
