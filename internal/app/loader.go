package app

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoadTimeout is returned by Loader.Close when loading outlives the wait.
var ErrLoadTimeout = errors.New("dataset still loading")

// Loader opens a Backend in the background. A backend that finishes after
// ctx is done or after Close is released instead of handed over.
type Loader struct {
	mu      sync.Mutex
	closed  bool
	backend *Backend
	err     error
	done    chan struct{}
}

// LoadAsync runs open in a goroutine and passes the result to ready.
func LoadAsync(ctx context.Context, open func(context.Context) (*Backend, error), ready func(*Backend)) *Loader {
	l := &Loader{done: make(chan struct{})}
	go func() {
		defer close(l.done)
		backend, err := open(ctx)

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.err = err
			return
		}
		if l.closed || ctx.Err() != nil {
			l.err = errors.Join(context.Cause(ctx), backend.Close())
			return
		}
		l.backend = backend
		ready(backend)
	}()
	return l
}

// Err returns the load error once loading has finished.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close waits up to timeout for loading to finish and releases the
// backend. On timeout the backend is released when it arrives.
func (l *Loader) Close(timeout time.Duration) error {
	var waitErr error
	select {
	case <-l.done:
	case <-time.After(timeout):
		waitErr = ErrLoadTimeout
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.backend == nil {
		return waitErr
	}
	err := l.backend.Close()
	l.backend = nil
	return err
}
