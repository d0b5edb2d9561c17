package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// Loop is a serial executor. Tasks run one at a time, in submission
// order, on whichever goroutine calls [Loop.Run]. Its queue is unbounded,
// so a task may submit further tasks to its own loop.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
	logger *slog.Logger
}

// NewLoop returns a Loop that accepts tasks immediately;
// they run once Run is called.
func NewLoop(optFns ...Option) *Loop {
	opts := buildOptions(optFns)

	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: opts.logger,
	}
}

// Submit enqueues task.
func (l *Loop) Submit(task func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	return nil
}

// Run executes queued tasks on the calling goroutine until ctx ends,
// returning its error, or until Close is called, returning nil once the
// tasks queued before Close have run. Run must not be called concurrently.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drain(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			l.drain(ctx)
			return nil
		case <-l.wake:
		}
	}
}

// Start runs the loop on a new goroutine until Close is called.
func (l *Loop) Start() {
	go func() {
		_ = l.Run(context.Background())
	}()
}

// Close stops the loop from accepting tasks. Tasks already
// queued still run.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
}

func (l *Loop) drain(ctx context.Context) {
	for ctx.Err() == nil {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		run(l.logger, task)
	}
}
