package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

var (
	// ErrClosed is returned when submitting to a closed [Loop].
	ErrClosed = errors.New("executor closed")
	// ErrShutdown is returned when submitting to a [Pool] after Shutdown.
	ErrShutdown = errors.New("executor shut down")
)

// Executor runs submitted tasks. Submit never blocks on the task itself
// and returns an error only when the executor no longer accepts work.
type Executor interface {
	Submit(task func()) error
}

// ExecutorFunc adapts a function into an [Executor].
type ExecutorFunc func(task func()) error

// Submit calls f(task).
func (f ExecutorFunc) Submit(task func()) error {
	return f(task)
}

// Inline runs every task synchronously on the submitting goroutine.
var Inline Executor = ExecutorFunc(func(task func()) error {
	task()
	return nil
})

// Option configures a [Loop] or a [Pool].
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report dropped tasks and panics.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func buildOptions(optFns []Option) options {
	var opts options
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}

	return opts
}

// run executes task, recovering and logging a panic so the
// executor survives a misbehaving task.
func run(logger *slog.Logger, task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("task panic", "error", fmt.Sprintf("PANIC [%v]", rec), "trace", string(debug.Stack()))
		}
	}()

	task()
}
