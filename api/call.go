package api

import (
	"context"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/adamwoolhether/apiclient/client/download"
)

const (
	callPending int32 = iota
	callDelivered
	callCancelled
)

// Call is a handle on an asynchronous operation.
type Call struct {
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newCall(cancel context.CancelFunc) *Call {
	return &Call{
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Cancel aborts the operation. Once Cancel returns, the callback is
// guaranteed not to run unless it had already started.
func (c *Call) Cancel() {
	c.state.CompareAndSwap(callPending, callCancelled)
	c.cancel()
}

// Done is closed once the callback returned, or once a cancelled
// operation finished its work.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Cancelled reports whether the call was cancelled before delivery.
func (c *Call) Cancelled() bool {
	return c.state.Load() == callCancelled
}

func (c *Call) finish() {
	c.once.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// claim moves the call to delivered, reporting whether the callback
// may run.
func (c *Call) claim() bool {
	return c.state.CompareAndSwap(callPending, callDelivered)
}

// schedule runs work on the worker executor with headers snapshotted
// on the main executor, then delivers the result on the main executor.
func schedule[T any, E error](ctx context.Context, c *Client[E], work func(ctx context.Context, snap headerSnapshot) (T, error), fn func(T, error)) *Call {
	ctx, cancel := context.WithCancel(ctx)
	call := newCall(cancel)

	deliver := func(v T, err error) {
		submitErr := c.main.Submit(func() {
			defer call.finish()
			if call.claim() && fn != nil {
				fn(v, err)
			}
		})
		if submitErr != nil {
			c.logger.Error("api result dropped", "error", submitErr)
			call.finish()
		}
	}

	start := func() {
		if call.Cancelled() {
			call.finish()
			return
		}

		snap := c.snapshot()
		submitErr := c.worker.Submit(func() {
			v, err := work(ctx, snap)
			if call.Cancelled() {
				call.finish()
				return
			}
			deliver(v, err)
		})
		if submitErr != nil {
			var zero T
			deliver(zero, internalCause(msgNotScheduled, submitErr))
		}
	}

	if err := c.main.Submit(start); err != nil {
		c.logger.Error("api call dropped", "error", err)
		call.finish()
	}

	return call
}

func scheduleFetch[T any, E error](ctx context.Context, c *Client[E], method, endpoint, defaultKeyPath string, fn func(T, error), optFns []CallOption) *Call {
	opts, optErr := buildCallOptions(optFns)

	return schedule(ctx, c, func(ctx context.Context, snap headerSnapshot) (T, error) {
		if optErr != nil {
			var zero T
			return zero, badCallOption(optErr)
		}
		return fetch[T](ctx, c, snap, method, endpoint, opts.keyPathOr(defaultKeyPath), opts)
	}, fn)
}

func (c *Client[E]) scheduleVoid(ctx context.Context, method, endpoint string, fn func(error), optFns []CallOption) *Call {
	opts, optErr := buildCallOptions(optFns)

	return schedule(ctx, c, func(ctx context.Context, snap headerSnapshot) (struct{}, error) {
		if optErr != nil {
			return struct{}{}, badCallOption(optErr)
		}
		return struct{}{}, c.exec(ctx, snap, method, endpoint, opts)
	}, voidCallback(fn))
}

func voidCallback(fn func(error)) func(struct{}, error) {
	if fn == nil {
		return nil
	}

	return func(_ struct{}, err error) { fn(err) }
}

// =============================================================================
// Asynchronous operations.

// Get fetches endpoint and decodes the payload at the "data" key path
// into T. fn runs on the main executor.
func Get[T any, E error](ctx context.Context, c *Client[E], endpoint string, fn func(T, error), optFns ...CallOption) *Call {
	return scheduleFetch(ctx, c, http.MethodGet, endpoint, DefaultKeyPath, fn, optFns)
}

// GetItems fetches endpoint with ordered query items and decodes the
// whole body into T unless a key path is given.
func GetItems[T any, E error](ctx context.Context, c *Client[E], endpoint string, items []QueryItem, fn func(T, error), optFns ...CallOption) *Call {
	optFns = append([]CallOption{WithQueryItems(items...)}, optFns...)

	return scheduleFetch(ctx, c, http.MethodGet, endpoint, "", fn, optFns)
}

// Post sends a POST to endpoint and decodes the payload into T.
func Post[T any, E error](ctx context.Context, c *Client[E], endpoint string, fn func(T, error), optFns ...CallOption) *Call {
	return scheduleFetch(ctx, c, http.MethodPost, endpoint, DefaultKeyPath, fn, optFns)
}

// Put sends a PUT to endpoint and decodes the payload into T.
func Put[T any, E error](ctx context.Context, c *Client[E], endpoint string, fn func(T, error), optFns ...CallOption) *Call {
	return scheduleFetch(ctx, c, http.MethodPut, endpoint, DefaultKeyPath, fn, optFns)
}

// GetVoid fetches endpoint, reporting only whether it succeeded.
func (c *Client[E]) GetVoid(ctx context.Context, endpoint string, fn func(error), optFns ...CallOption) *Call {
	return c.scheduleVoid(ctx, http.MethodGet, endpoint, fn, optFns)
}

// PostVoid sends a POST to endpoint, reporting only whether it succeeded.
func (c *Client[E]) PostVoid(ctx context.Context, endpoint string, fn func(error), optFns ...CallOption) *Call {
	return c.scheduleVoid(ctx, http.MethodPost, endpoint, fn, optFns)
}

// PutVoid sends a PUT to endpoint, reporting only whether it succeeded.
func (c *Client[E]) PutVoid(ctx context.Context, endpoint string, fn func(error), optFns ...CallOption) *Call {
	return c.scheduleVoid(ctx, http.MethodPut, endpoint, fn, optFns)
}

// Download streams endpoint into destination. Progress set with
// [WithProgress] is reported on the main executor until the call
// completes or is cancelled.
func (c *Client[E]) Download(ctx context.Context, endpoint, destination string, fn func(error), optFns ...CallOption) *Call {
	opts, optErr := buildCallOptions(optFns)

	return schedule(ctx, c, func(ctx context.Context, snap headerSnapshot) (struct{}, error) {
		if optErr != nil {
			return struct{}{}, badCallOption(optErr)
		}

		var progress func(download.Progress)
		if opts.progress != nil {
			progress = func(p download.Progress) {
				err := c.main.Submit(func() {
					if ctx.Err() == nil {
						opts.progress(p)
					}
				})
				if err != nil {
					c.logger.DebugContext(ctx, "download progress dropped", "endpoint", endpoint, "received", p.Received, "error", err)
				}
			}
		}

		return struct{}{}, c.download(ctx, snap, endpoint, destination, opts, progress)
	}, voidCallback(fn))
}

// =============================================================================
// Synchronous operations.

// Fetch sends a request and decodes the payload into T on the calling
// goroutine. The key path defaults to "data".
func Fetch[T any, E error](ctx context.Context, c *Client[E], method, endpoint string, optFns ...CallOption) (T, error) {
	opts, err := buildCallOptions(optFns)
	if err != nil {
		var zero T
		return zero, badCallOption(err)
	}

	return fetch[T](ctx, c, c.snapshot(), method, endpoint, opts.keyPathOr(DefaultKeyPath), opts)
}

// Exec sends a request on the calling goroutine, reporting only
// whether it succeeded.
func (c *Client[E]) Exec(ctx context.Context, method, endpoint string, optFns ...CallOption) error {
	opts, err := buildCallOptions(optFns)
	if err != nil {
		return badCallOption(err)
	}

	return c.exec(ctx, c.snapshot(), method, endpoint, opts)
}

// FetchFile streams endpoint into destination on the calling goroutine.
// Progress is reported on the calling goroutine.
func (c *Client[E]) FetchFile(ctx context.Context, endpoint, destination string, optFns ...CallOption) error {
	opts, err := buildCallOptions(optFns)
	if err != nil {
		return badCallOption(err)
	}

	return c.download(ctx, c.snapshot(), endpoint, destination, opts, opts.progress)
}

func fetch[T any, E error](ctx context.Context, c *Client[E], snap headerSnapshot, method, endpoint, keyPath string, opts *callOptions) (T, error) {
	var v T
	if err := checkDateFields(reflect.TypeFor[T]()); err != nil {
		return v, internalCause(msgBadPayload, err)
	}

	err := c.execute(ctx, snap, method, endpoint, opts, func(status int, body []byte, authorized bool) error {
		var err error
		v, err = Interpret[T, E](status, body, authorized, keyPath, c.notifyAuth)
		return err
	})

	return v, err
}

func (c *Client[E]) exec(ctx context.Context, snap headerSnapshot, method, endpoint string, opts *callOptions) error {
	return c.execute(ctx, snap, method, endpoint, opts, func(status int, body []byte, authorized bool) error {
		return InterpretVoid[E](status, body, authorized, c.notifyAuth)
	})
}
