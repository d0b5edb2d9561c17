package api

import (
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/apiclient/client"
	"github.com/adamwoolhether/apiclient/client/download"
	"github.com/adamwoolhether/apiclient/dispatch"
)

// Transport sends built requests. *client.Client satisfies it.
type Transport interface {
	Send(req *http.Request) (*client.Response, error)
	Download(req *http.Request, destPath string, opts ...download.Option) (int, error)
}

// Delegate is told when an authorized request came back 401.
type Delegate interface {
	AuthenticationRequired()
}

// DelegateFunc adapts a function into a [Delegate].
type DelegateFunc func()

// AuthenticationRequired calls f.
func (f DelegateFunc) AuthenticationRequired() { f() }

// Client talks to one API family. E is the error type the API returns
// in failed responses.
type Client[E error] struct {
	prefix    string
	transport Transport
	main      dispatch.Executor
	worker    dispatch.Executor
	logger    *slog.Logger
	tracer    trace.Tracer
	timeout   time.Duration
	metrics   *metrics

	ownedLoop *dispatch.Loop
	ownedPool *dispatch.Pool

	mu          sync.RWMutex
	headers     map[string]string
	authHeaders map[string]string
	delegate    Delegate
}

// New constructs a Client whose endpoints are resolved against prefix.
func New[E error](prefix string, optFns ...Option) (*Client[E], error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying api option: %w", err)
		}
	}

	c := Client[E]{
		prefix:      prefix,
		transport:   opts.transport,
		main:        opts.main,
		worker:      opts.worker,
		logger:      opts.logger,
		tracer:      opts.tracer,
		timeout:     DefaultRequestTimeout,
		headers:     maps.Clone(opts.headers),
		authHeaders: maps.Clone(opts.authHeaders),
		delegate:    opts.delegate,
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("")
	}

	if opts.requestTimeout != nil {
		c.timeout = *opts.requestTimeout
	}

	if opts.registerer != nil {
		m, err := newMetrics(opts.registerer)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}

	if c.transport == nil {
		tr, err := client.Build(client.WithLogger(c.logger))
		if err != nil {
			return nil, fmt.Errorf("building transport: %w", err)
		}
		c.transport = tr
	}

	if c.main == nil {
		c.ownedLoop = dispatch.NewLoop(dispatch.WithLogger(c.logger))
		c.ownedLoop.Start()
		c.main = c.ownedLoop
	}

	if c.worker == nil {
		c.ownedPool = dispatch.NewPool(0, dispatch.WithLogger(c.logger))
		c.worker = c.ownedPool
	}

	return &c, nil
}

// Close stops the executors the client created for itself. Executors
// passed in with options are left running.
func (c *Client[E]) Close() {
	if c.ownedPool != nil {
		c.ownedPool.Shutdown()
	}
	if c.ownedLoop != nil {
		c.ownedLoop.Close()
	}
}

// Prefix returns the base URL prefix endpoints are appended to.
func (c *Client[E]) Prefix() string {
	return c.prefix
}

// SetHeaders replaces the static headers sent with every request.
func (c *Client[E]) SetHeaders(h map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.headers = maps.Clone(h)
}

// Headers returns a copy of the static headers.
func (c *Client[E]) Headers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.headers)
}

// SetAuthHeaders replaces the auth headers. While non-empty, requests
// are authorized and a 401 response notifies the delegate.
func (c *Client[E]) SetAuthHeaders(h map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authHeaders = maps.Clone(h)
}

// AuthHeaders returns a copy of the auth headers.
func (c *Client[E]) AuthHeaders() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.authHeaders)
}

// SetAuthToken sets a bearer Authorization auth header. An empty
// token clears the auth headers.
func (c *Client[E]) SetAuthToken(token string) {
	if token == "" {
		c.SetAuthHeaders(nil)
		return
	}

	c.SetAuthHeaders(map[string]string{"Authorization": "Bearer " + token})
}

// SetDelegate replaces the session delegate. nil clears it.
func (c *Client[E]) SetDelegate(d Delegate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.delegate = d
}

// BuildRequest builds the request a call with the same arguments would
// send, using the current headers.
func (c *Client[E]) BuildRequest(method, endpoint string, optFns ...CallOption) (*Request, error) {
	opts, err := buildCallOptions(optFns)
	if err != nil {
		return nil, badCallOption(err)
	}

	return buildRequest(c.prefix, c.snapshot(), c.timeout, method, endpoint, opts)
}

func (c *Client[E]) snapshot() headerSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return headerSnapshot{
		static: maps.Clone(c.headers),
		auth:   maps.Clone(c.authHeaders),
	}
}

// notifyAuth tells the delegate, as set when the notification runs,
// that the session expired. It never blocks the caller.
func (c *Client[E]) notifyAuth() {
	err := c.main.Submit(func() {
		c.mu.RLock()
		d := c.delegate
		c.mu.RUnlock()

		if d != nil {
			d.AuthenticationRequired()
		}
	})
	if err != nil {
		c.logger.Warn("delegate notification dropped", "error", err)
	}
}

func badCallOption(err error) *Error {
	return internalCause(fmt.Sprintf("Invalid call option: %v", err), err)
}
