package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/adamwoolhether/apiclient/client/download"
	"github.com/adamwoolhether/apiclient/client/throttle"
)

// Client wraps the std-lib *http.Client
// It sets a default *http.Client and *http.Transport, which
// can be customized via optional funcs.
type Client struct {
	c      *http.Client
	logger *slog.Logger
}

// Build instantiates a *Client with the provided options.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:      &http.Client{},
		logger: slog.Default(),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		client.c = opts.client
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// Send fires the request and buffers the whole response body.
// Any status code is a valid response, only transport failures
// (unreachable host, timeout, cancellation) are returned as errors.
func (c *Client) Send(req *http.Request) (*Response, error) {
	inject(req)

	var resp *Response
	readFunc := func(r *http.Response) error {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}

		resp = &Response{
			StatusCode: r.StatusCode,
			Header:     r.Header,
			Body:       body,
		}

		return nil
	}

	if err := c.exec(req, readFunc); err != nil {
		return nil, err
	}

	return resp, nil
}

// Download executes a request and streams the response body to destPath,
// whatever the status code. Data streams to a temp file in the same directory,
// which replaces destPath on success or is removed on failure. Missing parent
// directories are created. The response status code is returned.
func (c *Client) Download(req *http.Request, destPath string, opts ...download.Option) (int, error) {
	if destPath == "" {
		return 0, ErrEmptyDestPath
	}

	inject(req)

	var status int
	dlFunc := func(resp *http.Response) error {
		if err := download.Handle(req.Context(), resp.Body, resp.ContentLength, destPath, c.logger, opts...); err != nil {
			return fmt.Errorf("download: %w", err)
		}
		status = resp.StatusCode

		return nil
	}

	if err := c.exec(req, dlFunc); err != nil {
		return 0, err
	}

	return status, nil
}

// exec runs the request and hands the response to fn.
func (c *Client) exec(req *http.Request, fn execFn) error {
	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("exec http do: %w", err)
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, err := io.Copy(io.Discard, resp.Body); err != nil && !errors.Is(err, req.Context().Err()) {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if err := fn(resp); err != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}

// inject writes the trace context carried by the request's
// context into its headers.
func inject(req *http.Request) {
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}
