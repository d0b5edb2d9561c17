package api

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/apiclient/client/download"
)

const maxLoggedBody = 4 << 10

type exchangeFn func(req *Request, httpReq *http.Request, start time.Time) error

// exchange builds the request from snap, runs fn and records the
// outcome in logs, metrics and the call span.
func (c *Client[E]) exchange(ctx context.Context, snap headerSnapshot, method, endpoint string, opts *callOptions, fn exchangeFn) (err error) {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "api.call", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("endpoint", endpoint),
	))
	defer func() {
		c.finish(ctx, span, method, endpoint, start, err)
	}()

	req, err := buildRequest(c.prefix, snap, c.timeout, method, endpoint, opts)
	if err != nil {
		return err
	}
	c.logRequest(ctx, req, snap)

	httpReq, cancel, err := req.HTTPRequest(ctx)
	if err != nil {
		return internalError(msgNoResponse, err)
	}
	defer cancel()

	return fn(req, httpReq, start)
}

// execute sends a buffered request and hands the response to decode.
func (c *Client[E]) execute(ctx context.Context, snap headerSnapshot, method, endpoint string, opts *callOptions, decode func(status int, body []byte, authorized bool) error) error {
	return c.exchange(ctx, snap, method, endpoint, opts, func(req *Request, httpReq *http.Request, start time.Time) error {
		resp, err := c.transport.Send(httpReq)
		if err != nil {
			return err
		}
		if resp == nil {
			return Internal(msgNoResponse)
		}
		c.logResponse(httpReq.Context(), req, resp.StatusCode, resp.Body, time.Since(start))

		return decode(resp.StatusCode, resp.Body, req.Authorized)
	})
}

// download streams the response to dest and classifies the result.
func (c *Client[E]) download(ctx context.Context, snap headerSnapshot, endpoint, dest string, opts *callOptions, progress func(download.Progress)) error {
	method := cmp.Or(opts.method, http.MethodGet)

	return c.exchange(ctx, snap, method, endpoint, opts, func(req *Request, httpReq *http.Request, start time.Time) error {
		dlOpts := slices.Clone(opts.dlOpts)
		if progress != nil {
			dlOpts = append(dlOpts, download.WithProgress(progress))
		}

		status, err := c.transport.Download(httpReq, dest, dlOpts...)
		if err != nil {
			return err
		}
		if status == 0 {
			return Internal(msgNoResponse)
		}
		c.logResponse(httpReq.Context(), req, status, nil, time.Since(start))

		return InterpretDownload[E](status, dest, req.Authorized, c.notifyAuth)
	})
}

func (c *Client[E]) finish(ctx context.Context, span trace.Span, method, endpoint string, start time.Time, err error) {
	result := outcome[E](err)
	c.metrics.observe(method, result, time.Since(start))

	span.SetAttributes(attribute.String("outcome", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if err == nil {
		return
	}

	if e, ok := errors.AsType[*Error](err); ok && e.Kind == KindInternal {
		c.logger.ErrorContext(ctx, "api call failed",
			"method", method,
			"endpoint", endpoint,
			"error", e.Message,
			"detail", e.detail,
			"func", e.FuncName,
			"file", e.FileName,
		)
		return
	}

	attrs := []any{"method", method, "endpoint", endpoint, "outcome", result, "error", err}
	if e, ok := errors.AsType[*Error](err); ok && e.detail != nil {
		attrs = append(attrs, "detail", e.detail)
	}
	c.logger.DebugContext(ctx, "api call failed", attrs...)
}

func (c *Client[E]) logRequest(ctx context.Context, req *Request, snap headerSnapshot) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	redacted := make(map[string]bool, len(snap.auth))
	for k := range snap.auth {
		redacted[http.CanonicalHeaderKey(k)] = true
	}

	headers := make(map[string]string, len(req.Header))
	for k := range req.Header {
		if redacted[k] {
			headers[k] = "[REDACTED]"
			continue
		}
		headers[k] = req.Header.Get(k)
	}

	c.logger.DebugContext(ctx, "api request",
		"method", req.Method,
		"url", req.URL.String(),
		"request_id", req.Header.Get(RequestIDHeader),
		"authorized", req.Authorized,
		"headers", headers,
		"body", truncate(req.Body),
	)
}

func (c *Client[E]) logResponse(ctx context.Context, req *Request, status int, body []byte, took time.Duration) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	c.logger.DebugContext(ctx, "api response",
		"method", req.Method,
		"url", req.URL.String(),
		"request_id", req.Header.Get(RequestIDHeader),
		"status", status,
		"duration", took,
		"body", truncate(body),
	)
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}

	return string(b)
}
