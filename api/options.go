package api

import (
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/apiclient/client/download"
	"github.com/adamwoolhether/apiclient/dispatch"
)

// DefaultRequestTimeout bounds every request unless overridden with
// [WithRequestTimeout].
const DefaultRequestTimeout = 10000 * time.Second

// Option represents a functional option for configuring a [Client].
type Option func(*options) error

type options struct {
	logger         *slog.Logger
	tracer         trace.Tracer
	main           dispatch.Executor
	worker         dispatch.Executor
	transport      Transport
	delegate       Delegate
	headers        map[string]string
	authHeaders    map[string]string
	requestTimeout *time.Duration
	registerer     prometheus.Registerer
}

// WithLogger sets the logger for request and response debug lines.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		opts.logger = logger
		return nil
	}
}

// WithTracer starts a span around every call.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		opts.tracer = tracer
		return nil
	}
}

// WithMainExecutor sets the executor that owns header state and
// receives every result. Without it the client runs a private
// [dispatch.Loop], stopped by [Client.Close].
func WithMainExecutor(e dispatch.Executor) Option {
	return func(opts *options) error {
		if e == nil {
			return errors.New("main executor cannot be nil")
		}
		opts.main = e
		return nil
	}
}

// WithWorkerExecutor sets the executor that builds, sends and
// interprets requests. Without it the client runs a private unbounded
// [dispatch.Pool], shut down by [Client.Close].
func WithWorkerExecutor(e dispatch.Executor) Option {
	return func(opts *options) error {
		if e == nil {
			return errors.New("worker executor cannot be nil")
		}
		opts.worker = e
		return nil
	}
}

// WithTransport sets the HTTP transport. Without it a default
// [client.Client] is built.
func WithTransport(t Transport) Option {
	return func(opts *options) error {
		if t == nil {
			return errors.New("transport cannot be nil")
		}
		opts.transport = t
		return nil
	}
}

// WithDelegate sets the initial session delegate.
func WithDelegate(d Delegate) Option {
	return func(opts *options) error {
		opts.delegate = d
		return nil
	}
}

// WithHeaders sets the initial static headers.
func WithHeaders(h map[string]string) Option {
	return func(opts *options) error {
		opts.headers = h
		return nil
	}
}

// WithAuthHeaders sets the initial auth headers.
func WithAuthHeaders(h map[string]string) Option {
	return func(opts *options) error {
		opts.authHeaders = h
		return nil
	}
}

// WithRequestTimeout overrides [DefaultRequestTimeout].
func WithRequestTimeout(d time.Duration) Option {
	return func(opts *options) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive: %v", d)
		}
		opts.requestTimeout = &d
		return nil
	}
}

// WithMetrics registers request counters and duration histograms
// with reg. Collectors already registered by another client are shared.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(opts *options) error {
		if reg == nil {
			return errors.New("registerer cannot be nil")
		}
		opts.registerer = reg
		return nil
	}
}

// =============================================================================

// CallOption configures a single call.
type CallOption func(*callOptions) error

type callOptions struct {
	query      map[string]any
	queryItems []QueryItem
	body       any
	typedBody  bool
	keyPath    *string
	method     string
	progress   func(download.Progress)
	dlOpts     []download.Option
}

// WithQuery sets query parameters from a map. Values are formatted
// with fmt.Sprint and encoded in sorted key order.
func WithQuery(params map[string]any) CallOption {
	return func(opts *callOptions) error {
		opts.query = params
		opts.queryItems = nil
		return nil
	}
}

// WithQueryItems sets query parameters from an ordered list.
func WithQueryItems(items ...QueryItem) CallOption {
	return func(opts *callOptions) error {
		opts.queryItems = items
		opts.query = nil
		return nil
	}
}

// WithParams sets an untyped JSON body.
func WithParams(params map[string]any) CallOption {
	return func(opts *callOptions) error {
		opts.body = params
		opts.typedBody = false
		return nil
	}
}

// WithBody sets a typed JSON body. Struct bodies are checked against
// their validate tags before encoding.
func WithBody(v any) CallOption {
	return func(opts *callOptions) error {
		if v == nil {
			return errors.New("body cannot be nil")
		}
		opts.body = v
		opts.typedBody = true
		return nil
	}
}

// WithKeyPath sets where the payload is decoded from. Segments are
// separated by dots; an empty path decodes the whole body.
func WithKeyPath(keyPath string) CallOption {
	return func(opts *callOptions) error {
		opts.keyPath = &keyPath
		return nil
	}
}

// WithMethod sets the HTTP method of a download. Defaults to GET.
func WithMethod(method string) CallOption {
	return func(opts *callOptions) error {
		switch method {
		case http.MethodGet, http.MethodPost, http.MethodPut:
		default:
			return fmt.Errorf("unsupported download method: %q", method)
		}
		opts.method = method
		return nil
	}
}

// WithProgress reports download progress. Asynchronous downloads
// deliver progress on the main executor.
func WithProgress(fn func(download.Progress)) CallOption {
	return func(opts *callOptions) error {
		if fn == nil {
			return errors.New("progress func cannot be nil")
		}
		opts.progress = fn
		return nil
	}
}

// WithChecksum verifies a downloaded file against the expected
// hex-encoded digest.
func WithChecksum(h hash.Hash, expected string) CallOption {
	return func(opts *callOptions) error {
		opts.dlOpts = append(opts.dlOpts, download.WithChecksum(h, expected))
		return nil
	}
}

func buildCallOptions(optFns []CallOption) (*callOptions, error) {
	var opts callOptions
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, err
		}
	}

	return &opts, nil
}

func (o *callOptions) keyPathOr(def string) string {
	if o.keyPath != nil {
		return *o.keyPath
	}

	return def
}
