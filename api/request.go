package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request identifier unless the caller's
// headers already set one.
const RequestIDHeader = "X-Request-Id"

// QueryItem is a single query parameter. Order is preserved.
type QueryItem struct {
	Name  string
	Value string
}

// Request is a fully built, not yet sent, API request.
type Request struct {
	Method     string
	URL        *url.URL
	Header     http.Header
	Body       []byte
	Authorized bool
	Timeout    time.Duration
}

// HTTPRequest converts r into an *http.Request bound to ctx and
// limited by r.Timeout. The returned cancel func must be called once
// the response has been consumed.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, context.CancelFunc, error) {
	cancel := func() {}
	if r.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL.String(), body)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("creating http request: %w", err)
	}
	req.Header = r.Header.Clone()

	return req, cancel, nil
}

type headerSnapshot struct {
	static map[string]string
	auth   map[string]string
}

func buildRequest(prefix string, snap headerSnapshot, timeout time.Duration, method, endpoint string, opts *callOptions) (*Request, error) {
	u, err := url.Parse(prefix + endpoint)
	if err != nil {
		return nil, internalError(msgBadEndpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, internalError(msgBadEndpoint, fmt.Errorf("endpoint[%s] missing scheme or host", prefix+endpoint))
	}

	if q := encodeQuery(opts); q != "" {
		if u.RawQuery != "" {
			u.RawQuery += "&" + q
		} else {
			u.RawQuery = q
		}
	}

	body, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	for k, v := range snap.static {
		header.Set(k, v)
	}
	for k, v := range snap.auth {
		header.Set(k, v)
	}

	// Every call goes to the network, whatever the caller's headers say.
	header.Set("Cache-Control", "no-cache")
	if header.Get(RequestIDHeader) == "" {
		header.Set(RequestIDHeader, uuid.NewString())
	}

	return &Request{
		Method:     method,
		URL:        u,
		Header:     header,
		Body:       body,
		Authorized: len(snap.auth) > 0,
		Timeout:    timeout,
	}, nil
}

func encodeQuery(opts *callOptions) string {
	switch {
	case len(opts.queryItems) > 0:
		parts := make([]string, len(opts.queryItems))
		for i, item := range opts.queryItems {
			parts[i] = url.QueryEscape(item.Name) + "=" + url.QueryEscape(item.Value)
		}
		return strings.Join(parts, "&")

	case len(opts.query) > 0:
		values := make(url.Values, len(opts.query))
		for k, v := range opts.query {
			values.Set(k, fmt.Sprint(v))
		}
		return values.Encode()
	}

	return ""
}

func encodeBody(opts *callOptions) ([]byte, error) {
	if opts.body == nil {
		return nil, nil
	}

	if opts.typedBody {
		if err := checkDateFields(reflect.TypeOf(opts.body)); err != nil {
			return nil, internalCause(msgBadBody, err)
		}
		if err := Validate(opts.body); err != nil {
			return nil, &Error{Kind: KindRegular, Message: err.Error(), Err: err}
		}
	}

	b, err := json.Marshal(opts.body)
	if err != nil {
		return nil, internalError(msgBadBody, err)
	}

	return b, nil
}
