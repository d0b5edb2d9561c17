package api_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/adamwoolhether/apiclient/api"
	"github.com/adamwoolhether/apiclient/apitest"
	"github.com/adamwoolhether/apiclient/dispatch"
)

func newOfflineClient(t *testing.T, prefix string, opts ...api.Option) *api.Client[*apitest.Error] {
	t.Helper()

	opts = append([]api.Option{
		api.WithMainExecutor(dispatch.Inline),
		api.WithWorkerExecutor(dispatch.Inline),
	}, opts...)

	c, err := api.New[*apitest.Error](prefix, opts...)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	t.Cleanup(c.Close)

	return c
}

func TestBuildRequest_URL(t *testing.T) {
	tests := map[string]struct {
		prefix   string
		endpoint string
		opts     []api.CallOption
		want     string
	}{
		"plain": {
			prefix:   "https://api.example.com/v1",
			endpoint: "/users",
			want:     "https://api.example.com/v1/users",
		},
		"map query sorted": {
			prefix:   "https://api.example.com",
			endpoint: "/search",
			opts:     []api.CallOption{api.WithQuery(map[string]any{"q": "go lang", "page": 2, "all": true})},
			want:     "https://api.example.com/search?all=true&page=2&q=go+lang",
		},
		"items keep order": {
			prefix:   "https://api.example.com",
			endpoint: "/search",
			opts: []api.CallOption{api.WithQueryItems(
				api.QueryItem{Name: "z", Value: "1"},
				api.QueryItem{Name: "a", Value: "2"},
				api.QueryItem{Name: "z", Value: "3"},
			)},
			want: "https://api.example.com/search?z=1&a=2&z=3",
		},
		"existing query kept": {
			prefix:   "https://api.example.com",
			endpoint: "/search?lang=en",
			opts:     []api.CallOption{api.WithQuery(map[string]any{"q": "x"})},
			want:     "https://api.example.com/search?lang=en&q=x",
		},
		"empty prefix full endpoint": {
			prefix:   "",
			endpoint: "http://localhost:8080/ping",
			want:     "http://localhost:8080/ping",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := newOfflineClient(t, tc.prefix)

			req, err := c.BuildRequest(http.MethodGet, tc.endpoint, tc.opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := req.URL.String(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBuildRequest_BadEndpoint(t *testing.T) {
	tests := map[string]struct {
		prefix   string
		endpoint string
	}{
		"no scheme":   {prefix: "", endpoint: "/users"},
		"no host":     {prefix: "https://", endpoint: "/users"},
		"unparseable": {prefix: "https://api.example.com", endpoint: "/%zz"},
		"bad scheme":  {prefix: "://api", endpoint: "/users"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := newOfflineClient(t, tc.prefix)

			_, err := c.BuildRequest(http.MethodGet, tc.endpoint)
			if !api.IsInternal(err) {
				t.Fatalf("expected internal error, got %v", err)
			}
			if err.Error() != "Bad endpoint url" {
				t.Errorf("expected Bad endpoint url, got %q", err.Error())
			}
		})
	}
}

func TestBuildRequest_Headers(t *testing.T) {
	c := newOfflineClient(t, "https://api.example.com",
		api.WithHeaders(map[string]string{
			"Accept-Language": "en",
			"Authorization":   "static",
			"Cache-Control":   "max-age=3600",
			"X-App":           "demo",
		}),
		api.WithAuthHeaders(map[string]string{"Authorization": "Bearer abc"}),
	)

	req, err := c.BuildRequest(http.MethodGet, "/me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"Accept-Language": "en",
		"Authorization":   "Bearer abc",
		"Cache-Control":   "no-cache",
		"X-App":           "demo",
	}
	for k, v := range want {
		if got := req.Header.Get(k); got != v {
			t.Errorf("header %s: expected %q, got %q", k, v, got)
		}
	}

	if _, err := uuid.Parse(req.Header.Get(api.RequestIDHeader)); err != nil {
		t.Errorf("expected uuid request id, got %q", req.Header.Get(api.RequestIDHeader))
	}
	if got := req.Header.Get("Content-Type"); got != "" {
		t.Errorf("expected no content type without body, got %q", got)
	}
	if !req.Authorized {
		t.Error("expected authorized request")
	}
	if req.Timeout != api.DefaultRequestTimeout {
		t.Errorf("expected default timeout, got %v", req.Timeout)
	}
}

func TestBuildRequest_RequestIDFromHeaders(t *testing.T) {
	c := newOfflineClient(t, "https://api.example.com",
		api.WithHeaders(map[string]string{api.RequestIDHeader: "fixed"}),
	)

	req, err := c.BuildRequest(http.MethodGet, "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := req.Header.Get(api.RequestIDHeader); got != "fixed" {
		t.Errorf("expected fixed request id, got %q", got)
	}
	if req.Authorized {
		t.Error("expected unauthorized request without auth headers")
	}
}

func TestBuildRequest_Body(t *testing.T) {
	type note struct {
		Title string   `json:"title" validate:"required"`
		Due   api.Time `json:"due"`
	}

	c := newOfflineClient(t, "https://api.example.com")
	due := api.NewTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	tests := map[string]struct {
		opts []api.CallOption
		want string
	}{
		"params": {
			opts: []api.CallOption{api.WithParams(map[string]any{"b": 1, "a": "x"})},
			want: `{"a":"x","b":1}`,
		},
		"typed": {
			opts: []api.CallOption{api.WithBody(note{Title: "t", Due: due})},
			want: `{"title":"t","due":"2025-01-02 03:04:05"}`,
		},
		"last body wins": {
			opts: []api.CallOption{
				api.WithBody(note{Title: "t", Due: due}),
				api.WithParams(map[string]any{"a": 1}),
			},
			want: `{"a":1}`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := c.BuildRequest(http.MethodPost, "/notes", tc.opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tc.want, string(req.Body)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
			if got := req.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("expected application/json, got %q", got)
			}
		})
	}
}

func TestBuildRequest_InvalidBody(t *testing.T) {
	type note struct {
		Title string `json:"title" validate:"required"`
	}

	c := newOfflineClient(t, "https://api.example.com")

	_, err := c.BuildRequest(http.MethodPost, "/notes", api.WithBody(note{}))
	if !api.IsRegular(err) {
		t.Fatalf("expected regular error, got %v", err)
	}

	fe, ok := errors.AsType[api.FieldErrors](err)
	if !ok {
		t.Fatalf("expected FieldErrors in chain, got %v", err)
	}
	if _, ok := fe.Fields()["title"]; !ok {
		t.Errorf("expected title field error, got %v", fe.Fields())
	}

	_, err = c.BuildRequest(http.MethodPost, "/notes", api.WithParams(map[string]any{"ch": make(chan int)}))
	if !api.IsInternal(err) || err.Error() != "Bad request body" {
		t.Errorf("expected Bad request body internal error, got %v", err)
	}
}

func TestBuildRequest_PlainTimeBody(t *testing.T) {
	type event struct {
		When time.Time `json:"when"`
	}
	type schedule struct {
		Name   string   `json:"name"`
		Events []*event `json:"events"`
	}
	type stamped struct {
		Name string   `json:"name"`
		At   api.Time `json:"at"`
	}

	c := newOfflineClient(t, "https://api.example.com")

	tests := map[string]struct {
		body    any
		wantErr string
	}{
		"top level field": {
			body:    event{When: time.Now()},
			wantErr: "field[when]",
		},
		"nested in slice": {
			body:    &schedule{Name: "s"},
			wantErr: "field[events.when]",
		},
		"api.Time": {
			body: stamped{Name: "n", At: api.NewTime(time.Now())},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.BuildRequest(http.MethodPost, "/events", api.WithBody(tc.body))

			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if !api.IsInternal(err) || !errors.Is(err, api.ErrPlainTime) {
				t.Fatalf("expected internal ErrPlainTime, got %v", err)
			}
			if err.Error() != "Bad request body" {
				t.Errorf("expected Bad request body, got %q", err.Error())
			}

			e, _ := errors.AsType[*api.Error](err)
			if !strings.Contains(e.Err.Error(), tc.wantErr) {
				t.Errorf("expected cause naming %s, got %v", tc.wantErr, e.Err)
			}
		})
	}
}

func TestBuildRequest_InvalidOption(t *testing.T) {
	c := newOfflineClient(t, "https://api.example.com")

	_, err := c.BuildRequest(http.MethodGet, "/", api.WithMethod(http.MethodDelete))
	if !api.IsInternal(err) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestRequest_HTTPRequest(t *testing.T) {
	c := newOfflineClient(t, "https://api.example.com", api.WithRequestTimeout(time.Minute))

	req, err := c.BuildRequest(http.MethodPut, "/notes/1", api.WithParams(map[string]any{"a": 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	httpReq, cancel, err := req.HTTPRequest(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	if httpReq.Method != http.MethodPut {
		t.Errorf("expected PUT, got %s", httpReq.Method)
	}
	if httpReq.ContentLength != int64(len(req.Body)) {
		t.Errorf("expected content length %d, got %d", len(req.Body), httpReq.ContentLength)
	}
	if _, ok := httpReq.Context().Deadline(); !ok {
		t.Error("expected request deadline")
	}

	httpReq.Header.Set("X-Mutated", "1")
	if req.Header.Get("X-Mutated") != "" {
		t.Error("expected http request headers to be a copy")
	}
}

func TestClient_HeaderState(t *testing.T) {
	c := newOfflineClient(t, "https://api.example.com")

	in := map[string]string{"X-A": "1"}
	c.SetHeaders(in)
	in["X-A"] = "changed"

	if diff := cmp.Diff(map[string]string{"X-A": "1"}, c.Headers()); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	c.SetAuthToken("tok")
	if diff := cmp.Diff(map[string]string{"Authorization": "Bearer tok"}, c.AuthHeaders()); diff != "" {
		t.Errorf("auth headers mismatch (-want +got):\n%s", diff)
	}

	c.SetAuthToken("")
	if len(c.AuthHeaders()) != 0 {
		t.Errorf("expected auth headers cleared, got %v", c.AuthHeaders())
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := map[string]api.Option{
		"nil logger":     api.WithLogger(nil),
		"nil tracer":     api.WithTracer(nil),
		"nil main":       api.WithMainExecutor(nil),
		"nil worker":     api.WithWorkerExecutor(nil),
		"nil transport":  api.WithTransport(nil),
		"zero timeout":   api.WithRequestTimeout(0),
		"nil registerer": api.WithMetrics(nil),
	}

	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := api.New[*apitest.Error]("https://api.example.com", opt); err == nil {
				t.Error("expected error")
			}
		})
	}
}
