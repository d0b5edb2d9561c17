// Package apitest provides a fake envelope API server for tests and
// examples.
package apitest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// Error is the error body returned by [RespondError]. Code and
// Message are both required for it to decode.
type Error struct {
	Code    int    `json:"code" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Recorded is a request as the server received it.
type Recorded struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Server is an httptest.Server routing through an http.ServeMux and
// recording every request it receives.
type Server struct {
	*httptest.Server

	mux      *http.ServeMux
	mu       sync.Mutex
	requests []Recorded
}

// NewServer starts a Server that is closed when tb finishes.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{mux: http.NewServeMux()}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	tb.Cleanup(s.Close)

	return s
}

// Handle registers h for pattern, using http.ServeMux pattern syntax
// such as "GET /users/{id}".
func (s *Server) Handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, h)
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)

	return out
}

// Last returns the most recent request.
func (s *Server) Last() (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return Recorded{}, false
	}

	return s.requests[len(s.requests)-1], true
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	s.mu.Lock()
	s.requests = append(s.requests, Recorded{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	})
	s.mu.Unlock()

	s.mux.ServeHTTP(w, r)
}

// =============================================================================

// RespondJSON writes data as the JSON response body with statusCode.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(jsonData)
}

// RespondRaw writes body verbatim with statusCode.
func RespondRaw(w http.ResponseWriter, statusCode int, body string) {
	w.WriteHeader(statusCode)
	_, _ = io.WriteString(w, body)
}

// Envelope returns a response body with the given outcome and data.
func Envelope(success bool, errs map[string]string, data any) map[string]any {
	env := map[string]any{
		"success": success,
		"errors":  errs,
		"token":   nil,
	}
	if data != nil {
		env["data"] = data
	}

	return env
}

// RespondData writes a successful envelope carrying data.
func RespondData(w http.ResponseWriter, statusCode int, data any) {
	RespondJSON(w, statusCode, Envelope(true, nil, data))
}

// RespondFailure writes an envelope reporting failure.
func RespondFailure(w http.ResponseWriter, statusCode int, errs map[string]string) {
	RespondJSON(w, statusCode, Envelope(false, errs, nil))
}

// RespondError writes an [Error] body.
func RespondError(w http.ResponseWriter, statusCode, code int, message string) {
	RespondJSON(w, statusCode, Error{Code: code, Message: message})
}
