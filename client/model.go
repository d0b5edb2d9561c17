package client

import (
	"errors"
	"net/http"
)

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

// ErrEmptyDestPath is returned by [Client.Download] when no destination is given.
var ErrEmptyDestPath = errors.New("destPath must not be empty")

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return IsSuccess(r.StatusCode)
}

// IsSuccess reports whether code is in the 2xx range.
func IsSuccess(code int) bool {
	return code >= 200 && code <= 299
}
