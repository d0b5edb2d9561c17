// Package apiclient exposes the typed API client and transport builders.
package apiclient

import (
	"github.com/adamwoolhether/apiclient/api"
	"github.com/adamwoolhether/apiclient/client"
)

// NewTransport instantiates a new *client.Client with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func NewTransport(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// New instantiates an API client for endpoints under prefix, decoding
// failed responses into E.
func New[E error](prefix string, opts ...api.Option) (*api.Client[E], error) {
	return api.New[E](prefix, opts...)
}
