// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound API calls using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// # Usage
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		10,  // requests per second
//		5,   // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// Most callers enable it through client.WithThrottle instead. When the
// rate limit is exceeded, outbound requests block until a token becomes
// available or the request context is cancelled, in which case the error
// wraps [ErrWaitingFailed] or [ErrContextEnded].
package throttle
