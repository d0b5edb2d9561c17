// Package api is a typed client for JSON APIs that wrap every response in
// a common envelope:
//
//	{"success": true, "errors": null, "token": null, "data": {...}}
//
// The envelope's success flag, not the HTTP status, decides the outcome
// of a 2xx response. Payloads are decoded from a key path inside the body,
// "data" by default. Failures are reported as an [*Error] of kind
// [KindRegular], [KindInternal] or [KindAuth], as the API family's own
// error type E, or as the underlying transport error.
//
// # Creating a Client
//
//	c, err := api.New[*MyError]("https://api.example.com/v1",
//		api.WithLogger(logger),
//		api.WithMainExecutor(loop),
//	)
//
// # Asynchronous Calls
//
// Every asynchronous operation snapshots the headers on the main executor,
// builds, sends and interprets the request on the worker executor, and
// delivers the result back on the main executor:
//
//	call := api.Get(ctx, c, "/users/42", func(u User, err error) {
//		...
//	})
//	call.Cancel() // the callback will not run
//
// # Synchronous Calls
//
// [Fetch], [Client.Exec] and [Client.FetchFile] do the same work on the
// calling goroutine.
//
// # Session Expiry
//
// While auth headers are set, a 401 response fails with [KindAuth] and
// the [Delegate] is notified on the main executor.
package api
