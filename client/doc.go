// Package client is the transport underneath the typed API client in
// [github.com/adamwoolhether/apiclient/api]. It wraps [net/http], executes
// fully formed requests, and either buffers or streams their responses.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithThrottle(20, 5),
//	)
//
// # Sending Requests
//
// [Client.Send] returns the status code and the buffered body for any
// status. Only transport failures are errors:
//
//	resp, err := c.Send(req)
//	if err != nil { ... }
//	if resp.IsSuccess() { ... }
//
// # Downloading Files
//
// [Client.Download] streams the response body to disk, creating missing
// directories and replacing any previous file, with optional progress
// reporting and checksum verification:
//
//	status, err := c.Download(req, "/tmp/file.bin",
//		download.WithProgress(func(p download.Progress) { ... }),
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//
// Both calls inject the OpenTelemetry trace context of the request's
// context into its headers.
package client
