// Package download streams HTTP response bodies to disk with progress
// reporting and optional checksum validation.
//
// [Handle] creates any missing parent directories, writes the body to a
// temporary file alongside the destination path, then renames it over the
// destination on success, replacing a previous file:
//
//	err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, logger,
//		download.WithProgress(func(p download.Progress) {
//			fmt.Printf("%d/%d\n", p.Received, p.Expected)
//		}),
//	)
//
// Cancelling ctx aborts the copy and removes the temporary file; the
// destination is left untouched.
//
// Most callers should use [github.com/adamwoolhether/apiclient/client.Client.Download]
// or the typed download operations of [github.com/adamwoolhether/apiclient/api].
package download
