// Package processor is the HTTP client for the remote CSV processing service.
//
// # Endpoints
//
//	POST /upload            multipart form, field "file"
//	                        → {"status": token, "download_url": string}
//	GET  /status/{jobId}    → {"status": token, "progress": {...}}
//	HEAD <download_url>     readiness check (2xx means the artifact exists)
//	GET  <download_url>     the processed artifact
//
// The job id is the final path segment of download_url; see
// JobIDFromDownloadURL. Relative download URLs resolve against the server URL
// passed to NewClient.
//
// # Transport
//
// Requests carry a ferry User-Agent and go through an otelhttp transport, so
// every call produces a client span when a tracer provider is installed. File
// uploads are streamed through an io.Pipe. The part's Content-Type is sniffed
// with mimetype.
//
// # Errors
//
// Transport failures are wrapped as "execute request: ...". HTTP statuses of
// 400 and above become "api <path> returned status <code>", and invalid JSON
// becomes "decode response: ...". Head is the exception: a non-2xx answer
// yields false with a nil error, because "not ready yet" is an expected result.
// The client does not interpret status tokens. That is the job package's
// concern.
package processor
