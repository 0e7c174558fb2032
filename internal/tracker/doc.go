// Package tracker implements ferry's upload lifecycle on top of the
// processing service client and the in-memory job store.
//
//	Submit ──► Enqueue (Pending, front of list) ──► Upload ──► token/Failed
//	Check  ──► HEAD check or GET /status/{id}  ──► replace job by id
//	Download ──► GET download_url ──► temp file ──► rename into download_dir
//
// Every upload failure (unreadable file, transport error, HTTP error,
// malformed JSON) ends in Failed with no download reference. The cause goes
// to the log only. Check failures leave the job untouched so a transient
// network error never regresses a job the server has already finished.
//
// Operations open spans on the "ferry/tracker" tracer and record results on
// the optional telemetry.Metrics.
package tracker
