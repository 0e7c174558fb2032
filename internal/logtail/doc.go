// Package logtail reads ferry's diagnostic log for display in the TUI.
//
// # Reading
//
// Read returns the last N lines of a file using a ring buffer, so memory is
// bounded by N rather than by file size. A missing file yields nil, nil.
//
//	lines, err := logtail.Read(cfg.LogPath(), 400)
//
// Follower serves the log view's follow mode: every Next call returns only
// the complete lines appended since the previous call. Truncation restarts
// from offset zero.
//
// # Parsing
//
// The log is written by slog.TextHandler:
//
//	time=2026-10-14T09:12:03.120+02:00 level=INFO msg="upload accepted" job=3f2c file=sales.csv status=PENDING
//
// Parse turns such a line into an Entry with time, level, and message pulled
// out and the remaining pairs kept in order. Quoted values are unescaped.
// Lines in any other shape come back unparsed with Raw set, and the UI
// renders them as plain text.
package logtail
