package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutExtraWideWidth is the threshold for a narrower job list.
	LayoutExtraWideWidth = 160
)

// Log display limits.
const (
	// LogInitialLines is how much history the log view loads on first open.
	LogInitialLines = 400

	// LogBufferLimit is the maximum number of log lines to keep in memory.
	LogBufferLimit = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// FlashDuration is how long a flash message stays in the header.
	FlashDuration = 5 * time.Second
)
