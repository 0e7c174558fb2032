// Package app is ferry's composition root.
//
// Run loads configuration, opens the log file, installs tracing and metrics,
// builds the processing-service client, the job store, and the tracker, and
// then hands control to either the TUI or headless mode.
//
//	Run()
//	 ├─> config.Load()          ~/.config/ferry/config.toml
//	 ├─> telemetry.NewLogger()  <log_dir>/ferry.log
//	 ├─> telemetry.InitTracing() / Metrics.Serve()
//	 ├─> processor.NewClient()
//	 ├─> tracker.New(client, &state.Store{})
//	 ├─> NewPoller()            started when auto_poll is set
//	 └─> ui.Run()  or  runHeadless()
//
// # Polling
//
// The poller wakes every poll_interval and checks each confirmed job that is
// not yet Completed or Failed. Checks within a pass run concurrently. After
// a failed check the job waits interval*2^failures (capped at 30s) before it
// is tried again. A job still open poll_timeout after submission is marked
// Failed.
//
// # Errors
//
// Config, logging, and client setup errors are fatal and returned from Run.
// Tracing and metrics failures are logged and ferry keeps running. Headless
// runs return ErrJobsFailed when any job ends Failed so the command can exit
// non-zero.
package app
