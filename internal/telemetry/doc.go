// Package telemetry wires ferry's logging, tracing, and metrics.
//
// Logging goes to a slog text handler on <log_dir>/ferry.log because the TUI
// owns stdout. Tracing is off unless OTEL_EXPORTER_OTLP_ENDPOINT is set, in
// which case spans from the tracker and the otelhttp transport are exported
// over OTLP/gRPC. Metrics live on a private Prometheus registry and are only
// served when metrics_bind is configured.
package telemetry
