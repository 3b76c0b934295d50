// Package telemetry records sync metrics and traces with OpenTelemetry.
//
// Provider owns the SDK meter and tracer providers for the process: metrics
// are aggregated in memory and served by the HTTP API, spans go to the
// verbose log. The Recorder uses the global providers unless others are
// supplied, so tests can plug in their own readers and exporters.
package telemetry
