// Package telemetry wires the pipeline engine into OpenTelemetry tracing
// and metrics, plus a Prometheus registry for pull-based scraping. The
// engine records through package-level helpers so handler code never touches
// exporters directly.
package telemetry
