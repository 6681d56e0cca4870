// Package observability provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the gateway.
//
// Logging is built on zap behind a small Logger interface so packages depend
// on the interface, not on zap directly. Metrics live on a private registry
// and label requests by route name rather than raw path to keep cardinality
// bounded. Tracing is disabled unless an OTLP endpoint is configured; when
// disabled, a no-op tracer is returned and no exporter is constructed.
package observability
