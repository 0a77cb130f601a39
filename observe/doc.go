// Package observe provides the logging, metrics and tracing primitives the
// answer cache reports through.
//
// NewObserver builds OpenTelemetry tracer and meter providers from Config
// and selects exporters (stdout, otlp, prometheus). Instruments bundles a
// Tracer, Metrics and Logger for a single component; NopInstruments is the
// default when a caller supplies nothing.
//
// Metric instruments:
//
//	answercache.lookups             counter   outcome=hot|exact|similar|miss
//	answercache.lookup.duration_ms  histogram outcome=...
//	answercache.inserts             counter   result=stored|rejected|busy
//	answercache.evictions           counter   policy=lru|sweep|clear
//	answercache.saves               counter   result=ok|error
//
// Logs are JSON lines with timestamp, level and msg keys. Values of keys in
// RedactedFields are replaced with "[REDACTED]".
package observe
