package ports

import "context"

// Logger is the logging seam for the replay engine: the service, clock
// wiring and adapters all log through it, so the backing implementation
// (the standard-log adapter here, anything structured elsewhere) can be
// swapped without touching call sites.
type Logger interface {
	// Debug logs high-volume per-tick detail (annotation ops, auto-exits).
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs session lifecycle events.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs recoverable problems, e.g. a failed journal mirror.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs an error with its cause.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
