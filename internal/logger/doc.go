// Package logger wraps zap with a process-wide sugared logger and context helpers.
//
// Services never hold a logger field: they receive a context, name it once at
// the entry point with WithName and log through Info/InfoKV/Warn/Error helpers,
// which pick the scoped logger back out of the context.
package logger
