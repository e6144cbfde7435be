// Package logger provides structured logging functionality for the application.
//
// It configures log/slog with a JSON handler and carries request scoped loggers
// through context.Context.
package logger
