// Package logger provides structured logging for respd.
//
// It builds log/slog handlers from configuration:
//
//   - logger.go: handler construction, file rotation and the global level
//   - context.go: loggers carried in a context with connection ids
//   - redact.go: sensitive data redaction
//
// The level is held in a process-wide slog.LevelVar so it can be changed
// at runtime when the configuration file is reloaded.
package logger
