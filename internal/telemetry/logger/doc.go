// Package logger provides structured logging for walletlink.
//
//   - logger.go: slog-backed Logger, level control, default logger
//   - context.go: context-carried logger with attempt and request IDs
//   - redact.go: bearer token, signature and secret masking
//
// Every component takes a Logger; the CLI builds one from configuration
// and installs it as the default.
package logger
