// Package logging assembles structured slog loggers and formatting helpers used
// by the wiretap CLI and the wiretapd gateway.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes the standardized field keys (host, session, node path)
// so every component emits data with the same shape. The console handler
// colors level labels when it writes to a terminal. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
