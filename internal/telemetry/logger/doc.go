// Package logger builds the process logger for Pedis.
//
// Loggers are plain *slog.Logger values sharing one dynamic level, so a
// level change from the config watcher reaches every component. The
// handler returned by New also reads the connection ID stored by
// WithConnID, so any *Context log call made while serving a client is
// tagged with conn_id.
package logger
