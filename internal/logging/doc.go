// Package logging configures slog for docwatch.
//
// Without --debug, log lines go to stderr as text at the configured level.
// With --debug, JSON lines at debug level are written to a size-rotated file
// under ~/.docwatch/logs/ and mirrored to stderr.
package logging
