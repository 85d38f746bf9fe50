// Package logging builds the slog loggers used across easel. It provides a
// console handler for interactive terminals, a JSON handler for log files and
// non-TTY output, shared attribute helpers, and the standardized field names
// that tie log lines back to runs and pipeline steps.
package logging
