// Package logging provides a simple leveled logging interface for the
// thumbnail service and its CLI.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL (or DEBUG) environment
// variable and can be overridden with SetLevel. Setting LOG_FILE mirrors the
// output into a size-rotated file.
package logging
