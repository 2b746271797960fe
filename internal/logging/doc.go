// Package logging provides opt-in file-based logging with rotation for nxindex.
// When the --debug flag is set, comprehensive logs are written to ~/.nxindex/logs/
// for debugging and troubleshooting.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
