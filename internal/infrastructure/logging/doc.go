// Package logging provides structured logging for Amparo Core.
//
// It wraps log/slog with configuration-driven level and format selection
// plus default service/version attributes on every record.
package logging
