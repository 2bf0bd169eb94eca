// Package logging provides structured logging for the back-office service.
//
// It wraps log/slog with the service's default fields (service, version)
// and maps the logging section of config.yaml onto a handler.
package logging
