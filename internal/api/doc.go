// Package api implements the HTTP REST API for the back-office core.
//
// This package provides:
//   - Login, logout, profile and change-password endpoints
//   - Root-only user administration under /api/users
//   - Root-only session maintenance: on-demand sweep and counters
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Security
//
// Clients authenticate with an opaque bearer token issued by /api/login.
// requireSession admits any live session; requireRole admits only an exact
// role match, so an admin token gets 403 on root routes. Login failures use
// one message for unknown users and wrong passwords.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
