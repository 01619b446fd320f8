// Package http implements the HTTP handlers of the license server.
//
// Handlers stay thin: they decode and validate the request, call a service
// and render the response. Business rules live in the services and license
// packages.
//
// # Response conventions
//
// Public validation answers always carry success, message and, on failure,
// code, and are returned with status 200 so POS clients can branch on the
// body alone:
//
//	{"success": false, "message": "Licencia no encontrada", "code": "INVALID_KEY"}
//
// Admin failures are RFC 7807 problem documents rendered by the shared
// errors.ErrorHandler. They keep the same success, message and code fields
// as extensions.
//
// # Handlers
//
//	LicenseHandler   GET /, GET /validate
//	AdminHandler     everything under /admin
//	HealthHandler    /health, /health/ready, /health/live, /version
//	MetricsHandler   /metrics (Prometheus exposition)
package http
