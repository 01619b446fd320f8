// Package services implements the business layer between the HTTP handlers
// and the license core.
//
// # Services
//
//	LicenseService  lifecycle operations, reporting, exports, backup/restore
//	BackupService   control of the scheduled backup runner
//	HealthService   liveness, readiness and component health
//
// Services accept a context on every blocking call, log through an injected
// *slog.Logger and return domain failures unchanged so the transport layer
// can map them to responses:
//
//	result, err := svc.Validate(ctx, clientIP, license.ValidateRequest{
//	    Key:        key,
//	    HardwareID: hardware,
//	})
//
// Validation outcomes such as INVALID_KEY are carried in the result, not in
// err. Errors are reserved for storage failures and the sentinels in
// errors.go.
package services
