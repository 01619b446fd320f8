// Package app wires the license server together and owns its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from QAJA_* variables and the optional YAML file
//	2. Initialize logging and OpenTelemetry
//	3. Open the license store (file or redis) and seed it from the environment
//	4. Build the manager, guard, services and backup scheduler
//	5. Set up HTTP handlers, middleware and the event hub
//	6. Start the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    os.Exit(1)
//	}
//	if err := application.Run(); err != nil {
//	    os.Exit(1)
//	}
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the HTTP server is drained first, then the backup
// scheduler, the event hub and telemetry providers are stopped in that order.
// The store's cache and redis client are released last.
//
// The package never calls os.Exit; initialization errors are returned to main.
package app
