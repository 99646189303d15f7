// Package app wires the cost comparison service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config.yaml and COSTCMP_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Open the load history store when enabled
//	4. Load the salary, cost and cost detail tables concurrently
//	5. Build the comparison service, handlers and middleware
//	6. Start the HTTP server
//
// Reference data is loaded once, before the server accepts requests. A
// failed load aborts startup; the service never serves partial tables.
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM. In-flight requests complete within the
// configured shutdown timeout, then the store is closed and telemetry is
// flushed.
//
// # Error Handling
//
// Initialization errors are returned to the caller. The package never calls
// os.Exit.
package app
