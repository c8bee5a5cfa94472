// Package app wires the web service together: configuration, paths,
// telemetry, the optional PostgreSQL sink, middleware and handlers.
//
// Initialization order:
//
//  1. Resolve and create the data and log directories
//  2. Initialize OpenTelemetry and the business metrics
//  3. Open the database when database.dsn is set
//  4. Build the aggregation options from the st and range tables
//  5. Set up the router and the HTTP server
//
// Run blocks until SIGINT or SIGTERM and then shuts the server down,
// closes the database pool and flushes telemetry. Errors are returned to
// the caller; the package never exits the process itself.
package app
