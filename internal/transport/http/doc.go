// Package http implements the HTTP handlers of the web service.
//
// Handlers stay thin: they parse and validate the request, delegate to the
// st, exporter and storage packages, and render either JSON or an RFC 7807
// problem through errors.ErrorHandler.
//
// Routes:
//
//	GET  /api/health            liveness and version
//	GET  /api/health/ready      readiness, pings the database when configured
//	GET  /metrics               Prometheus exposition
//	POST /api/v1/st/aggregate   multipart upload of ST exports
package http
