// Package httpserver provides the admin HTTP endpoint of pedis-server.
//
// Routes:
//
//   - GET /metrics: Prometheus exposition of the server registry
//   - GET /healthz: liveness, "ok" or 503 with the failing check
//
// Every request passes through Recover, RequestID and AccessLog.
package httpserver
