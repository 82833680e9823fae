// Package shutdown coordinates graceful termination of pedis-server.
//
// Hooks registered with OnShutdown run in reverse registration order once
// SIGINT or SIGTERM arrives, the parent context ends, or Trigger is called.
// All hooks share one deadline.
package shutdown
