// Package main is the entry point for the ViewHub session service.
//
// The service manages connections to multiple remote servers as
// independent sessions: one is active and rendered at a time, the rest
// stay live in the background with their render state suspended. Session
// membership and a bounded recent-server history survive restarts
// through a durable file store.
//
// Configuration:
//   - Environment variables (VIEWHUB_* prefix, 12-factor)
//   - Optional YAML file (-config)
//   - CLI flags (override both)
//
// Usage:
//
//	# Production mode
//	./server -port 8090 -data /var/lib/viewhub/store.json
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
