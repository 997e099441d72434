// Package http provides HTTP handlers and routing for the ViewHub REST API.
//
// This package implements all HTTP endpoints using the Gin framework,
// covering session lifecycle, the recent-server history, render state
// transfer, and network reachability.
//
// Endpoints:
//   - Health: / and /health
//   - Sessions: /sessions, /sessions/active, /sessions/:id,
//     /sessions/:id/activate, /sessions/:id/disconnect, /sessions/:id/retry,
//     /sessions/:id/failure, /sessions/:id/state
//   - Validation: /validate
//   - History: /history, /history/remove, /history/clear
//   - Network: /network
//
// Example Usage:
//
//	handlers := http.NewHandlers(coordinator, store, bridge, adapter, monitor)
//	router.GET("/health", handlers.Health)
//	router.POST("/sessions", handlers.CreateSession)
package http
