// Package server provides HTTP server setup and initialization for ViewHub.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, metrics, recovery)
//   - Durable session storage and rehydration
//   - Render surface, bridge, and coordinator wiring
//   - Network reachability monitoring
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Open the durable store and rehydrate sessions
//  4. Assemble the session core and its collaborators
//  5. Setup HTTP routes and middleware
//  6. Start HTTP server and background probes
//  7. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal("server failed", zap.Error(err))
//	}
package server
