// Package ws streams session store events to WebSocket clients.
//
// Every store mutation (creation, removal, state change, active switch)
// is fanned out as a JSON message, so UIs can mirror the session list
// without polling.
//
// Message Types (Server → Client):
//   - system: connection established
//   - session_created, session_removed, session_state_changed,
//     active_session_changed: store events
//   - pong: reply to a client ping
//
// Message Types (Client → Server):
//   - ping: keep-alive ping
//
// Example Usage:
//
//	handler := ws.NewHandler(logger, metrics)
//	store.Subscribe(handler.Publish)
//	router.GET("/stream", handler.HandleConnection)
package ws
