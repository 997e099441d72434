// Package types provides shared data structures for the viewhub core.
//
// This package defines the types used across all components, ensuring
// type safety and consistent data structures.
//
// Core Types:
//   - Session: Logical connection to one remote server
//   - ConnectionState: Closed state set (Disconnected, Connecting,
//     Connected, ConnFailed)
//   - RecentEntry: Bounded server history record
//
// Durable Records:
//   - SessionRecord, StoreRecord: Persisted subset of the live session
//     set; connection and render state never persist
//
// Events:
//   - SessionCreated, SessionRemoved, SessionStateChanged,
//     ActiveSessionChanged: Store change notifications, dispatched
//     synchronously in registration order
//
// Example Usage:
//
//	sess := types.Session{
//	    ID:        string(id.NewSessionID()),
//	    ServerURL: "https://example.com",
//	    State:     types.Disconnected{},
//	}
package types
