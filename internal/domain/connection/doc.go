// Package connection tracks the connection lifecycle reported by the
// rendering collaborator.
//
// The tracker is independent of the session store: callers that manage
// multiple sessions mirror transitions into the store themselves by
// passing the session ID as the transition's context. Nothing in this
// package performs network I/O, retries, or reconnection; it only records
// reported outcomes and broadcasts them.
package connection
