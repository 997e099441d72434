// Package session provides the multi-session store for viewhub.
//
// The store owns the authoritative list of live sessions and the single
// active-session pointer. It handles idempotent creation by server URL,
// capacity eviction (least-recently-active first, sparing engaged
// sessions when possible), active-session switching, and connection state
// mirroring, emitting synchronous change events for each.
//
// Capacity:
//   - At most types.MaxSessions live sessions exist at any time
//   - Eviction order: ascending LastActiveAt, ties by ascending CreatedAt
//   - Eviction never surfaces as an error, only as a SessionRemoved event
//
// Example Usage:
//
//	store := session.NewStore(logger).WithMetrics(metrics)
//	sess, err := store.Create("chat.example.com")
//	store.UpdateState(sess.ID, types.Connected{})
package session
