package types

import "time"

// MaxSessions is the maximum number of live sessions. Creating a session
// beyond this bound evicts the least-recently-active one.
const MaxSessions = 5

// MaxRecentEntries bounds the recent-server history list.
const MaxRecentEntries = 10

// Session is a logical connection to one remote server.
//
// ID and ServerURL are immutable after creation; a new URL always creates
// a new session. State, LastActiveAt, and membership are mutated only by
// the session store.
type Session struct {
	ID           string          `json:"id"`
	ServerURL    string          `json:"server_url"`
	DisplayName  string          `json:"display_name"`
	State        ConnectionState `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActiveAt time.Time       `json:"last_active_at"`

	// RenderState is the opaque engine state blob for suspend/resume.
	// Overwritten wholesale by the render bridge, never merged, and
	// excluded from the persisted record.
	RenderState []byte `json:"-"`
}

// View returns the wire representation of a session for API and event
// payloads, with the connection state flattened to its kind.
func (s Session) View() map[string]interface{} {
	v := map[string]interface{}{
		"id":             s.ID,
		"server_url":     s.ServerURL,
		"display_name":   s.DisplayName,
		"state":          string(s.State.Kind()),
		"created_at":     s.CreatedAt,
		"last_active_at": s.LastActiveAt,
	}
	if f, ok := s.State.(ConnFailed); ok && f.Message != "" {
		v["error"] = f.Message
	}
	return v
}

// RecentEntry is a lightweight history record for a server the user has
// connected (or attempted to connect) to. Entries outlive sessions and are
// removed only by explicit history operations.
type RecentEntry struct {
	URL           string    `json:"url"`
	Name          string    `json:"name,omitempty"`
	LastConnected time.Time `json:"last_connected"`
	CreatedAt     time.Time `json:"created_at"`
}

// StoreStats contains session store statistics.
type StoreStats struct {
	TotalSessions   int     `json:"total_sessions"`
	EngagedSessions int     `json:"engaged_sessions"`
	ActiveID        *string `json:"active_id,omitempty"`
}
