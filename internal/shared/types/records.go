package types

import "time"

// SessionRecord is the durable subset of a Session. Connection state and
// render state are deliberately absent: a rehydrated session is
// known-disconnected until re-proven.
type SessionRecord struct {
	ID           string    `json:"id"`
	ServerURL    string    `json:"server_url"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// StoreRecord is the single durable record mirroring the live session set.
// Each persist overwrites the previous record wholesale.
type StoreRecord struct {
	Sessions []SessionRecord `json:"sessions"`
	ActiveID *string         `json:"active_id,omitempty"`
}

// Record strips a session down to its durable fields.
func (s Session) Record() SessionRecord {
	return SessionRecord{
		ID:           s.ID,
		ServerURL:    s.ServerURL,
		DisplayName:  s.DisplayName,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}
}
