package types

// Event is a session store change notification. Events are dispatched
// synchronously, in registration order, after the mutation is fully
// applied and before the mutating call returns.
type Event interface {
	EventType() string
}

// SessionCreated is emitted once per newly constructed session.
type SessionCreated struct {
	Session Session
}

func (SessionCreated) EventType() string { return "session_created" }

// SessionRemoved is emitted when a session leaves the live set. Evicted
// distinguishes capacity eviction from explicit removal; eviction is never
// surfaced as an error, only observable through this event.
type SessionRemoved struct {
	Session Session
	Evicted bool
}

func (SessionRemoved) EventType() string { return "session_removed" }

// SessionStateChanged is emitted on every connection state update,
// including updates to an identical state.
type SessionStateChanged struct {
	Session Session
	Old     ConnectionState
	New     ConnectionState
}

func (SessionStateChanged) EventType() string { return "session_state_changed" }

// ActiveSessionChanged is emitted whenever the active pointer moves or the
// active session's observable state is refreshed. Session is nil when no
// session remains.
type ActiveSessionChanged struct {
	Session *Session
}

func (ActiveSessionChanged) EventType() string { return "active_session_changed" }
