package types

// ConnKind identifies a connection lifecycle state.
type ConnKind string

const (
	KindDisconnected ConnKind = "disconnected"
	KindConnecting   ConnKind = "connecting"
	KindConnected    ConnKind = "connected"
	KindError        ConnKind = "error"
)

// ConnectionState is the per-session connection lifecycle state.
//
// It is a closed set: Disconnected, Connecting, Connected, and ConnFailed
// (which carries an opaque user-facing message). New states must not be
// added outside this package.
type ConnectionState interface {
	Kind() ConnKind
	String() string
}

// Disconnected is the initial state and the result of an explicit close.
type Disconnected struct{}

func (Disconnected) Kind() ConnKind { return KindDisconnected }
func (Disconnected) String() string { return string(KindDisconnected) }

// Connecting indicates a connection attempt is in flight.
type Connecting struct{}

func (Connecting) Kind() ConnKind { return KindConnecting }
func (Connecting) String() string { return string(KindConnecting) }

// Connected indicates the session is live.
type Connected struct{}

func (Connected) Kind() ConnKind { return KindConnected }
func (Connected) String() string { return string(KindConnected) }

// ConnFailed indicates a failed connection attempt. Message is opaque
// user-facing text reported by the rendering collaborator; it is stored
// verbatim and never parsed.
type ConnFailed struct {
	Message string
}

func (ConnFailed) Kind() ConnKind { return KindError }

func (e ConnFailed) String() string {
	if e.Message == "" {
		return string(KindError)
	}
	return string(KindError) + ": " + e.Message
}

// Engaged reports whether a state represents an in-flight or established
// connection. Engaged sessions are deprioritized for eviction.
func Engaged(s ConnectionState) bool {
	if s == nil {
		return false
	}
	k := s.Kind()
	return k == KindConnecting || k == KindConnected
}
