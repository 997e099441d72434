package connection

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viewhub/viewhub/internal/infrastructure/logging"
	"github.com/viewhub/viewhub/internal/infrastructure/monitoring"
	"github.com/viewhub/viewhub/internal/shared/types"
	"github.com/viewhub/viewhub/internal/shared/urls"
)

// Listener receives every state transition, including transitions to an
// identical state. The contextID is the session ID the transition was
// scoped to, or empty for the plain single-connection path.
type Listener func(old, new types.ConnectionState, contextID string)

// HistoryRecorder records successfully connected servers. Implemented by
// the persistence adapter.
type HistoryRecorder interface {
	AddRecentURL(url, name string, connectedAt time.Time)
}

// Tracker is the per-connection-attempt lifecycle state machine:
// Disconnected -> Connecting -> Connected | failed, with retry back
// through Connecting and explicit close back to Disconnected.
//
// The tracker is a passive ledger: outcomes are reported in by the
// rendering/network collaborator, never probed for. All mutating calls
// serialize on one mutex; listener fan-out is synchronous, in
// registration order, on the caller's goroutine.
type Tracker struct {
	mu         sync.Mutex
	state      types.ConnectionState
	currentURL string
	listeners  []Listener

	history HistoryRecorder
	metrics *monitoring.Metrics
	logger  *logging.Logger
	nowFn   func() time.Time
}

// NewTracker creates a tracker in the Disconnected state.
func NewTracker(logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		state:  types.Disconnected{},
		logger: logger,
		nowFn:  time.Now,
	}
}

// WithHistory attaches a recorder that receives every successful
// connection. Must be called before use.
func (t *Tracker) WithHistory(h HistoryRecorder) *Tracker {
	t.history = h
	return t
}

// WithMetrics attaches a metrics collector.
func (t *Tracker) WithMetrics(metrics *monitoring.Metrics) *Tracker {
	t.metrics = metrics
	return t
}

// WithClock overrides the tracker's clock. Intended for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.nowFn = now
	return t
}

// Subscribe registers a transition listener. Listeners must not call back
// into the tracker.
func (t *Tracker) Subscribe(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// OnConnectionStarted records url as the current target and transitions
// to Connecting.
func (t *Tracker) OnConnectionStarted(url, contextID string) {
	t.mu.Lock()
	t.currentURL = url
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.ConnectionAttempts.Inc()
	}
	t.transition(types.Connecting{}, contextID)
}

// OnConnectionSuccess transitions to Connected and appends url to the
// recent-server history.
func (t *Tracker) OnConnectionSuccess(url, contextID string) {
	t.mu.Lock()
	t.currentURL = url
	history := t.history
	now := t.nowFn()
	t.mu.Unlock()

	if history != nil {
		history.AddRecentURL(url, urls.DisplayName(url), now)
	}
	t.transition(types.Connected{}, contextID)
}

// OnConnectionFailed transitions to the error state. The message is
// stored verbatim and never interpreted.
func (t *Tracker) OnConnectionFailed(message, contextID string) {
	if t.metrics != nil {
		t.metrics.ConnectionFailures.Inc()
	}
	t.transition(types.ConnFailed{Message: message}, contextID)
}

// OnDisconnected transitions back to Disconnected (explicit close).
func (t *Tracker) OnDisconnected(contextID string) {
	t.transition(types.Disconnected{}, contextID)
}

// State returns the current connection state.
func (t *Tracker) State() types.ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// CurrentURL returns the most recently targeted url.
func (t *Tracker) CurrentURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentURL
}

// transition applies the new state and fans out to listeners. The
// listener list is snapshotted under the lock; dispatch happens outside
// it so a slow listener cannot block state reads.
func (t *Tracker) transition(next types.ConnectionState, contextID string) {
	t.mu.Lock()
	old := t.state
	t.state = next
	listeners := make([]Listener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	t.logger.Debug("connection state transition",
		zap.String("old", old.String()),
		zap.String("new", next.String()),
		zap.String("context_id", contextID),
	)

	for _, l := range listeners {
		l(old, next, contextID)
	}
}
