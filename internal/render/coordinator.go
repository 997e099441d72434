package render

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/viewhub/viewhub/internal/domain/connection"
	"github.com/viewhub/viewhub/internal/domain/session"
	"github.com/viewhub/viewhub/internal/infrastructure/logging"
	"github.com/viewhub/viewhub/internal/persist"
	"github.com/viewhub/viewhub/internal/shared/types"
)

// Coordinator wires the validator, session store, connection tracker,
// render bridge, rendering surface, and persistence adapter into the
// end-to-end flow: user input becomes a session, surface outcomes become
// connection states, and store changes are mirrored to durable storage.
//
// The coordinator also guarantees the switch ordering the bridge
// requires: the outgoing session's state is always saved before the
// incoming session's state is loaded.
type Coordinator struct {
	store   *session.Store
	tracker *connection.Tracker
	bridge  *Bridge
	surface Surface
	adapter *persist.Adapter
	logger  *logging.Logger

	mu      sync.Mutex
	pending string // session the in-flight surface load belongs to
}

// NewCoordinator creates the glue between the core and its collaborators.
func NewCoordinator(
	store *session.Store,
	tracker *connection.Tracker,
	bridge *Bridge,
	surface Surface,
	adapter *persist.Adapter,
	logger *logging.Logger,
) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		store:   store,
		tracker: tracker,
		bridge:  bridge,
		surface: surface,
		adapter: adapter,
		logger:  logger,
	}
}

// Rehydrate seeds the session store from durable storage. Call once at
// startup, before subscribers attach.
func (c *Coordinator) Rehydrate() {
	records, activeID := c.adapter.Load()
	c.store.Restore(records, activeID)
	if len(records) > 0 {
		c.logger.Info("sessions rehydrated",
			zap.Int("count", len(records)),
			zap.Bool("has_active", activeID != nil),
		)
	}
}

// Open creates (or re-activates) the session for rawURL and starts
// loading it on the surface. Like Activate, a switch saves the outgoing
// surface state before the incoming state is touched, and an existing
// session resumes from its saved blob instead of reloading. Validation
// errors return synchronously; connection outcomes are reported through
// the tracker and the store.
func (c *Coordinator) Open(ctx context.Context, rawURL string) (types.Session, error) {
	outgoing := c.store.Active()

	sess, err := c.store.Create(rawURL)
	if err != nil {
		return types.Session{}, err
	}

	switched := outgoing == nil || outgoing.ID != sess.ID
	if outgoing != nil && switched {
		if blob := c.surface.CaptureState(); blob != nil {
			c.bridge.SaveState(outgoing.ID, blob)
		}
	}

	if !switched && types.Engaged(sess.State) {
		// Re-opening the session already on screen; nothing to do.
		c.persistSnapshot()
		return sess, nil
	}

	if switched {
		if blob := c.bridge.LoadState(sess.ID); blob != nil {
			c.surface.RestoreState(blob)
			c.persistSnapshot()
			return sess, nil
		}
	}

	c.setPending(sess.ID)
	c.tracker.OnConnectionStarted(sess.ServerURL, sess.ID)
	c.store.UpdateState(sess.ID, types.Connecting{})

	c.surface.Load(ctx, sess.ServerURL)
	c.persistSnapshot()

	// The surface reports synchronously, so the stored state is final by
	// the time Load returns.
	final, ok := c.store.Get(sess.ID)
	if !ok {
		return sess, nil
	}
	return final, nil
}

// Activate switches the active session, saving the outgoing surface
// state before the incoming state is touched.
func (c *Coordinator) Activate(ctx context.Context, sessionID string) error {
	outgoing := c.store.Active()
	if outgoing != nil && outgoing.ID == sessionID {
		return nil
	}
	if outgoing != nil {
		if blob := c.surface.CaptureState(); blob != nil {
			c.bridge.SaveState(outgoing.ID, blob)
		}
	}

	if !c.store.SetActive(sessionID) {
		return session.ErrNotFound
	}

	if blob := c.bridge.LoadState(sessionID); blob != nil {
		c.surface.RestoreState(blob)
	} else {
		// No saved state: fall back to a fresh load of the server URL.
		target, ok := c.store.Get(sessionID)
		if ok {
			c.setPending(sessionID)
			c.tracker.OnConnectionStarted(target.ServerURL, sessionID)
			c.store.UpdateState(sessionID, types.Connecting{})
			c.surface.Load(ctx, target.ServerURL)
		}
	}

	c.persistSnapshot()
	return nil
}

// Close removes a session and discards its render state.
func (c *Coordinator) Close(sessionID string) error {
	if !c.store.Remove(sessionID) {
		return session.ErrNotFound
	}
	c.bridge.Drop(sessionID)
	c.persistSnapshot()
	return nil
}

// Disconnect records an explicit close of a session's connection.
func (c *Coordinator) Disconnect(sessionID string) error {
	if !c.store.UpdateState(sessionID, types.Disconnected{}) {
		return session.ErrNotFound
	}
	c.tracker.OnDisconnected(sessionID)
	return nil
}

// Retry restarts the connection attempt for a session, typically after
// the reachability collaborator reports the network is back.
func (c *Coordinator) Retry(ctx context.Context, sessionID string) error {
	target, ok := c.store.Get(sessionID)
	if !ok {
		return session.ErrNotFound
	}

	c.setPending(sessionID)
	c.tracker.OnConnectionStarted(target.ServerURL, sessionID)
	c.store.UpdateState(sessionID, types.Connecting{})
	c.surface.Load(ctx, target.ServerURL)
	return nil
}

// ReportFailure records an externally observed connection failure, e.g.
// from the reachability collaborator signaling the network dropped.
func (c *Coordinator) ReportFailure(sessionID, message string) error {
	if !c.store.UpdateState(sessionID, types.ConnFailed{Message: message}) {
		return session.ErrNotFound
	}
	c.tracker.OnConnectionFailed(message, sessionID)
	return nil
}

// PageStarted implements Callbacks.
func (c *Coordinator) PageStarted(url string) {
	c.logger.Debug("page load started", zap.String("url", url))
}

// PageFinished implements Callbacks: the pending session is connected.
func (c *Coordinator) PageFinished(url string) {
	sessionID := c.takePending()
	c.tracker.OnConnectionSuccess(url, sessionID)
	if sessionID != "" {
		c.store.UpdateState(sessionID, types.Connected{})
	}
}

// PageError implements Callbacks: the pending session failed.
func (c *Coordinator) PageError(message string) {
	sessionID := c.takePending()
	c.tracker.OnConnectionFailed(message, sessionID)
	if sessionID != "" {
		c.store.UpdateState(sessionID, types.ConnFailed{Message: message})
	}
}

func (c *Coordinator) setPending(sessionID string) {
	c.mu.Lock()
	c.pending = sessionID
	c.mu.Unlock()
}

func (c *Coordinator) takePending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	sessionID := c.pending
	c.pending = ""
	return sessionID
}

func (c *Coordinator) persistSnapshot() {
	if err := c.adapter.Persist(c.store.Sessions(), c.store.ActiveID()); err != nil {
		c.logger.Warn("failed to persist session snapshot", zap.Error(err))
	}
}
