package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viewhub/viewhub/internal/infrastructure/logging"
	"github.com/viewhub/viewhub/internal/infrastructure/monitoring"
	"github.com/viewhub/viewhub/internal/shared/id"
	"github.com/viewhub/viewhub/internal/shared/types"
	"github.com/viewhub/viewhub/internal/shared/urls"
)

// ErrNotFound reports that an ID names no live session.
var ErrNotFound = errors.New("session not found")

// Store owns the authoritative set of live sessions and the active-session
// pointer. It is the only component allowed to mutate a session's
// connection state, last-active timestamp, or membership.
//
// All mutating operations serialize on one mutex. Events are dispatched
// synchronously before the mutating call returns, in subscriber
// registration order, on the caller's goroutine; subscribers must not call
// back into the store.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*types.Session
	activeID    *string
	subscribers []func(types.Event)

	metrics *monitoring.Metrics
	logger  *logging.Logger
	nowFn   func() time.Time
}

// NewStore creates an empty session store.
func NewStore(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		sessions: make(map[string]*types.Session),
		logger:   logger,
		nowFn:    time.Now,
	}
}

// WithMetrics adds metrics tracking to the store.
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// WithClock overrides the store's clock. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.nowFn = now
	return s
}

// Subscribe registers an event subscriber.
func (s *Store) Subscribe(fn func(types.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Create returns the live session for url, creating it if needed.
//
// Creation is idempotent by normalized URL: an existing session is
// activated and returned unchanged. At capacity the least-recently-active
// session is evicted, preferring sessions that are neither connecting nor
// connected; eviction is observable only through the SessionRemoved event.
// The new (or found) session becomes the active session.
func (s *Store) Create(rawURL string) (types.Session, error) {
	normalized, err := urls.Validate(rawURL)
	if err != nil {
		return types.Session{}, err
	}

	s.mu.Lock()

	if existing := s.findByURLLocked(normalized); existing != nil {
		events := s.activateLocked(existing.ID)
		result := *existing
		s.mu.Unlock()
		s.emit(events)
		return result, nil
	}

	var events []types.Event
	if len(s.sessions) >= types.MaxSessions {
		victim := s.evictionTargetLocked()
		delete(s.sessions, victim.ID)
		if s.activeID != nil && *s.activeID == victim.ID {
			s.activeID = nil
		}
		events = append(events, types.SessionRemoved{Session: *victim, Evicted: true})
		if s.metrics != nil {
			s.metrics.SessionsEvicted.Inc()
		}
		s.logger.Info("session evicted at capacity",
			zap.String("session_id", victim.ID),
			zap.String("server_url", victim.ServerURL),
		)
	}

	now := s.nowFn()
	sess := &types.Session{
		ID:           id.NewSessionID().String(),
		ServerURL:    normalized,
		DisplayName:  urls.DisplayName(normalized),
		State:        types.Disconnected{},
		CreatedAt:    now,
		LastActiveAt: now,
	}

	// The previously active session is touched on its way out so the
	// eviction ordering reflects real recency.
	if s.activeID != nil {
		if prev, ok := s.sessions[*s.activeID]; ok {
			s.touchLocked(prev, now)
		}
	}

	s.sessions[sess.ID] = sess
	active := sess.ID
	s.activeID = &active

	created := *sess
	events = append(events,
		types.SessionCreated{Session: created},
		types.ActiveSessionChanged{Session: &created},
	)

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	s.updateGaugesLocked()
	s.mu.Unlock()

	s.emit(events)
	return created, nil
}

// SetActive switches the active-session pointer. No-op when id is already
// active or unknown; returns whether id names a live session.
func (s *Store) SetActive(sessionID string) bool {
	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.mu.Unlock()
		return false
	}
	events := s.activateLocked(sessionID)
	s.mu.Unlock()
	s.emit(events)
	return true
}

// UpdateState sets a session's connection state on behalf of the network
// layer. Every call fans out, even when the state is unchanged; when the
// session is active the refreshed session is re-published so observers see
// the new state without a separate fetch.
func (s *Store) UpdateState(sessionID string, state types.ConnectionState) bool {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	old := sess.State
	sess.State = state
	s.touchLocked(sess, s.nowFn())

	updated := *sess
	events := []types.Event{types.SessionStateChanged{Session: updated, Old: old, New: state}}
	if s.activeID != nil && *s.activeID == sessionID {
		events = append(events, types.ActiveSessionChanged{Session: &updated})
	}

	s.updateGaugesLocked()
	s.mu.Unlock()
	s.emit(events)
	return true
}

// Touch refreshes a session's last-active timestamp.
func (s *Store) Touch(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	s.touchLocked(sess, s.nowFn())
	return true
}

// Remove deletes a session from the live set. When the active session is
// removed, the remaining session with the greatest last-active timestamp
// becomes active (nil if none remain).
func (s *Store) Remove(sessionID string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	delete(s.sessions, sessionID)
	removed := *sess
	events := []types.Event{types.SessionRemoved{Session: removed}}

	if s.activeID != nil && *s.activeID == sessionID {
		if next := s.mostRecentLocked(); next != nil {
			active := next.ID
			s.activeID = &active
			cp := *next
			events = append(events, types.ActiveSessionChanged{Session: &cp})
		} else {
			s.activeID = nil
			events = append(events, types.ActiveSessionChanged{Session: nil})
		}
	}

	if s.metrics != nil {
		s.metrics.SessionsRemoved.Inc()
	}
	s.updateGaugesLocked()
	s.mu.Unlock()
	s.emit(events)
	return true
}

// RemoveAll clears the live set. Persisted metadata is untouched; callers
// wanting a full reset clear the persistence adapter separately.
func (s *Store) RemoveAll() {
	s.mu.Lock()
	var events []types.Event
	for _, sess := range s.sortedLocked() {
		delete(s.sessions, sess.ID)
		events = append(events, types.SessionRemoved{Session: sess})
	}
	if s.activeID != nil {
		s.activeID = nil
		events = append(events, types.ActiveSessionChanged{Session: nil})
	}
	s.updateGaugesLocked()
	s.mu.Unlock()
	s.emit(events)
}

// CanCreateNew reports whether a new session can be created without
// disrupting an engaged one: either the store is under capacity or some
// session is neither connecting nor connected.
func (s *Store) CanCreateNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) < types.MaxSessions {
		return true
	}
	for _, sess := range s.sessions {
		if !types.Engaged(sess.State) {
			return true
		}
	}
	return false
}

// EngagedCount returns the number of sessions currently connecting or
// connected.
func (s *Store) EngagedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engagedLocked()
}

// Get retrieves a session copy by ID.
func (s *Store) Get(sessionID string) (types.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return types.Session{}, false
	}
	return *sess, true
}

// Sessions returns copies of all live sessions in creation order.
func (s *Store) Sessions() []types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Active returns a copy of the active session, or nil.
func (s *Store) Active() *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == nil {
		return nil
	}
	sess, ok := s.sessions[*s.activeID]
	if !ok {
		return nil
	}
	cp := *sess
	return &cp
}

// ActiveID returns the active session's ID, or nil.
func (s *Store) ActiveID() *string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == nil {
		return nil
	}
	active := *s.activeID
	return &active
}

// SetRenderState writes an opaque render blob onto a session, replacing
// any prior value wholesale.
func (s *Store) SetRenderState(sessionID string, blob []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	sess.RenderState = cp
	return true
}

// RenderState returns a session's render blob, or nil.
func (s *Store) RenderState(sessionID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.RenderState == nil {
		return nil
	}
	cp := make([]byte, len(sess.RenderState))
	copy(cp, sess.RenderState)
	return cp
}

// Restore seeds the store from persisted records. Restored sessions are
// known-disconnected until re-proven; an active ID that no longer names a
// restored session is dropped. No events are emitted: rehydration happens
// before any subscriber is attached.
func (s *Store) Restore(records []types.SessionRecord, activeID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*types.Session, len(records))
	for _, rec := range records {
		s.sessions[rec.ID] = &types.Session{
			ID:           rec.ID,
			ServerURL:    rec.ServerURL,
			DisplayName:  rec.DisplayName,
			State:        types.Disconnected{},
			CreatedAt:    rec.CreatedAt,
			LastActiveAt: rec.LastActiveAt,
		}
	}

	s.activeID = nil
	if activeID != nil {
		if _, ok := s.sessions[*activeID]; ok {
			active := *activeID
			s.activeID = &active
		}
	}
	s.updateGaugesLocked()
}

// Stats returns store statistics.
func (s *Store) Stats() types.StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := types.StoreStats{
		TotalSessions:   len(s.sessions),
		EngagedSessions: s.engagedLocked(),
	}
	if s.activeID != nil {
		active := *s.activeID
		stats.ActiveID = &active
	}
	return stats
}

// activateLocked flips the active pointer to sessionID, touching both the
// outgoing and incoming sessions. Returns nil when already active.
func (s *Store) activateLocked(sessionID string) []types.Event {
	if s.activeID != nil && *s.activeID == sessionID {
		return nil
	}

	now := s.nowFn()
	if s.activeID != nil {
		if prev, ok := s.sessions[*s.activeID]; ok {
			s.touchLocked(prev, now)
		}
	}

	target := s.sessions[sessionID]
	s.touchLocked(target, now)
	active := sessionID
	s.activeID = &active

	if s.metrics != nil {
		s.metrics.SessionSwitches.Inc()
	}

	cp := *target
	return []types.Event{types.ActiveSessionChanged{Session: &cp}}
}

// evictionTargetLocked picks the eviction victim: strict ascending
// last-active order, ties broken by ascending creation time, preferring
// sessions that are not engaged. Deterministic by construction.
func (s *Store) evictionTargetLocked() *types.Session {
	var victim *types.Session
	for _, sess := range s.sessions {
		if types.Engaged(sess.State) {
			continue
		}
		if victim == nil || evictsBefore(sess, victim) {
			victim = sess
		}
	}
	if victim != nil {
		return victim
	}

	// All sessions engaged: evict the least-recently-active one anyway.
	for _, sess := range s.sessions {
		if victim == nil || evictsBefore(sess, victim) {
			victim = sess
		}
	}
	return victim
}

// mostRecentLocked returns the session with the greatest last-active
// timestamp, ties broken by latest creation, then ID.
func (s *Store) mostRecentLocked() *types.Session {
	var best *types.Session
	for _, sess := range s.sessions {
		if best == nil || evictsBefore(best, sess) {
			best = sess
		}
	}
	return best
}

// evictsBefore orders a strictly before b in the eviction sequence.
func evictsBefore(a, b *types.Session) bool {
	if !a.LastActiveAt.Equal(b.LastActiveAt) {
		return a.LastActiveAt.Before(b.LastActiveAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (s *Store) findByURLLocked(url string) *types.Session {
	for _, sess := range s.sessions {
		if sess.ServerURL == url {
			return sess
		}
	}
	return nil
}

// touchLocked keeps LastActiveAt monotonically non-decreasing.
func (s *Store) touchLocked(sess *types.Session, now time.Time) {
	if now.After(sess.LastActiveAt) {
		sess.LastActiveAt = now
	}
}

func (s *Store) engagedLocked() int {
	var engaged int
	for _, sess := range s.sessions {
		if types.Engaged(sess.State) {
			engaged++
		}
	}
	return engaged
}

func (s *Store) sortedLocked() []types.Session {
	out := make([]types.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) updateGaugesLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetSessionCounts(len(s.sessions), s.engagedLocked())
}

// emit dispatches events to subscribers registered at dispatch time, in
// registration order. Called without the lock held so subscribers can
// read the store, though mutating it from a subscriber is not supported.
func (s *Store) emit(events []types.Event) {
	if len(events) == 0 {
		return
	}
	s.mu.Lock()
	subs := make([]func(types.Event), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
