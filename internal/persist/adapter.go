package persist

import (
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/viewhub/viewhub/internal/infrastructure/logging"
	"github.com/viewhub/viewhub/internal/infrastructure/monitoring"
	"github.com/viewhub/viewhub/internal/shared/types"
)

// Storage keys inside the external KV store.
const (
	sessionsKey = "viewhub.sessions"
	recentKey   = "viewhub.recent"
)

// Adapter maps the session store's durable subset to the external KV
// store and owns the recent-server history.
//
// Persistence failures are never fatal: a malformed or missing durable
// record loads as empty state, and the adapter logs rather than
// propagates write errors for the history list.
type Adapter struct {
	kv      KV
	logger  *logging.Logger
	metrics *monitoring.Metrics
	nowFn   func() time.Time

	mu     sync.Mutex
	recent []types.RecentEntry
}

// NewAdapter creates an adapter over kv and loads the recent-server
// history from it.
func NewAdapter(kv KV, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Adapter{
		kv:     kv,
		logger: logger,
		nowFn:  time.Now,
	}
	a.loadRecent()
	return a
}

// WithMetrics adds metrics tracking to the adapter.
func (a *Adapter) WithMetrics(metrics *monitoring.Metrics) *Adapter {
	a.metrics = metrics
	a.mu.Lock()
	a.updateGaugeLocked()
	a.mu.Unlock()
	return a
}

// WithClock overrides the adapter's clock. Intended for tests.
func (a *Adapter) WithClock(now func() time.Time) *Adapter {
	a.nowFn = now
	return a
}

// Persist serializes the live session list and active pointer as a single
// durable record, overwriting any prior record. Connection and render
// state are not persisted.
func (a *Adapter) Persist(sessions []types.Session, activeID *string) error {
	record := types.StoreRecord{
		Sessions: make([]types.SessionRecord, 0, len(sessions)),
		ActiveID: activeID,
	}
	for _, sess := range sessions {
		record.Sessions = append(record.Sessions, sess.Record())
	}

	raw, err := sonic.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	if err := a.kv.Set(sessionsKey, string(raw)); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	return nil
}

// Load deserializes the durable session record. A missing or corrupt
// record is a recoverable condition and returns empty state.
func (a *Adapter) Load() ([]types.SessionRecord, *string) {
	raw, ok := a.kv.Get(sessionsKey)
	if !ok {
		return nil, nil
	}

	var record types.StoreRecord
	if err := sonic.Unmarshal([]byte(raw), &record); err != nil {
		a.logger.Warn("discarding corrupt session record", zap.Error(err))
		return nil, nil
	}
	return record.Sessions, record.ActiveID
}

// AddRecentURL records a connection to url, moving an existing entry to
// the front rather than duplicating it. The list is bounded at
// types.MaxRecentEntries, most-recent-first.
func (a *Adapter) AddRecentURL(url, name string, connectedAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, entry := range a.recent {
		if entry.URL != url {
			continue
		}
		entry.LastConnected = connectedAt
		if name != "" {
			entry.Name = name
		}
		a.recent = append(a.recent[:i], a.recent[i+1:]...)
		a.recent = append([]types.RecentEntry{entry}, a.recent...)
		a.saveRecentLocked()
		return
	}

	entry := types.RecentEntry{
		URL:           url,
		Name:          name,
		LastConnected: connectedAt,
		CreatedAt:     a.nowFn(),
	}
	a.recent = append([]types.RecentEntry{entry}, a.recent...)
	if len(a.recent) > types.MaxRecentEntries {
		a.recent = a.recent[:types.MaxRecentEntries]
	}
	a.saveRecentLocked()
}

// RemoveRecentURL deletes one history entry by url.
func (a *Adapter) RemoveRecentURL(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, entry := range a.recent {
		if entry.URL == url {
			a.recent = append(a.recent[:i], a.recent[i+1:]...)
			a.saveRecentLocked()
			return
		}
	}
}

// RecentURLs returns a copy of the history, most-recent-first.
func (a *Adapter) RecentURLs() []types.RecentEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.RecentEntry, len(a.recent))
	copy(out, a.recent)
	return out
}

// ClearHistory deletes the recent-server history and all persisted
// session metadata. Live in-memory sessions are not touched; callers
// wanting a full reset also invoke the store's RemoveAll.
func (a *Adapter) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recent = nil
	if err := a.kv.Remove(recentKey); err != nil {
		a.logger.Warn("failed to clear recent history", zap.Error(err))
	}
	if err := a.kv.Remove(sessionsKey); err != nil {
		a.logger.Warn("failed to clear persisted sessions", zap.Error(err))
	}
	a.updateGaugeLocked()
}

func (a *Adapter) loadRecent() {
	raw, ok := a.kv.Get(recentKey)
	if !ok {
		return
	}
	var entries []types.RecentEntry
	if err := sonic.Unmarshal([]byte(raw), &entries); err != nil {
		a.logger.Warn("discarding corrupt recent history", zap.Error(err))
		return
	}
	if len(entries) > types.MaxRecentEntries {
		entries = entries[:types.MaxRecentEntries]
	}
	a.recent = entries
}

func (a *Adapter) saveRecentLocked() {
	raw, err := sonic.Marshal(a.recent)
	if err != nil {
		a.logger.Warn("failed to encode recent history", zap.Error(err))
		return
	}
	if err := a.kv.Set(recentKey, string(raw)); err != nil {
		a.logger.Warn("failed to persist recent history", zap.Error(err))
	}
	a.updateGaugeLocked()
}

func (a *Adapter) updateGaugeLocked() {
	if a.metrics != nil {
		a.metrics.HistoryEntries.Set(float64(len(a.recent)))
	}
}
